package weather

import (
	"fmt"
	"slices"
	"strings"

	"github.com/i474232898/forecast-telemetry/internal/units"
)

// Scope tells which part of a Response a group is read from.
type Scope int

const (
	// ScopeForecast reads hourly[offset].
	ScopeForecast Scope = iota
	// ScopeCurrent reads the current-conditions object.
	ScopeCurrent
)

// Prefix returns the bus path prefix of the scope.
func (s Scope) Prefix() string {
	if s == ScopeCurrent {
		return CurrentPrefix
	}
	return ForecastPrefix
}

// ValueKind declares what a descriptor publishes.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindText
	// KindDescription is human readable text; it alone may carry Placeholder.
	KindDescription
	KindObject
)

// Descriptor describes one measurement. An empty Leaf marks a descriptor that
// is resolved for internal use and never published.
type Descriptor struct {
	Name        string
	Leaf        string
	Source      string
	SourceUnit  string
	DisplayUnit string
	Description string
	Kind        ValueKind

	// FromCurrent reads the current-conditions object even inside a forecast group.
	FromCurrent bool

	// CompensateWith names the temperature descriptor used to reduce a
	// sea-level pressure to station pressure.
	CompensateWith string

	// Set by NewSchema.
	Path  string
	Key   KeyExpr
	Scope Scope
}

// Published reports whether the descriptor has a bus path.
func (d Descriptor) Published() bool {
	return d.Path != ""
}

// Group is a set of descriptors sharing a publication scope.
type Group struct {
	Name  string
	Scope Scope
	// SimpleKey names the descriptor published in the simple view; empty
	// means the group is full-view only.
	SimpleKey   string
	Descriptors []Descriptor
}

// Selection is the consumer's choice of what to publish.
type Selection struct {
	View           View
	PublishCurrent bool
	// PartialFields lists current-condition leaves published even when
	// PublishCurrent is false.
	PartialFields []string
}

// Schema is the immutable, ordered measurement catalogue.
type Schema struct {
	groups []Group
	byName map[string]Descriptor
	// clock names the internal descriptor carrying the forecast's unix time.
	clock string
}

// NewSchema parses every source key and validates cross references.
func NewSchema(clock string, groups ...Group) (*Schema, error) {
	s := &Schema{
		groups: make([]Group, 0, len(groups)),
		byName: make(map[string]Descriptor),
		clock:  clock,
	}

	for _, g := range groups {
		parsed := Group{Name: g.Name, Scope: g.Scope, SimpleKey: g.SimpleKey}
		simpleFound := g.SimpleKey == ""
		for _, d := range g.Descriptors {
			if d.Name == "" {
				return nil, fmt.Errorf("group %s: descriptor without name", g.Name)
			}
			if _, dup := s.byName[d.Name]; dup {
				return nil, fmt.Errorf("group %s: duplicate descriptor %s", g.Name, d.Name)
			}
			key, err := ParseKey(d.Source)
			if err != nil {
				return nil, fmt.Errorf("descriptor %s: %w", d.Name, err)
			}
			d.Key = key
			d.Scope = g.Scope
			if d.Leaf != "" {
				d.Path = g.Scope.Prefix() + d.Leaf
			}
			if d.Name == g.SimpleKey {
				simpleFound = true
			}
			s.byName[d.Name] = d
			parsed.Descriptors = append(parsed.Descriptors, d)
		}
		if !simpleFound {
			return nil, fmt.Errorf("group %s: simple key %s is not a member", g.Name, g.SimpleKey)
		}
		s.groups = append(s.groups, parsed)
	}

	for _, d := range s.byName {
		if d.CompensateWith == "" {
			continue
		}
		if _, ok := s.byName[d.CompensateWith]; !ok {
			return nil, fmt.Errorf("descriptor %s: unknown compensation source %s", d.Name, d.CompensateWith)
		}
	}
	if clock != "" {
		if _, ok := s.byName[clock]; !ok {
			return nil, fmt.Errorf("unknown clock descriptor %s", clock)
		}
	}
	return s, nil
}

// Groups returns the schema's groups in order.
func (s *Schema) Groups() []Group {
	return s.groups
}

// Lookup finds a descriptor by name.
func (s *Schema) Lookup(name string) (Descriptor, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// Clock returns the descriptor dating the forecast, if any.
func (s *Schema) Clock() (Descriptor, bool) {
	if s.clock == "" {
		return Descriptor{}, false
	}
	return s.Lookup(s.clock)
}

// Select returns the published descriptors active for sel, in schema order.
// The view applies to forecast groups; current-condition groups are governed by
// PublishCurrent and PartialFields.
func (s *Schema) Select(sel Selection) []Descriptor {
	var out []Descriptor
	for _, g := range s.groups {
		for _, d := range g.Descriptors {
			if !d.Published() {
				continue
			}
			if g.Scope == ScopeCurrent {
				if sel.PublishCurrent || slices.Contains(sel.PartialFields, d.Leaf) {
					out = append(out, d)
				}
				continue
			}
			if sel.View == ViewFull || d.Name == g.SimpleKey {
				out = append(out, d)
			}
		}
	}
	return out
}

// MetaFor builds the meta value of a descriptor.
func MetaFor(d Descriptor, timeoutSeconds int) Meta {
	return Meta{
		Units:       units.CanonicalUnit(d.SourceUnit),
		Description: d.Description,
		Timeout:     timeoutSeconds,
	}
}

// CurrentLeaves lists the leaves of the current-condition groups, for validating partial fields.
func (s *Schema) CurrentLeaves() []string {
	var out []string
	for _, g := range s.groups {
		if g.Scope != ScopeCurrent {
			continue
		}
		for _, d := range g.Descriptors {
			if d.Leaf != "" {
				out = append(out, d.Leaf)
			}
		}
	}
	return out
}

// NormalizeFields trims and de-duplicates a partial field list.
func NormalizeFields(fields []string) []string {
	var out []string
	for _, f := range fields {
		f = strings.TrimPrefix(strings.TrimSpace(f), CurrentPrefix)
		if f == "" || slices.Contains(out, f) {
			continue
		}
		out = append(out, f)
	}
	return out
}
