package weather

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/i474232898/forecast-telemetry/internal/units"
)

// Path prefixes on the telemetry bus.
const (
	ForecastPrefix = "environment.forecast."
	CurrentPrefix  = "environment.outside."
)

// Placeholder is published for description fields until the first fetch settles.
const Placeholder = "waiting ..."

// Position is a vessel or station position in decimal degrees.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the position lies on the globe.
func (p Position) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

func (p Position) String() string {
	ns, ew := "N", "E"
	if p.Latitude < 0 {
		ns = "S"
	}
	if p.Longitude < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%s%s %s%s", units.FormatDMS(p.Latitude), ns, units.FormatDMS(p.Longitude), ew)
}

// View selects how much of the schema is published.
type View string

const (
	ViewSimple View = "simple"
	ViewFull   View = "full"
)

// ParseView accepts "simple" or "full", optionally followed by a " - ..." label.
func ParseView(s string) (View, error) {
	head, _, _ := strings.Cut(s, "-")
	switch View(strings.ToLower(strings.TrimSpace(head))) {
	case ViewSimple:
		return ViewSimple, nil
	case ViewFull:
		return ViewFull, nil
	default:
		return "", fmt.Errorf("unknown view mode %q (allowed: simple, full)", s)
	}
}

// BatchKind distinguishes value updates from meta updates.
type BatchKind string

const (
	BatchValues BatchKind = "values"
	BatchMeta   BatchKind = "meta"
)

// Delta is a single {path, value} pair.
type Delta struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Batch is an ordered set of deltas emitted together.
type Batch struct {
	ID        string    `json:"id,omitempty"`
	Kind      BatchKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Deltas    []Delta   `json:"values"`
}

// Lookup returns the value published for path.
func (b Batch) Lookup(path string) (any, bool) {
	for _, d := range b.Deltas {
		if d.Path == path {
			return d.Value, true
		}
	}
	return nil, false
}

// Paths lists the batch's paths in order.
func (b Batch) Paths() []string {
	out := make([]string, 0, len(b.Deltas))
	for _, d := range b.Deltas {
		out = append(out, d.Path)
	}
	return out
}

// Meta is the value of a meta delta.
type Meta struct {
	Units       string `json:"units,omitempty"`
	Description string `json:"description,omitempty"`
	Timeout     int    `json:"timeout"`
}

// Response is one immutable provider payload: the current-conditions object
// and the hourly forecast array.
type Response struct {
	Current        map[string]any   `json:"current"`
	Hourly         []map[string]any `json:"hourly"`
	TimezoneOffset int              `json:"timezone_offset"`
}
