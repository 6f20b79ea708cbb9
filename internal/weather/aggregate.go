package weather

import (
	"log/slog"
	"maps"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/i474232898/forecast-telemetry/internal/units"
)

// Settings configures an Aggregator. Offset and horizon are expected to be clamped already.
type Settings struct {
	Selection
	OffsetHours     int
	HorizonHours    int
	RefreshInterval time.Duration
}

// Reading is the last known value of one descriptor. A nil Raw means no value.
type Reading struct {
	Raw       any
	Converted *units.Quantity
}

// CanonicalState is the snapshot of last known readings, replaced as a whole per fetch cycle.
type CanonicalState struct {
	Epoch    time.Time
	Fetched  bool
	Failed   bool
	Readings map[string]Reading
}

// IngestResult is the outcome of a successful fetch.
type IngestResult struct {
	Values Batch
	// MetaReady is true on the first successful ingest, when published values
	// first match the meta sent at initialization.
	MetaReady bool
}

// Aggregator owns the canonical state and turns provider payloads into batches.
type Aggregator struct {
	mu        sync.RWMutex
	schema    *Schema
	settings  Settings
	active    []Descriptor
	resolver  *Resolver
	state     CanonicalState
	succeeded bool

	elevation *atomic.Float64
	logger    *slog.Logger
	now       func() time.Time
}

// NewAggregator creates an Aggregator with an all-null state. elevation is
// shared with whoever tracks the station elevation.
func NewAggregator(schema *Schema, settings Settings, elevation *atomic.Float64, logger *slog.Logger) *Aggregator {
	if elevation == nil {
		elevation = atomic.NewFloat64(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		schema:    schema,
		settings:  settings,
		active:    schema.Select(settings.Selection),
		resolver:  NewResolver(),
		elevation: elevation,
		logger:    logger,
		now:       time.Now,
	}
	a.state = CanonicalState{Readings: a.emptyReadings()}
	return a
}

// Active returns the published descriptors in output order.
func (a *Aggregator) Active() []Descriptor {
	return a.active
}

// State returns a copy of the canonical state.
func (a *Aggregator) State() CanonicalState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	st := a.state
	st.Readings = maps.Clone(a.state.Readings)
	return st
}

// Ingest resolves and converts every active descriptor against resp and
// replaces the canonical state.
func (a *Aggregator) Ingest(resp Response) IngestResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	epoch := a.now().UTC()
	offset, horizon := a.settings.OffsetHours, a.settings.HorizonHours

	if clock, ok := a.schema.Clock(); ok {
		if raw, ok := a.resolver.Resolve(clock, resp.Current, resp.Hourly, offset, horizon); ok {
			if secs, ok := units.Number(raw); ok {
				day := localDay(secs, resp.TimezoneOffset)
				if a.resolver.Rollover(day) {
					a.logger.Debug("forecast day changed; daily aggregates reset", "day", day)
				}
			}
		}
	}

	elevation := a.elevation.Load()
	readings := make(map[string]Reading, len(a.active))
	for _, d := range a.active {
		raw, ok := a.resolver.Resolve(d, resp.Current, resp.Hourly, offset, horizon)
		if !ok {
			readings[d.Name] = Reading{Converted: &units.Quantity{Unit: units.CanonicalUnit(d.SourceUnit)}}
			continue
		}
		q, known := units.ToCanonical(d.SourceUnit, raw)
		if !known {
			a.logger.Warn("unit conversion not defined; value passed through",
				"path", d.Path, "unit", d.SourceUnit)
		}
		if d.CompensateWith != "" {
			q = a.compensate(d, q, resp, elevation)
		}
		readings[d.Name] = Reading{Raw: raw, Converted: &q}
	}

	a.state = CanonicalState{
		Epoch:    epoch,
		Fetched:  true,
		Readings: readings,
	}

	first := !a.succeeded
	a.succeeded = true
	return IngestResult{Values: a.valuesLocked(), MetaReady: first}
}

// compensate reduces a sea-level pressure to the station elevation using the
// temperature resolved from the same payload. Without a temperature the
// sea-level value is kept.
func (a *Aggregator) compensate(d Descriptor, q units.Quantity, resp Response, elevation float64) units.Quantity {
	pressure, ok := q.Value.(float64)
	if !ok || q.Unit != "Pa" {
		return q
	}
	tempDesc, _ := a.schema.Lookup(d.CompensateWith)
	raw, ok := a.resolver.Resolve(tempDesc, resp.Current, resp.Hourly, a.settings.OffsetHours, a.settings.HorizonHours)
	if !ok {
		a.logger.Debug("no temperature for pressure compensation; publishing sea-level value", "path", d.Path)
		return q
	}
	temp, _ := units.ToCanonical(tempDesc.SourceUnit, raw)
	kelvin, ok := temp.Value.(float64)
	if !ok || temp.Unit != "K" {
		a.logger.Debug("no temperature for pressure compensation; publishing sea-level value", "path", d.Path)
		return q
	}
	return units.Quantity{Value: units.StationPressure(pressure, elevation, kelvin), Unit: "Pa"}
}

// Fail nulls every reading after a failed fetch and returns the values batch.
func (a *Aggregator) Fail(err error) Batch {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Debug("clearing canonical state after failed fetch", "error", err)
	a.state = CanonicalState{
		Epoch:    a.now().UTC(),
		Fetched:  true,
		Failed:   true,
		Readings: a.emptyReadings(),
	}
	return a.valuesLocked()
}

// BuildValues returns the values batch for the current state.
func (a *Aggregator) BuildValues() Batch {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.valuesLocked()
}

// BuildMeta returns units, description and timeout for every active descriptor.
// It needs the schema only.
func (a *Aggregator) BuildMeta() Batch {
	timeout := int(a.settings.RefreshInterval / time.Second)
	deltas := make([]Delta, 0, len(a.active))
	for _, d := range a.active {
		deltas = append(deltas, Delta{Path: d.Path, Value: MetaFor(d, timeout)})
	}
	return Batch{Kind: BatchMeta, Timestamp: a.now().UTC(), Deltas: deltas}
}

// BuildDisplay renders the current values in each descriptor's display unit.
func (a *Aggregator) BuildDisplay(precision int) Batch {
	a.mu.RLock()
	defer a.mu.RUnlock()

	deltas := make([]Delta, 0, len(a.active))
	for _, d := range a.active {
		r := a.state.Readings[d.Name]
		q := units.Quantity{Unit: units.CanonicalUnit(d.SourceUnit)}
		if r.Converted != nil {
			q = *r.Converted
		}
		shown, ok := units.ToDisplay(q.Unit, q.Value, d.DisplayUnit, precision)
		if !ok {
			shown = q
		}
		deltas = append(deltas, Delta{Path: d.Path, Value: shown})
	}
	return Batch{Kind: BatchValues, Timestamp: a.state.Epoch, Deltas: deltas}
}

func (a *Aggregator) valuesLocked() Batch {
	deltas := make([]Delta, 0, len(a.active))
	for _, d := range a.active {
		var v any
		if r := a.state.Readings[d.Name]; r.Converted != nil {
			v = r.Converted.Value
		}
		if v == nil && d.Kind == KindDescription && !a.state.Fetched {
			v = Placeholder
		}
		deltas = append(deltas, Delta{Path: d.Path, Value: v})
	}
	ts := a.state.Epoch
	if ts.IsZero() {
		ts = a.now().UTC()
	}
	return Batch{Kind: BatchValues, Timestamp: ts, Deltas: deltas}
}

func (a *Aggregator) emptyReadings() map[string]Reading {
	readings := make(map[string]Reading, len(a.active))
	for _, d := range a.active {
		readings[d.Name] = Reading{}
	}
	return readings
}

// localDay derives the provider-local calendar day of a unix timestamp.
func localDay(secs float64, tzOffset int) string {
	return time.Unix(int64(secs), 0).UTC().Add(time.Duration(tzOffset) * time.Second).Format(time.DateOnly)
}
