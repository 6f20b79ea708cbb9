package weather

import (
	"strings"

	"github.com/i474232898/forecast-telemetry/internal/units"
)

// todayWindow is the number of hourly entries folded by today keys.
const todayWindow = 24

type todayStats struct {
	min, max float64
}

// Resolver walks provider payloads according to descriptor key expressions.
// Everything but today keys is stateless; today results are cached per
// calendar day until Rollover reports a new day.
type Resolver struct {
	day   string
	today map[string]todayStats
}

// NewResolver returns a Resolver with an empty daily cache.
func NewResolver() *Resolver {
	return &Resolver{today: make(map[string]todayStats)}
}

// Rollover sets the forecast's calendar day. A different day drops the daily
// cache; it reports whether that happened.
func (r *Resolver) Rollover(day string) bool {
	if day == r.day {
		return false
	}
	r.day = day
	clear(r.today)
	return true
}

// Resolve returns the raw value addressed by d, or false when any part of the
// path is missing.
func (r *Resolver) Resolve(d Descriptor, current map[string]any, hourly []map[string]any, offset, horizon int) (any, bool) {
	record := current
	if d.Scope == ScopeForecast && !d.FromCurrent {
		record = nil
		if offset >= 0 && offset < len(hourly) {
			record = hourly[offset]
		}
	}

	k := d.Key
	switch k.Kind {
	case KeyPlain:
		return lookup(record, k.Field)
	case KeyIndexed:
		v, ok := lookup(record, k.Field)
		if !ok {
			return nil, false
		}
		arr, ok := v.([]any)
		if !ok || k.Index >= len(arr) {
			return nil, false
		}
		if k.Member == "" {
			return present(arr[k.Index])
		}
		return walk(arr[k.Index], k.Member)
	case KeyAggregate:
		return aggregate(hourly, horizon, k.Field, k.Op)
	case KeyNested:
		parent, ok := lookup(record, k.Field)
		if !ok {
			return nil, false
		}
		return walk(parent, k.Member)
	case KeyToday:
		return r.resolveToday(hourly, k)
	default:
		return nil, false
	}
}

func (r *Resolver) resolveToday(hourly []map[string]any, k KeyExpr) (any, bool) {
	stats, ok := r.today[k.Field]
	if !ok {
		lo, okLo := aggregate(hourly, todayWindow, k.Field, OpMin)
		hi, okHi := aggregate(hourly, todayWindow, k.Field, OpMax)
		if !okLo || !okHi {
			return nil, false
		}
		stats = todayStats{min: lo.(float64), max: hi.(float64)}
		if r.day != "" {
			r.today[k.Field] = stats
		}
	}
	if k.Op == OpMin {
		return stats.min, true
	}
	return stats.max, true
}

// aggregate folds field over the first n hourly entries, skipping entries that
// lack a numeric value.
func aggregate(hourly []map[string]any, n int, field string, op AggregateOp) (any, bool) {
	if n > len(hourly) {
		n = len(hourly)
	}
	var (
		acc   float64
		count int
	)
	for _, entry := range hourly[:max(n, 0)] {
		raw, ok := lookup(entry, field)
		if !ok {
			continue
		}
		v, ok := units.Number(raw)
		if !ok {
			continue
		}
		switch {
		case count == 0:
			acc = v
		case op == OpMin:
			acc = min(acc, v)
		case op == OpMax:
			acc = max(acc, v)
		default:
			acc += v
		}
		count++
	}
	if count == 0 {
		return nil, false
	}
	if op == OpAvg {
		return acc / float64(count), true
	}
	return acc, true
}

func lookup(record map[string]any, field string) (any, bool) {
	if record == nil {
		return nil, false
	}
	return present(record[field])
}

// walk follows a dotted member path through nested objects.
func walk(v any, path string) (any, bool) {
	for _, part := range strings.Split(path, ".") {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return present(v)
}

func present(v any) (any, bool) {
	return v, v != nil
}
