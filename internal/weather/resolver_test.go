package weather

import (
	"math"
	"testing"
)

func descriptor(t *testing.T, scope Scope, source string) Descriptor {
	t.Helper()
	return Descriptor{Name: source, Key: MustParseKey(source), Scope: scope}
}

func hourlyTemps(temps ...float64) []map[string]any {
	out := make([]map[string]any, 0, len(temps))
	for _, v := range temps {
		out = append(out, map[string]any{"temp": v})
	}
	return out
}

func TestResolvePlainPicksScopeRecord(t *testing.T) {
	r := NewResolver()
	current := map[string]any{"temp": 290.0}
	hourly := hourlyTemps(291, 292)

	if v, ok := r.Resolve(descriptor(t, ScopeCurrent, "temp"), current, hourly, 1, 24); !ok || v != 290.0 {
		t.Fatalf("current temp = %v, %v", v, ok)
	}
	if v, ok := r.Resolve(descriptor(t, ScopeForecast, "temp"), current, hourly, 1, 24); !ok || v != 292.0 {
		t.Fatalf("forecast temp = %v, %v", v, ok)
	}

	d := descriptor(t, ScopeForecast, "temp")
	d.FromCurrent = true
	if v, _ := r.Resolve(d, current, hourly, 1, 24); v != 290.0 {
		t.Fatalf("FromCurrent temp = %v", v)
	}
}

func TestResolveIndexedAndNested(t *testing.T) {
	r := NewResolver()
	hourly := []map[string]any{
		{},
		{
			"weather": []any{map[string]any{"id": 801.0, "description": "few clouds"}},
			"rain":    map[string]any{"1h": 0.4},
			"precip":  map[string]any{"rain": map[string]any{"1h": 0.7}},
		},
	}

	if v, _ := r.Resolve(descriptor(t, ScopeForecast, "0:weather.description"), nil, hourly, 1, 24); v != "few clouds" {
		t.Fatalf("indexed = %v", v)
	}
	if v, _ := r.Resolve(descriptor(t, ScopeForecast, "rain:1h"), nil, hourly, 1, 24); v != 0.4 {
		t.Fatalf("nested = %v", v)
	}
	if v, _ := r.Resolve(descriptor(t, ScopeForecast, "precip:rain.1h"), nil, hourly, 1, 24); v != 0.7 {
		t.Fatalf("deep nested = %v", v)
	}
	elem, ok := r.Resolve(descriptor(t, ScopeForecast, "0:weather"), nil, hourly, 1, 24)
	if !ok {
		t.Fatalf("whole element not resolved")
	}
	if m := elem.(map[string]any); m["id"] != 801.0 {
		t.Fatalf("element = %v", m)
	}
}

func TestResolveMissingDataIsNull(t *testing.T) {
	sources := []string{"temp", "0:weather.id", "3:weather.id", "min:temp", "max:pop", "avg:temp", "rain:1h", "precip:rain.1h", "today:min", "today:max"}
	records := map[string]struct {
		current map[string]any
		hourly  []map[string]any
		offset  int
	}{
		"nil response":        {nil, nil, 1},
		"offset out of range": {map[string]any{}, []map[string]any{{}}, 5},
		"wrong shapes": {
			map[string]any{},
			[]map[string]any{{}, {"weather": "not-an-array", "rain": 3.0, "temp": nil, "pop": "high", "precip": map[string]any{"rain": 2.0}}},
			1,
		},
		"empty array": {map[string]any{}, []map[string]any{{}, {"weather": []any{}}}, 1},
		"nil entries": {map[string]any{}, []map[string]any{nil, nil}, 1},
	}

	for name, rec := range records {
		for _, src := range sources {
			t.Run(name+"/"+src, func(t *testing.T) {
				r := NewResolver()
				r.Rollover("1970-01-01")
				v, ok := r.Resolve(descriptor(t, ScopeForecast, src), rec.current, rec.hourly, rec.offset, 24)
				if ok || v != nil {
					t.Fatalf("expected null, got %v (%v)", v, ok)
				}
			})
		}
	}
}

func TestResolveAggregatesWithinHorizon(t *testing.T) {
	r := NewResolver()
	hourly := hourlyTemps(3, 1, 4, 1, 5, -20, 90, 2, 6, 5)

	tests := map[string]float64{
		"min:temp": 1,
		"max:temp": 5,
		"avg:temp": (3 + 1 + 4 + 1 + 5) / 5.0,
	}
	for src, want := range tests {
		v, ok := r.Resolve(descriptor(t, ScopeForecast, src), nil, hourly, 1, 5)
		if !ok {
			t.Fatalf("%s not resolved", src)
		}
		if math.Abs(v.(float64)-want) > 1e-12 {
			t.Fatalf("%s = %v, want %v", src, v, want)
		}
	}

	// Shorter array than the horizon uses what is there.
	v, _ := r.Resolve(descriptor(t, ScopeForecast, "max:temp"), nil, hourlyTemps(1, 7), 1, 48)
	if v != 7.0 {
		t.Fatalf("short horizon max = %v", v)
	}
}

func TestResolveTodayIsCachedPerDay(t *testing.T) {
	r := NewResolver()
	minKey := descriptor(t, ScopeForecast, "today:min")
	maxKey := descriptor(t, ScopeForecast, "today:max")

	r.Rollover("2024-05-01")
	first := hourlyTemps(280, 285, 290)
	if v, _ := r.Resolve(minKey, nil, first, 1, 24); v != 280.0 {
		t.Fatalf("today min = %v", v)
	}
	if v, _ := r.Resolve(maxKey, nil, first, 1, 24); v != 290.0 {
		t.Fatalf("today max = %v", v)
	}

	// Same day: new data does not change the cached stats.
	if r.Rollover("2024-05-01") {
		t.Fatalf("same day reported as rollover")
	}
	later := hourlyTemps(270, 300)
	if v, _ := r.Resolve(minKey, nil, later, 1, 24); v != 280.0 {
		t.Fatalf("cached today min = %v", v)
	}

	// New day: recomputed.
	if !r.Rollover("2024-05-02") {
		t.Fatalf("day change not reported")
	}
	if v, _ := r.Resolve(maxKey, nil, later, 1, 24); v != 300.0 {
		t.Fatalf("today max after rollover = %v", v)
	}
}

func TestResolveTodayUsesFirst24Entries(t *testing.T) {
	temps := make([]float64, 30)
	for i := range temps {
		temps[i] = 280
	}
	temps[25] = 400
	r := NewResolver()
	r.Rollover("2024-05-01")
	if v, _ := r.Resolve(descriptor(t, ScopeForecast, "today:max"), nil, hourlyTemps(temps...), 1, 96); v != 280.0 {
		t.Fatalf("today max = %v, want entries beyond 24 ignored", v)
	}
}
