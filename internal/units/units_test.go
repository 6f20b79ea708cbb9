package units

import (
	"math"
	"testing"
)

func closeEnough(got, want, rel float64) bool {
	if want == 0 {
		return math.Abs(got) <= rel
	}
	return math.Abs(got-want)/math.Abs(want) <= rel
}

func TestToCanonicalLinear(t *testing.T) {
	tests := []struct {
		unit     string
		in       float64
		want     float64
		wantUnit string
	}{
		{"%", 80, 0.8, "ratio"},
		{"°C", 20, 293.15, "K"},
		{"deg", 0, 273.15, "K"},
		{"°F", 32, 273.15, "K"},
		{"°F", 212, 373.15, "K"},
		{"kmh", 36, 10, "m/s"},
		{"kn", 1.943844, 1, "m/s"},
		{"m/s", 5, 5, "m/s"},
		{"°", 180, math.Pi, "rad"},
		{"hPa", 1013, 101300, "Pa"},
		{"mbar", 1000, 100000, "Pa"},
		{"Pa", 101325, 101325, "Pa"},
		{"km", 10, 10000, "m"},
		{"nm", 1, 1852, "m"},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			got, ok := ToCanonical(tt.unit, tt.in)
			if !ok {
				t.Fatalf("ToCanonical(%q) reported unknown unit", tt.unit)
			}
			if got.Unit != tt.wantUnit {
				t.Fatalf("unit = %q, want %q", got.Unit, tt.wantUnit)
			}
			if !closeEnough(got.Value.(float64), tt.want, 1e-9) {
				t.Fatalf("value = %v, want %v", got.Value, tt.want)
			}
		})
	}
}

func TestToCanonicalNilPassesThrough(t *testing.T) {
	got, ok := ToCanonical("hPa", nil)
	if !ok {
		t.Fatalf("expected nil conversion to succeed")
	}
	if got.Value != nil || got.Unit != "Pa" {
		t.Fatalf("got %+v, want nil value in Pa", got)
	}
}

func TestToCanonicalUnknownUnit(t *testing.T) {
	got, ok := ToCanonical("furlongs", 3.0)
	if ok {
		t.Fatalf("expected unknown unit to be reported")
	}
	if got.Value != 3.0 || got.Unit != "furlongs" {
		t.Fatalf("got %+v, want passthrough", got)
	}
}

func TestToCanonicalSpecialFormats(t *testing.T) {
	got, _ := ToCanonical(UnixDate, 1000.0)
	if got.Value != "1970-01-01T00:16:40.000Z" {
		t.Fatalf("unixdate = %v", got.Value)
	}

	got, ok := ToCanonical(GeoJSON, []any{20.0, 10.0})
	if !ok {
		t.Fatalf("geoJson not converted")
	}
	if c := got.Value.(Coordinate); c.Latitude != 10 || c.Longitude != 20 {
		t.Fatalf("geoJson = %+v", c)
	}

	got, _ = ToCanonical(LatLng, []float64{10, 20})
	if c := got.Value.(Coordinate); c.Latitude != 10 || c.Longitude != 20 {
		t.Fatalf("latLng = %+v", c)
	}

	if _, ok := ToCanonical(LatLng, []any{10.0}); ok {
		t.Fatalf("expected short coordinate array to fail")
	}

	got, _ = ToCanonical(Text, "clear sky")
	if got.Value != "clear sky" || got.Unit != "" {
		t.Fatalf("string = %+v", got)
	}

	got, _ = ToCanonical(Beaufort, "4")
	if !closeEnough(got.Value.(float64), 0.836*8, 1e-9) {
		t.Fatalf("Bft from string = %v", got.Value)
	}
	got, _ = ToCanonical(BeaufortMax, 12.0)
	if got.Value.(float64) != 99.9 {
		t.Fatalf("BftMax 12 = %v", got.Value)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		unit    string
		value   float64
		targets []string
	}{
		{"K", 290, []string{"", "K", "°C", "°F", "deg"}},
		{"Pa", 101325, []string{"", "hPa", "mbar", "atm"}},
		{"m/s", 5, []string{"", "kn", "kmh", "km/h"}},
		{"rad", 1.2, []string{"", "°", "deg"}},
		{"ratio", 0.42, []string{"", "%"}},
		{"m", 9000, []string{"", "km", "nm"}},
		{"s", 7200, []string{"", "ms", "min", "h", "d"}},
	}

	for _, tt := range tests {
		for _, target := range tt.targets {
			t.Run(tt.unit+"->"+target, func(t *testing.T) {
				shown, ok := ToDisplay(tt.unit, tt.value, target, FullPrecision)
				if !ok {
					t.Fatalf("ToDisplay(%q, %q) not defined", tt.unit, target)
				}
				back, ok := ToCanonical(shown.Unit, shown.Value)
				if !ok {
					t.Fatalf("ToCanonical(%q) not defined", shown.Unit)
				}
				if back.Unit != tt.unit {
					t.Fatalf("round trip unit = %q, want %q", back.Unit, tt.unit)
				}
				if !closeEnough(back.Value.(float64), tt.value, 1e-6) {
					t.Fatalf("round trip value = %v, want %v", back.Value, tt.value)
				}
			})
		}
	}
}

func TestToDisplayPrecision(t *testing.T) {
	got, _ := ToDisplay("K", 293.15, "°C", 1)
	if got.Value.(float64) != 20.0 || got.Unit != "°C" {
		t.Fatalf("got %+v", got)
	}
	got, _ = ToDisplay("Pa", 101325.0, "atm", 3)
	if got.Value.(float64) != 1.0 {
		t.Fatalf("atm = %v", got.Value)
	}
	got, _ = ToDisplay("Pa", 100123.456, "", 0)
	if got.Value.(float64) != 100123 {
		t.Fatalf("rounded Pa = %v", got.Value)
	}
}

func TestToDisplayCoordinatesAreNotRounded(t *testing.T) {
	c := Coordinate{Latitude: 10.123456, Longitude: 20.987654}
	got, ok := ToDisplay("", c, GeoJSON, 1)
	if !ok {
		t.Fatalf("geoJson display failed")
	}
	pair := got.Value.([]float64)
	if pair[0] != 20.987654 || pair[1] != 10.123456 {
		t.Fatalf("geoJson = %v", pair)
	}
	got, _ = ToDisplay("", map[string]any{"latitude": 1.5, "longitude": 2.5}, LatLng, 0)
	if pair := got.Value.([]float64); pair[0] != 1.5 || pair[1] != 2.5 {
		t.Fatalf("latLng = %v", pair)
	}
}

func TestToDisplayBeaufortAndTime(t *testing.T) {
	got, _ := ToDisplay("m/s", 6.688, Beaufort, FullPrecision)
	if got.Value.(float64) != 4 || got.Unit != Beaufort {
		t.Fatalf("Bft = %+v", got)
	}

	got, ok := ToDisplay("", "1970-01-01T00:16:40.000Z", UnixDate, FullPrecision)
	if !ok || got.Value.(float64) != 1000 {
		t.Fatalf("unixdate display = %+v", got)
	}
	back, _ := ToCanonical(got.Unit, got.Value)
	if back.Value != "1970-01-01T00:16:40.000Z" {
		t.Fatalf("unixdate round trip = %v", back.Value)
	}
}

func TestToDisplayUndefined(t *testing.T) {
	got, ok := ToDisplay("K", 290.0, "hPa", FullPrecision)
	if ok {
		t.Fatalf("expected K -> hPa to be undefined")
	}
	if got.Value != 290.0 || got.Unit != "K" {
		t.Fatalf("got %+v, want passthrough", got)
	}
	got, _ = ToDisplay("K", nil, "°C", 1)
	if got.Value != nil || got.Unit != "°C" {
		t.Fatalf("nil display = %+v", got)
	}
}

func TestBeaufortTable(t *testing.T) {
	for f := 0; f <= 12; f++ {
		lo, okLo := FromBeaufort(float64(f), BeaufortRangeMin)
		hi, okHi := FromBeaufort(float64(f), BeaufortRangeMax)
		if !okLo || !okHi {
			t.Fatalf("force %d not in table", f)
		}
		if lo > hi {
			t.Fatalf("force %d: min %v > max %v", f, lo, hi)
		}
		if f >= 1 && f <= 11 {
			p, _ := FromBeaufort(float64(f), BeaufortPoint)
			if p < lo || p > hi {
				t.Fatalf("force %d: point %v outside [%v, %v]", f, p, lo, hi)
			}
		}
	}

	if _, ok := FromBeaufort(13, BeaufortRangeMax); ok {
		t.Fatalf("force 13 should be outside the table")
	}
	if _, ok := FromBeaufort(2.5, BeaufortRangeMin); ok {
		t.Fatalf("fractional force should be rejected in range mode")
	}
	if v, _ := FromBeaufort(12, BeaufortRangeMax); v != 99.9 {
		t.Fatalf("force 12 max = %v", v)
	}
}

func TestToBeaufortInvertsPointEstimate(t *testing.T) {
	for f := 0; f <= 12; f++ {
		ms, _ := FromBeaufort(float64(f), BeaufortPoint)
		if got := ToBeaufort(ms); got != f {
			t.Fatalf("ToBeaufort(FromBeaufort(%d)) = %d", f, got)
		}
	}
}

func TestBarometricInverse(t *testing.T) {
	for h := 0.0; h <= 4000; h += 500 {
		for temp := 250.0; temp <= 320; temp += 10 {
			for p := 80000.0; p <= 105000; p += 5000 {
				got := StationPressure(SeaLevelPressure(p, h, temp), h, temp)
				if !closeEnough(got, p, 1e-3) {
					t.Fatalf("h=%v T=%v P=%v: got %v", h, temp, p, got)
				}
			}
		}
	}

	if got := StationPressure(101325, 0, 288.15); got != 101325 {
		t.Fatalf("zero elevation changed pressure: %v", got)
	}
	if got := StationPressure(101325, 1000, 288.15); got >= 101325 {
		t.Fatalf("station pressure should drop with elevation: %v", got)
	}
}

func TestFormatDMS(t *testing.T) {
	tests := map[float64]string{
		10.5:     "10°30'0\"",
		-33.8568: "33°51'24\"",
		0:        "0°0'0\"",
	}
	for in, want := range tests {
		if got := FormatDMS(in); got != want {
			t.Errorf("FormatDMS(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalUnit(t *testing.T) {
	tests := map[string]string{
		"%":         "ratio",
		"hPa":       "Pa",
		BeaufortMin: "m/s",
		UnixDate:    "",
		"furlongs":  "furlongs",
	}
	for in, want := range tests {
		if got := CanonicalUnit(in); got != want {
			t.Errorf("CanonicalUnit(%q) = %q, want %q", in, got, want)
		}
	}
}
