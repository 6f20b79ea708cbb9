// Package units converts provider readings into the bus' canonical units
// (K, Pa, m/s, rad, ratio, m) and back into display units.
package units

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Quantity is a value tagged with its unit. A nil Value means no reading.
type Quantity struct {
	Value any    `json:"value"`
	Unit  string `json:"units,omitempty"`
}

// Coordinate is the canonical form of a position pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FullPrecision disables rounding in ToDisplay.
const FullPrecision = -1

// Source formats that are not linear scalings.
const (
	Beaufort    = "Bft"
	BeaufortMin = "BftMin"
	BeaufortMax = "BftMax"
	UnixDate    = "unixdate"
	GeoJSON     = "geoJson"
	LatLng      = "latLng"
	Text        = "string"
)

// linear maps a source unit onto its canonical unit as canonical = v*scale + offset.
type linear struct {
	unit   string
	scale  float64
	offset float64
}

var linearUnits = map[string]linear{
	"":      {unit: "", scale: 1},
	"ratio": {unit: "ratio", scale: 1},
	"%":     {unit: "ratio", scale: 0.01},

	"K":   {unit: "K", scale: 1},
	"°C":  {unit: "K", scale: 1, offset: 273.15},
	"deg": {unit: "K", scale: 1, offset: 273.15},
	"°F":  {unit: "K", scale: 5.0 / 9.0, offset: 273.15 - 32*5.0/9.0},

	"m/s":   {unit: "m/s", scale: 1},
	"m s-1": {unit: "m/s", scale: 1},
	"kmh":   {unit: "m/s", scale: 1 / 3.6},
	"km/h":  {unit: "m/s", scale: 1 / 3.6},
	"kn":    {unit: "m/s", scale: 1 / 1.943844},

	"rad":     {unit: "rad", scale: 1},
	"°":       {unit: "rad", scale: math.Pi / 180.0},
	"degrees": {unit: "rad", scale: math.Pi / 180.0},

	"Pa":       {unit: "Pa", scale: 1},
	"hPa":      {unit: "Pa", scale: 100},
	"mbar":     {unit: "Pa", scale: 100},
	"millibar": {unit: "Pa", scale: 100},
	"atm":      {unit: "Pa", scale: 101325},

	"m":  {unit: "m", scale: 1},
	"km": {unit: "m", scale: 1000},
	"nm": {unit: "m", scale: 1852},

	"mm":         {unit: "mm", scale: 1},
	"J kg-1":     {unit: "J/kg", scale: 1},
	"kg m-2 s-1": {unit: "mm/s", scale: 1},

	"s":   {unit: "s", scale: 1},
	"ms":  {unit: "s", scale: 0.001},
	"min": {unit: "s", scale: 60},
	"h":   {unit: "s", scale: 3600},
	"d":   {unit: "s", scale: 86400},
}

// displayAliases resolves display targets whose name collides with a source unit
// of a different dimension ("deg" is Celsius as a source but degrees as an angle).
var displayAliases = map[[2]string]string{
	{"rad", "deg"}: "°",
}

// CanonicalUnit reports the canonical unit a source unit converts into.
// Unknown units map onto themselves.
func CanonicalUnit(source string) string {
	switch source {
	case Beaufort, BeaufortMin, BeaufortMax:
		return "m/s"
	case UnixDate, GeoJSON, LatLng, Text:
		return ""
	}
	if l, ok := linearUnits[source]; ok {
		return l.unit
	}
	return source
}

// Known reports whether source is a recognised unit.
func Known(source string) bool {
	switch source {
	case Beaufort, BeaufortMin, BeaufortMax, UnixDate, GeoJSON, LatLng, Text:
		return true
	}
	_, ok := linearUnits[source]
	return ok
}

// ToCanonical converts value from the source unit into its canonical unit.
// The boolean is false when the unit is unknown or the value does not fit the
// unit; the value is then passed through unchanged.
// A nil value converts to a nil value in the canonical unit.
func ToCanonical(source string, value any) (Quantity, bool) {
	if value == nil {
		return Quantity{Unit: CanonicalUnit(source)}, true
	}

	switch source {
	case Text:
		return Quantity{Value: value}, true
	case Beaufort, BeaufortMin, BeaufortMax:
		f, ok := Number(value)
		if !ok {
			return Quantity{Value: value, Unit: source}, false
		}
		mode := BeaufortPoint
		if source == BeaufortMin {
			mode = BeaufortRangeMin
		} else if source == BeaufortMax {
			mode = BeaufortRangeMax
		}
		ms, ok := FromBeaufort(f, mode)
		if !ok {
			return Quantity{Unit: "m/s"}, false
		}
		return Quantity{Value: ms, Unit: "m/s"}, true
	case UnixDate:
		f, ok := Number(value)
		if !ok {
			return Quantity{Value: value, Unit: source}, false
		}
		return Quantity{Value: FormatUnixDate(f)}, true
	case GeoJSON, LatLng:
		pair, ok := toPair(value)
		if !ok {
			return Quantity{Value: value, Unit: source}, false
		}
		if source == GeoJSON {
			return Quantity{Value: Coordinate{Latitude: pair[1], Longitude: pair[0]}}, true
		}
		return Quantity{Value: Coordinate{Latitude: pair[0], Longitude: pair[1]}}, true
	}

	l, ok := linearUnits[source]
	if !ok {
		return Quantity{Value: value, Unit: source}, false
	}
	if source == "" {
		return Quantity{Value: value}, true
	}
	f, ok := Number(value)
	if !ok {
		return Quantity{Value: value, Unit: source}, false
	}
	return Quantity{Value: f*l.scale + l.offset, Unit: l.unit}, true
}

// ToDisplay converts a canonical value into target. An empty target keeps the
// canonical unit. Precision rounds the final numeric result to that many
// decimals; coordinate arrays are never rounded. The boolean is false when
// the conversion is not defined, in which case the value is returned as is.
func ToDisplay(unit string, value any, target string, precision int) (Quantity, bool) {
	if alias, ok := displayAliases[[2]string{unit, target}]; ok {
		target = alias
	}

	if value == nil {
		if target == "" {
			return Quantity{Unit: unit}, true
		}
		return Quantity{Unit: target}, true
	}

	switch target {
	case GeoJSON, LatLng:
		c, ok := toCoordinate(value)
		if !ok {
			return Quantity{Unit: target}, false
		}
		if target == GeoJSON {
			return Quantity{Value: []float64{c.Longitude, c.Latitude}, Unit: target}, true
		}
		return Quantity{Value: []float64{c.Latitude, c.Longitude}, Unit: target}, true
	case UnixDate, "s", "ms":
		if s, isString := value.(string); isString {
			ts, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return Quantity{Value: value, Unit: unit}, false
			}
			secs := float64(ts.UnixNano()) / 1e9
			if target == "ms" {
				return Quantity{Value: round(secs*1000, precision), Unit: target}, true
			}
			return Quantity{Value: round(secs, precision), Unit: target}, true
		}
	}

	if target == "" || target == unit {
		if f, ok := value.(float64); ok {
			return Quantity{Value: round(f, precision), Unit: unit}, true
		}
		return Quantity{Value: value, Unit: unit}, true
	}

	f, ok := Number(value)
	if !ok {
		return Quantity{Value: value, Unit: unit}, false
	}

	if target == Beaufort && unit == "m/s" {
		return Quantity{Value: float64(ToBeaufort(f)), Unit: Beaufort}, true
	}

	l, ok := linearUnits[target]
	if !ok || l.unit != unit {
		return Quantity{Value: value, Unit: unit}, false
	}
	return Quantity{Value: round((f-l.offset)/l.scale, precision), Unit: target}, true
}

// FormatUnixDate renders unix seconds as an ISO-8601 UTC timestamp with millisecond precision.
func FormatUnixDate(secs float64) string {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// FormatDMS renders a decimal coordinate as degrees, minutes and seconds.
func FormatDMS(coordinate float64) string {
	abs := math.Abs(coordinate)
	deg := math.Floor(abs)
	minutesRaw := (abs - deg) * 60
	minutes := math.Floor(minutesRaw)
	seconds := math.Floor((minutesRaw - minutes) * 60)
	return strconv.Itoa(int(deg)) + "°" + strconv.Itoa(int(minutes)) + "'" + strconv.Itoa(int(seconds)) + "\""
}

func round(v float64, precision int) float64 {
	if precision < 0 {
		return v
	}
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

// Number extracts a float from the numeric shapes a decoded JSON tree can hold.
// Numeric strings are accepted.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toPair(v any) ([2]float64, bool) {
	var out [2]float64
	switch p := v.(type) {
	case []float64:
		if len(p) < 2 {
			return out, false
		}
		out[0], out[1] = p[0], p[1]
		return out, true
	case []any:
		if len(p) < 2 {
			return out, false
		}
		a, okA := Number(p[0])
		b, okB := Number(p[1])
		if !okA || !okB {
			return out, false
		}
		out[0], out[1] = a, b
		return out, true
	default:
		return out, false
	}
}

func toCoordinate(v any) (Coordinate, bool) {
	switch c := v.(type) {
	case Coordinate:
		return c, true
	case *Coordinate:
		if c == nil {
			return Coordinate{}, false
		}
		return *c, true
	case map[string]any:
		lat, okLat := Number(c["latitude"])
		lon, okLon := Number(c["longitude"])
		if !okLat || !okLon {
			return Coordinate{}, false
		}
		return Coordinate{Latitude: lat, Longitude: lon}, true
	default:
		return Coordinate{}, false
	}
}
