package units

import "math"

// BeaufortMode selects how a wind force is turned into a speed.
type BeaufortMode int

const (
	// BeaufortPoint uses the empirical 0.836·B^1.5 estimate.
	BeaufortPoint BeaufortMode = iota
	// BeaufortRangeMin returns the lower bound of the force's tabulated band.
	BeaufortRangeMin
	// BeaufortRangeMax returns the upper bound of the force's tabulated band.
	BeaufortRangeMax
)

type beaufortBand struct {
	min, max float64
}

// beaufortScale holds the band limits in m/s for forces 0-12.
var beaufortScale = [13]beaufortBand{
	{0.0, 0.3},
	{0.3, 1.6},
	{1.6, 3.4},
	{3.4, 5.5},
	{5.5, 8.0},
	{8.0, 10.8},
	{10.8, 13.9},
	{13.9, 17.2},
	{17.2, 20.8},
	{20.8, 24.5},
	{24.5, 28.5},
	{28.5, 32.7},
	{32.7, 99.9},
}

const beaufortFactor = 0.8360

// FromBeaufort returns the wind speed in m/s for a Beaufort force.
// Range modes only accept whole forces 0 through 12.
func FromBeaufort(force float64, mode BeaufortMode) (float64, bool) {
	if math.IsNaN(force) || force < 0 {
		return 0, false
	}
	switch mode {
	case BeaufortRangeMin, BeaufortRangeMax:
		if force > 12 || force != math.Trunc(force) {
			return 0, false
		}
		band := beaufortScale[int(force)]
		if mode == BeaufortRangeMin {
			return band.min, true
		}
		return band.max, true
	default:
		return beaufortFactor * math.Pow(force, 1.5), true
	}
}

// ToBeaufort returns the nearest Beaufort force for a wind speed in m/s.
func ToBeaufort(speed float64) int {
	if speed <= 0 || math.IsNaN(speed) {
		return 0
	}
	return int(math.Round(math.Pow(speed/beaufortFactor, 2.0/3.0)))
}
