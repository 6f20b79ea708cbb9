package units

import "math"

const (
	lapseRate       = 0.0065
	barometricPower = 5.257
)

// StationPressure reduces a sea-level pressure (Pa) to the pressure at a station
// elevation (m) with the station temperature (K).
func StationPressure(seaLevel, elevation, temperature float64) float64 {
	return seaLevel * math.Pow(1-lapseRate*elevation/(temperature+lapseRate*elevation), barometricPower)
}

// SeaLevelPressure is the inverse of StationPressure for the same elevation and temperature.
func SeaLevelPressure(station, elevation, temperature float64) float64 {
	return station * math.Pow(1-lapseRate*elevation/(temperature+lapseRate*elevation), -barometricPower)
}
