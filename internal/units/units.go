// Package units provides conversions between the sensor feed's SI units and
// the units the ingestion service expects, plus great-circle distance.
package units

import "math"

// Conversion factors. The feed reports speeds in m/s, angles in radians,
// temperatures in kelvin and pressures in pascals.
const (
	metersPerSecondPerKnot = 1.94384
	degreesPerRadian       = 57.2958
)

// round1 rounds to one decimal place, matching the precision the ingestion
// service stores.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// MetersPerSecondToKnots converts a speed in m/s to knots, rounded to one
// decimal.
func MetersPerSecondToKnots(ms float64) float64 {
	return round1(ms * metersPerSecondPerKnot)
}

// RadiansToDegrees converts an angle in radians to degrees, rounded to one
// decimal.
func RadiansToDegrees(rad float64) float64 {
	return round1(rad * degreesPerRadian)
}

// KelvinToCelsius converts a temperature in kelvin to degrees Celsius,
// rounded to one decimal.
func KelvinToCelsius(k float64) float64 {
	return round1(k - 273.15)
}

// PascalsToHectopascals converts a pressure in Pa to hPa, rounded to one
// decimal.
func PascalsToHectopascals(pa float64) float64 {
	return round1(pa / 100)
}

// RatioToPercent converts a 0..1 ratio to a percentage.
func RatioToPercent(v float64) float64 {
	return v * 100
}

// DistanceNM returns the great-circle distance in nautical miles between two
// lat/lon points given in degrees. Identical coordinates return exactly zero.
func DistanceNM(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	radLat1 := math.Pi * lat1 / 180
	radLat2 := math.Pi * lat2 / 180
	radTheta := math.Pi * (lon1 - lon2) / 180
	d := math.Sin(radLat1)*math.Sin(radLat2) + math.Cos(radLat1)*math.Cos(radLat2)*math.Cos(radTheta)
	// Guard against acos domain errors from floating point drift.
	if d > 1 {
		d = 1
	}
	d = math.Acos(d)
	d = d * 180 / math.Pi
	// Arc degrees to statute miles, then statute to nautical.
	d = d * 60 * 1.1515
	return d * 0.8684
}
