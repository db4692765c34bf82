package units

import "math"

// Conversion factors from metres per second.
const (
	MSToKmh   = 3.6
	MSToKnots = 1.94384
)

// ToKmh converts a speed in metres per second to kilometres per hour.
func ToKmh(ms float64) float64 {
	return ms * MSToKmh
}

// ToKnots converts a speed in metres per second to knots.
func ToKnots(ms float64) float64 {
	return ms * MSToKnots
}

// KmhToMS converts a speed in kilometres per hour back to metres per second.
// Providers reporting wind in km/h are reduced to m/s first so that km/h and
// knots are always derived from the same canonical reading.
func KmhToMS(kmh float64) float64 {
	return kmh / MSToKmh
}

// Round1 rounds to one decimal place. Policy: half away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
