// Package transform holds the numeric conversions applied to point records
// before serialization: luminosity/magnitude math and unit conversions
// between parsecs and meters.
package transform

import "math"

// SunAbsMag is the absolute visual magnitude of the Sun, the zero point
// for luminosity-relative magnitude math.
const SunAbsMag = 4.83

// MetersPerParsec converts parsec-unit positions to meters for assets
// that express positions in SI units.
const MetersPerParsec = 3.0856775814913673e16

// AbsMagFromLuminosity returns the absolute magnitude of a point with the
// given luminosity in solar units. Luminosity must be positive; NaN is
// returned otherwise so callers can detect and skip the record.
func AbsMagFromLuminosity(lum float64) float64 {
	if lum <= 0 {
		return math.NaN()
	}
	return SunAbsMag - 2.5*math.Log10(lum)
}

// LuminosityFromAbsMag inverts AbsMagFromLuminosity.
func LuminosityFromAbsMag(absmag float64) float64 {
	return math.Pow(10, (SunAbsMag-absmag)/2.5)
}

// AppMagFromAbsMag returns the apparent magnitude of a point with absolute
// magnitude absmag at a distance of distParsecs. Distances at or below
// zero yield NaN.
func AppMagFromAbsMag(absmag, distParsecs float64) float64 {
	if distParsecs <= 0 {
		return math.NaN()
	}
	return absmag + 5*(math.Log10(distParsecs)-1)
}

// ParsecsToMeters converts a parsec distance to meters.
func ParsecsToMeters(pc float64) float64 {
	return pc * MetersPerParsec
}

// MetersToParsecs converts a meter distance to parsecs.
func MetersToParsecs(m float64) float64 {
	return m / MetersPerParsec
}
