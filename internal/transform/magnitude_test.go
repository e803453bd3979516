package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbsMagFromLuminosity(t *testing.T) {
	// A one-solar-luminosity point has the Sun's absolute magnitude.
	assert.InDelta(t, SunAbsMag, AbsMagFromLuminosity(1.0), 1e-12)

	// 100x the Sun is exactly 5 magnitudes brighter.
	assert.InDelta(t, SunAbsMag-5.0, AbsMagFromLuminosity(100.0), 1e-12)

	// Non-positive luminosity is not a value, not zero.
	assert.True(t, math.IsNaN(AbsMagFromLuminosity(0)))
	assert.True(t, math.IsNaN(AbsMagFromLuminosity(-3)))
}

func TestMagnitudeRoundTrip(t *testing.T) {
	for _, lum := range []float64{0.001, 0.5, 1.0, 10.0, 1e6} {
		got := LuminosityFromAbsMag(AbsMagFromLuminosity(lum))
		assert.InEpsilon(t, lum, got, 1e-12, "lum=%v", lum)
	}
}

func TestAppMagFromAbsMag(t *testing.T) {
	// At exactly 10 parsecs apparent equals absolute.
	assert.InDelta(t, -20.0, AppMagFromAbsMag(-20.0, 10.0), 1e-12)

	// 100 parsecs adds 5 magnitudes.
	assert.InDelta(t, -15.0, AppMagFromAbsMag(-20.0, 100.0), 1e-12)

	assert.True(t, math.IsNaN(AppMagFromAbsMag(-20.0, 0)))
}

func TestParsecConversion(t *testing.T) {
	assert.InDelta(t, MetersPerParsec, ParsecsToMeters(1.0), 1.0)
	assert.InEpsilon(t, 2.5, MetersToParsecs(ParsecsToMeters(2.5)), 1e-15)
}
