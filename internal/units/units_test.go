package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAngleConversions(t *testing.T) {
	tests := []struct {
		name string
		deg  float64
		rad  float64
	}{
		{"zero", 0, 0},
		{"right angle", 90, math.Pi / 2},
		{"half turn", 180, math.Pi},
		{"negative", -45, -math.Pi / 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.rad, DegToRad(tt.deg), 1e-12)
			assert.InDelta(t, tt.deg, RadToDeg(tt.rad), 1e-9)
		})
	}
}

func TestDecibelConversions(t *testing.T) {
	assert.InDelta(t, 1.0, DBToLinear(0), 1e-12)
	assert.InDelta(t, 100.0, DBToLinear(20), 1e-9)
	assert.InDelta(t, 0.5, DBToLinear(-3.0103), 1e-4)
	assert.InDelta(t, 20.0, LinearToDB(100), 1e-9)
	assert.True(t, math.IsInf(LinearToDB(0), -1))
	assert.True(t, math.IsInf(LinearToDB(-1), -1))
}

func TestWavelength(t *testing.T) {
	assert.InDelta(t, 0.0286882, Wavelength(10.45e9), 1e-6)
	assert.Equal(t, 0.0, Wavelength(0))
	assert.Equal(t, 0.0, Wavelength(-5))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(3, -1, 1))
	assert.Equal(t, -1.0, Clamp(-3, -1, 1))
	assert.Equal(t, 0.25, Clamp(0.25, -1, 1))
}
