package antenna

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewGeometryPartition(t *testing.T) {
	p := DefaultGimbalParams()
	g, err := NewGeometry(p.MountOffset, 0.1, p.Elements, p.CWChannels, p.FMCWChannels)
	require.NoError(t, err)

	assert.Equal(t, 8, g.NumChannels())
	for i := 0; i < 4; i++ {
		assert.Equal(t, ModeCW, g.ChannelMode(i))
	}
	for i := 4; i < 8; i++ {
		assert.Equal(t, ModeFMCW, g.ChannelMode(i))
	}
	assert.Equal(t, Mode(0), g.ChannelMode(8))
}

func TestNewGeometryRejects(t *testing.T) {
	elems := []r3.Vec{{}, {X: 1}, {X: 2}}
	tests := []struct {
		name     string
		elements []r3.Vec
		cw, fmcw []int
	}{
		{"no elements", nil, nil, nil},
		{"overlap", elems, []int{0, 1}, []int{1, 2}},
		{"missing", elems, []int{0}, []int{2}},
		{"out of range", elems, []int{0, 1, 2}, []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGeometry(r3.Vec{}, 0.1, tt.elements, tt.cw, tt.fmcw)
			assert.Error(t, err)
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "CW", ModeCW.String())
	assert.Equal(t, "FMCW", ModeFMCW.String())
	assert.Equal(t, "Mode(9)", Mode(9).String())
}
