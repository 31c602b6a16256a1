package header

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/iqsim/internal/antenna"
)

func TestEncodeDefaultLayout(t *testing.T) {
	d, err := NewDoppler(DefaultDopplerParams())
	require.NoError(t, err)
	d.Start(time.Date(2024, 3, 1, 13, 59, 58, 900*int(time.Millisecond), time.UTC), 0.25)

	seq := uint32(0x00012345)
	b := d.Encode(Fields{Channel: 3, Mode: antenna.ModeFMCW, IQ: Quadrature, Sequence: seq})
	require.Len(t, b, Size)

	assert.Equal(t, []byte{0x34, 0x12, 0x78, 0x56, 0xBC, 0x9A, 0xF0, 0xDE}, b[:8])

	word := func(i int) uint16 { return binary.LittleEndian.Uint16(b[8+2*i:]) }
	assert.Equal(t, uint16(3), word(0), "channel")
	assert.Equal(t, ModeCodeFMCW, word(1), "mode")
	assert.Equal(t, uint16(0), word(2), "profile")
	assert.Equal(t, uint16(1), word(3), "iq")
	assert.Equal(t, uint16(0x0001), word(4), "seq hi")
	assert.Equal(t, uint16(0x2345), word(5), "seq lo")

	// 0x12345 chirps of 0.25 s = 18641.25 s = 5h10m41.25s after 13:59:58.900.
	assert.Equal(t, uint16(19), word(6), "hour")
	assert.Equal(t, uint16(10), word(7), "minute")
	assert.Equal(t, uint16(40), word(8), "second")
	assert.Equal(t, uint16(150), word(9), "millisecond")
	assert.Equal(t, uint16(1), word(10), "parity")

	assert.Equal(t, []byte{0, 0, 0, 0}, b[30:34], "reserved")
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(b[34:]), "collection mode")
	assert.Equal(t, make([]byte, Size-36), b[36:], "padding")
}

func TestEncodeCustomSTX(t *testing.T) {
	d, err := NewDoppler(DopplerParams{STXHex: "0xAABB", Profile: 7, CollectionMode: 9})
	require.NoError(t, err)
	d.Start(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 0.001)

	b := d.Encode(Fields{Channel: 1, Mode: antenna.ModeCW, IQ: InPhase, Sequence: 2})
	assert.Equal(t, []byte{0xAA, 0xBB}, b[:2])
	assert.Equal(t, ModeCodeCW, binary.LittleEndian.Uint16(b[4:]))
	assert.Equal(t, uint16(7), binary.LittleEndian.Uint16(b[6:]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(b[20:]), "millisecond")
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(b[22:]), "even chirp")
	assert.Equal(t, uint16(9), binary.LittleEndian.Uint16(b[28:]))
}

func TestSTXLimits(t *testing.T) {
	long := make([]byte, MaxSTXLen)
	for i := range long {
		long[i] = 0xFF
	}
	hexOf := func(b []byte) string {
		const digits = "0123456789abcdef"
		out := make([]byte, 0, 2*len(b))
		for _, c := range b {
			out = append(out, digits[c>>4], digits[c&0xF])
		}
		return string(out)
	}

	d, err := NewDoppler(DopplerParams{STXHex: hexOf(long)})
	require.NoError(t, err)
	b := d.Encode(Fields{Channel: 8})
	assert.Equal(t, long, b[:MaxSTXLen])
	assert.Equal(t, uint16(8), binary.LittleEndian.Uint16(b[MaxSTXLen:]))

	_, err = NewDoppler(DopplerParams{STXHex: hexOf(append(long, 0x01))})
	assert.Error(t, err)
	_, err = NewDoppler(DopplerParams{STXHex: "zz"})
	assert.Error(t, err)
}

func TestModeCode(t *testing.T) {
	assert.Equal(t, uint16(1), ModeCode(antenna.ModeCW))
	assert.Equal(t, uint16(4), ModeCode(antenna.ModeFMCW))
	assert.Equal(t, uint16(0), ModeCode(antenna.Mode(0)))
	assert.Equal(t, "Q", Quadrature.String())
}
