// Package header encodes the fixed-size record that precedes each channel's
// sample block when chirp headers are enabled.
package header

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/iqsim/internal/antenna"
	"github.com/banshee-data/iqsim/internal/timeutil"
)

// Size is the encoded header length in bytes.
const Size = 128

// Fixed-field layout after the start-of-text marker: eleven uint16 words,
// four reserved bytes, then the collection-mode word.
const (
	fieldWords    = 11
	reservedBytes = 4
	fixedBytes    = fieldWords*2 + reservedBytes + 2

	// MaxSTXLen is the longest start-of-text marker that leaves room for the
	// fixed fields.
	MaxSTXLen = Size - fixedBytes
)

// IQ identifies which half of a sample block follows.
type IQ uint16

const (
	InPhase    IQ = 0
	Quadrature IQ = 1
)

func (q IQ) String() string {
	if q == Quadrature {
		return "Q"
	}
	return "I"
}

// Mode codes as written on the wire.
const (
	ModeCodeCW   uint16 = 1
	ModeCodeFMCW uint16 = 4
)

// ModeCode maps an antenna channel mode to its header code. Unknown modes
// encode as 0.
func ModeCode(m antenna.Mode) uint16 {
	switch m {
	case antenna.ModeCW:
		return ModeCodeCW
	case antenna.ModeFMCW:
		return ModeCodeFMCW
	}
	return 0
}

// Fields vary per chirp and channel.
type Fields struct {
	Channel  int
	Mode     antenna.Mode
	IQ       IQ
	Sequence uint32
}

// Formatter produces chirp headers. Start fixes the time base: chirp n is
// stamped base + n*period seconds.
type Formatter interface {
	Start(base time.Time, periodS float64)
	Encode(f Fields) [Size]byte
}

// DefaultSTX is the marker written when none is configured, as its
// little-endian bytes.
const DefaultSTX uint64 = 0xDEF09ABC56781234

// DopplerParams configures the Doppler header layout.
type DopplerParams struct {
	// STXHex overrides the marker. Empty selects DefaultSTX.
	STXHex         string `json:"stx_hex,omitempty"`
	Profile        uint16 `json:"profile"`
	CollectionMode uint16 `json:"collection_mode"`
}

// DefaultDopplerParams returns the stock layout.
func DefaultDopplerParams() DopplerParams {
	return DopplerParams{CollectionMode: 2}
}

// STX decodes the configured marker.
func (p DopplerParams) STX() ([]byte, error) {
	if p.STXHex == "" {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, DefaultSTX)
		return b, nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(p.STXHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("stx_hex: %w", err)
	}
	if len(b) == 0 || len(b) > MaxSTXLen {
		return nil, fmt.Errorf("stx_hex must decode to 1..%d bytes, got %d", MaxSTXLen, len(b))
	}
	return b, nil
}

// Doppler writes the 128-byte little-endian chirp header.
type Doppler struct {
	stx            []byte
	profile        uint16
	collectionMode uint16
	base           time.Time
	period         float64
}

// NewDoppler validates p.
func NewDoppler(p DopplerParams) (*Doppler, error) {
	stx, err := p.STX()
	if err != nil {
		return nil, err
	}
	return &Doppler{stx: stx, profile: p.Profile, collectionMode: p.CollectionMode}, nil
}

func (d *Doppler) Start(base time.Time, periodS float64) {
	d.base = base
	d.period = periodS
}

// Timestamp is the wall time stamped on chirp seq.
func (d *Doppler) Timestamp(seq uint32) time.Time {
	return d.base.Add(timeutil.SecondsToDuration(d.period * float64(seq)))
}

func (d *Doppler) Encode(f Fields) [Size]byte {
	var out [Size]byte
	n := copy(out[:], d.stx)

	h, m, s, ms := timeutil.TimeOfDay(d.Timestamp(f.Sequence))
	words := [fieldWords]uint16{
		uint16(f.Channel),
		ModeCode(f.Mode),
		d.profile,
		uint16(f.IQ),
		uint16(f.Sequence >> 16),
		uint16(f.Sequence & 0xFFFF),
		uint16(h),
		uint16(m),
		uint16(s),
		uint16(ms),
		uint16(f.Sequence % 2),
	}
	for _, w := range words {
		binary.LittleEndian.PutUint16(out[n:], w)
		n += 2
	}
	n += reservedBytes
	binary.LittleEndian.PutUint16(out[n:], d.collectionMode)
	return out
}
