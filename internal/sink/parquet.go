package sink

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/segmentio/parquet-go"

	"github.com/banshee-data/iqsim/internal/iq"
	"github.com/banshee-data/iqsim/internal/monitoring"
)

// ParquetName is the table written by ParquetSink.
const ParquetName = "iq.parquet"

// MaxParquetChannels is the number of I/Q column pairs in Row.
const MaxParquetChannels = 8

// Row is one ADC sample across every channel. Channels beyond the array are
// left zero.
type Row struct {
	Chirp  int32 `parquet:"chirp"`
	Sample int32 `parquet:"sample"`
	I1     int32 `parquet:"I1"`
	Q1     int32 `parquet:"Q1"`
	I2     int32 `parquet:"I2"`
	Q2     int32 `parquet:"Q2"`
	I3     int32 `parquet:"I3"`
	Q3     int32 `parquet:"Q3"`
	I4     int32 `parquet:"I4"`
	Q4     int32 `parquet:"Q4"`
	I5     int32 `parquet:"I5"`
	Q5     int32 `parquet:"Q5"`
	I6     int32 `parquet:"I6"`
	Q6     int32 `parquet:"Q6"`
	I7     int32 `parquet:"I7"`
	Q7     int32 `parquet:"Q7"`
	I8     int32 `parquet:"I8"`
	Q8     int32 `parquet:"Q8"`
}

// Channel returns the I and Q sample of a 0-based channel.
func (r *Row) Channel(ch int) (i, q int32) {
	switch ch {
	case 0:
		return r.I1, r.Q1
	case 1:
		return r.I2, r.Q2
	case 2:
		return r.I3, r.Q3
	case 3:
		return r.I4, r.Q4
	case 4:
		return r.I5, r.Q5
	case 5:
		return r.I6, r.Q6
	case 6:
		return r.I7, r.Q7
	case 7:
		return r.I8, r.Q8
	}
	return 0, 0
}

func (r *Row) set(ch int, i, q int16) {
	ii, qq := int32(i), int32(q)
	switch ch {
	case 0:
		r.I1, r.Q1 = ii, qq
	case 1:
		r.I2, r.Q2 = ii, qq
	case 2:
		r.I3, r.Q3 = ii, qq
	case 3:
		r.I4, r.Q4 = ii, qq
	case 4:
		r.I5, r.Q5 = ii, qq
	case 5:
		r.I6, r.Q6 = ii, qq
	case 6:
		r.I7, r.Q7 = ii, qq
	case 7:
		r.I8, r.Q8 = ii, qq
	}
}

// ParquetSink writes every chirp into one parquet table with the run
// configuration as key/value metadata. Chirp headers have no column and are
// dropped.
type ParquetSink struct {
	dir      string
	channels int
	wc       io.WriteCloser
	writer   *parquet.GenericWriter[Row]
	rows     []Row
	closed   bool
}

// NewParquetSink creates the run directory and the table.
func NewParquetSink(opts Options) (*ParquetSink, error) {
	opts.defaults()
	if opts.Channels <= 0 || opts.Channels > MaxParquetChannels {
		return nil, fmt.Errorf("parquet sink supports 1..%d channels, got %d", MaxParquetChannels, opts.Channels)
	}
	dir, _, err := opts.runDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, ParquetName)
	wc, err := opts.FS.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	meta := "{}"
	if len(opts.Metadata) > 0 {
		meta = string(opts.Metadata)
	}
	monitoring.Logf("writing parquet table %s", path)
	return &ParquetSink{
		dir:      dir,
		channels: opts.Channels,
		wc:       wc,
		writer:   parquet.NewGenericWriter[Row](wc, parquet.KeyValueMetadata("config", meta)),
	}, nil
}

func (s *ParquetSink) Dir() string { return s.dir }

func (s *ParquetSink) WriteChirp(c Chirp) error {
	if s.closed {
		return ErrClosed
	}
	if err := checkChirp(c, s.channels); err != nil {
		return err
	}
	n := len(c.Blocks[0].I)
	for _, b := range c.Blocks {
		if len(b.I) != n {
			return fmt.Errorf("chirp %d: channels disagree on sample count", c.Sequence)
		}
	}

	if cap(s.rows) < n {
		s.rows = make([]Row, n)
	}
	rows := s.rows[:n]
	for k := range rows {
		rows[k] = Row{Chirp: int32(c.Sequence), Sample: int32(k)}
	}
	for ch, b := range c.Blocks {
		for k := range rows {
			rows[k].set(ch, b.I[k], b.Q[k])
		}
	}
	if _, err := s.writer.Write(rows); err != nil {
		return fmt.Errorf("write chirp %d: %w", c.Sequence, err)
	}
	return nil
}

// Close finishes the table and closes the file.
func (s *ParquetSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.writer.Close(); err != nil {
		s.wc.Close()
		return fmt.Errorf("finish parquet: %w", err)
	}
	return s.wc.Close()
}

// ReadParquet decodes a table written by ParquetSink into per-chirp blocks.
func ReadParquet(data []byte) ([][]iq.Block, error) {
	rows, err := parquet.Read[Row](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}

	var chirps [][]iq.Block
	for _, r := range rows {
		for int(r.Chirp) >= len(chirps) {
			blocks := make([]iq.Block, MaxParquetChannels)
			for ch := range blocks {
				blocks[ch].Channel = ch
			}
			chirps = append(chirps, blocks)
		}
		blocks := chirps[r.Chirp]
		for ch := range blocks {
			i, q := r.Channel(ch)
			blocks[ch].I = append(blocks[ch].I, int16(i))
			blocks[ch].Q = append(blocks[ch].Q, int16(q))
		}
	}
	return chirps, nil
}

// ParquetMetadata returns the run configuration stored in a table's key/value
// metadata.
func ParquetMetadata(data []byte) ([]byte, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	meta, ok := f.Lookup("config")
	if !ok {
		return nil, fmt.Errorf("parquet table has no config metadata")
	}
	return []byte(meta), nil
}
