package sink

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/iqsim/internal/header"
	"github.com/banshee-data/iqsim/internal/iq"
	"github.com/banshee-data/iqsim/internal/monitoring"
	"github.com/banshee-data/iqsim/internal/timeutil"
)

// ManifestName is the file holding the run configuration in a binary run.
const ManifestName = "run.json"

// FileName returns the sample file name for a channel (1-based) and component.
func FileName(channel int, comp header.IQ, stamp string) string {
	return fmt.Sprintf("CH%d_%s_%s_00001.bin", channel, comp, stamp)
}

type channelFile struct {
	path string
	wc   io.WriteCloser
	bw   *bufio.Writer
	buf  []byte
}

func (f *channelFile) write(hdr *[header.Size]byte, samples []int16) error {
	if hdr != nil {
		if _, err := f.bw.Write(hdr[:]); err != nil {
			return err
		}
	}
	if cap(f.buf) < 2*len(samples) {
		f.buf = make([]byte, 2*len(samples))
	}
	b := f.buf[:2*len(samples)]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	_, err := f.bw.Write(b)
	return err
}

func (f *channelFile) close() error {
	ferr := f.bw.Flush()
	cerr := f.wc.Close()
	if ferr != nil {
		return fmt.Errorf("flush %s: %w", f.path, ferr)
	}
	if cerr != nil {
		return fmt.Errorf("close %s: %w", f.path, cerr)
	}
	return nil
}

// BinarySink writes CH{n}_I_* and CH{n}_Q_* files for every channel. All files
// are opened up front; channels are written concurrently and every write
// completes before WriteChirp returns.
type BinarySink struct {
	dir    string
	files  [][2]*channelFile
	closed bool
}

// NewBinarySink creates the run directory and opens every channel file. On
// failure any file already opened is closed.
func NewBinarySink(opts Options) (*BinarySink, error) {
	opts.defaults()
	if opts.Channels <= 0 {
		return nil, fmt.Errorf("binary sink needs at least one channel")
	}
	dir, start, err := opts.runDir()
	if err != nil {
		return nil, err
	}
	stamp := start.Format(timeutil.FileStampLayout)

	s := &BinarySink{dir: dir, files: make([][2]*channelFile, opts.Channels)}
	for ch := range s.files {
		for _, comp := range []header.IQ{header.InPhase, header.Quadrature} {
			path := filepath.Join(dir, FileName(ch+1, comp, stamp))
			wc, err := opts.FS.Create(path)
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("open channel file: %w", err)
			}
			s.files[ch][comp] = &channelFile{path: path, wc: wc, bw: bufio.NewWriterSize(wc, 1<<16)}
		}
	}

	if len(opts.Metadata) > 0 {
		if err := writeManifest(opts, dir); err != nil {
			s.Close()
			return nil, err
		}
	}
	monitoring.Logf("writing %d channel files to %s", 2*opts.Channels, dir)
	return s, nil
}

func writeManifest(opts Options, dir string) error {
	wc, err := opts.FS.Create(filepath.Join(dir, ManifestName))
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	if _, err := wc.Write(opts.Metadata); err != nil {
		wc.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	return wc.Close()
}

func (s *BinarySink) Dir() string { return s.dir }

// Paths lists the open files in channel order, I before Q.
func (s *BinarySink) Paths() []string {
	var out []string
	for _, pair := range s.files {
		for _, f := range pair {
			if f != nil {
				out = append(out, f.path)
			}
		}
	}
	return out
}

func (s *BinarySink) WriteChirp(c Chirp) error {
	if s.closed {
		return ErrClosed
	}
	if err := checkChirp(c, len(s.files)); err != nil {
		return err
	}

	var g errgroup.Group
	for ch, b := range c.Blocks {
		var hdr *[2][header.Size]byte
		if c.Headers != nil {
			hdr = &c.Headers[ch]
		}
		g.Go(func() error { return s.writeChannel(ch, b, hdr) })
	}
	return g.Wait()
}

func (s *BinarySink) writeChannel(ch int, b iq.Block, hdr *[2][header.Size]byte) error {
	var hi, hq *[header.Size]byte
	if hdr != nil {
		hi, hq = &hdr[header.InPhase], &hdr[header.Quadrature]
	}
	if err := s.files[ch][header.InPhase].write(hi, b.I); err != nil {
		return fmt.Errorf("write %s: %w", s.files[ch][header.InPhase].path, err)
	}
	if err := s.files[ch][header.Quadrature].write(hq, b.Q); err != nil {
		return fmt.Errorf("write %s: %w", s.files[ch][header.Quadrature].path, err)
	}
	return nil
}

// Close flushes and closes every file, reporting all failures.
func (s *BinarySink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for _, pair := range s.files {
		for _, f := range pair {
			if f == nil {
				continue
			}
			if err := f.close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
