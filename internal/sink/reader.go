package sink

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/iqsim/internal/fsutil"
)

// ReadChannel reads one channel file back as per-chirp sample blocks. When
// headerSize is non-zero each block is preceded by a header of that size,
// which is returned alongside the samples.
func ReadChannel(fs fsutil.FileSystem, path string, numSamples, headerSize int) (blocks [][]int16, headers [][]byte, err error) {
	if numSamples <= 0 {
		return nil, nil, fmt.Errorf("numSamples must be positive, got %d", numSamples)
	}
	if headerSize < 0 {
		return nil, nil, fmt.Errorf("headerSize must be non-negative, got %d", headerSize)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	stride := headerSize + 2*numSamples
	if len(data)%stride != 0 {
		return nil, nil, fmt.Errorf("%s: %d bytes is not a whole number of %d-byte chirps", path, len(data), stride)
	}

	for off := 0; off < len(data); off += stride {
		if headerSize > 0 {
			headers = append(headers, data[off:off+headerSize])
		}
		raw := data[off+headerSize : off+stride]
		samples := make([]int16, numSamples)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
		}
		blocks = append(blocks, samples)
	}
	return blocks, headers, nil
}
