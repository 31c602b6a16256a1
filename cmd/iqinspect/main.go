// Command iqinspect summarizes the channel files of an iqsim run directory.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/iqsim/internal/config"
	"github.com/banshee-data/iqsim/internal/dsp"
	"github.com/banshee-data/iqsim/internal/fsutil"
	"github.com/banshee-data/iqsim/internal/header"
	"github.com/banshee-data/iqsim/internal/sink"
	"github.com/banshee-data/iqsim/internal/version"
)

var (
	channelFlag = flag.Int("channel", 0, "Only inspect this 1-based channel (0 = all)")
	chirpFlag   = flag.Int("chirp", -1, "Chirp whose spectral peak is reported (-1 = last)")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

// channelData is every chirp of one channel.
type channelData struct {
	Channel int // 1-based
	I, Q    [][]int16
	Headers int
}

// runData is a decoded run directory.
type runData struct {
	Config   *config.RunConfig
	Format   string
	Channels []channelData
}

func loadParquet(fs fsutil.FileSystem, path string) (runData, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return runData{}, err
	}
	meta, err := sink.ParquetMetadata(data)
	if err != nil {
		return runData{}, err
	}
	cfg, err := config.ParseRunConfig(meta)
	if err != nil {
		return runData{}, err
	}
	chirps, err := sink.ReadParquet(data)
	if err != nil {
		return runData{}, err
	}

	run := runData{Config: cfg, Format: config.FormatParquet}
	for ch := 0; ch < sink.MaxParquetChannels; ch++ {
		cd := channelData{Channel: ch + 1}
		for _, blocks := range chirps {
			cd.I = append(cd.I, blocks[ch].I)
			cd.Q = append(cd.Q, blocks[ch].Q)
		}
		run.Channels = append(run.Channels, cd)
	}
	return run, nil
}

func loadBinary(fs fsutil.FileSystem, dir string) (runData, error) {
	manifest, err := fs.ReadFile(filepath.Join(dir, sink.ManifestName))
	if err != nil {
		return runData{}, fmt.Errorf("read manifest: %w", err)
	}
	cfg, err := config.ParseRunConfig(manifest)
	if err != nil {
		return runData{}, err
	}
	samples := int(math.Round(cfg.GetChirpDurationS() * cfg.GetADCSampleRateHz()))
	hdr := 0
	if cfg.GetEmitHeaders() {
		hdr = header.Size
	}

	run := runData{Config: cfg, Format: config.FormatBinary}
	for ch := 1; ; ch++ {
		iPaths, err := fs.Glob(filepath.Join(dir, fmt.Sprintf("CH%d_I_*.bin", ch)))
		if err != nil {
			return runData{}, err
		}
		qPaths, err := fs.Glob(filepath.Join(dir, fmt.Sprintf("CH%d_Q_*.bin", ch)))
		if err != nil {
			return runData{}, err
		}
		if len(iPaths) == 0 || len(qPaths) == 0 {
			break
		}

		cd := channelData{Channel: ch}
		var headers [][]byte
		if cd.I, headers, err = sink.ReadChannel(fs, iPaths[0], samples, hdr); err != nil {
			return runData{}, err
		}
		if cd.Q, _, err = sink.ReadChannel(fs, qPaths[0], samples, hdr); err != nil {
			return runData{}, err
		}
		cd.Headers = len(headers)
		run.Channels = append(run.Channels, cd)
	}
	if len(run.Channels) == 0 {
		return runData{}, fmt.Errorf("no channel files in %s", dir)
	}
	return run, nil
}

// loadRun decodes whichever output format dir holds.
func loadRun(fs fsutil.FileSystem, dir string) (runData, error) {
	pq := filepath.Join(dir, sink.ParquetName)
	if fs.Exists(pq) {
		return loadParquet(fs, pq)
	}
	return loadBinary(fs, dir)
}

func flatten(blocks [][]int16) []float64 {
	var out []float64
	for _, b := range blocks {
		for _, v := range b {
			out = append(out, float64(v))
		}
	}
	return out
}

// inspect prints one line per channel.
func inspect(w io.Writer, run runData, channel, chirp int) error {
	fsHz := run.Config.GetADCSampleRateHz()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CH\tCHIRPS\tHEADERS\tI MEAN\tI STD\tQ MEAN\tQ STD\tPOWER dB\tPEAK Hz\n")

	shown := 0
	for _, cd := range run.Channels {
		if channel != 0 && cd.Channel != channel {
			continue
		}
		shown++
		n := len(cd.I)
		if n == 0 {
			fmt.Fprintf(tw, "%d\t0\t%d\t-\t-\t-\t-\t-\t-\n", cd.Channel, cd.Headers)
			continue
		}
		iMean, iStd := stat.MeanStdDev(flatten(cd.I), nil)
		qMean, qStd := stat.MeanStdDev(flatten(cd.Q), nil)

		k := chirp
		if k < 0 || k >= n {
			k = n - 1
		}
		samples := dsp.Complex(cd.I[k], cd.Q[k])
		power := dsp.MeanPower(samples)
		powerDB := math.Inf(-1)
		if power > 0 {
			powerDB = 10 * math.Log10(power)
		}
		peak := dsp.PeakFrequency(samples, fsHz)
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\n",
			cd.Channel, n, cd.Headers, iMean, iStd, qMean, qStd, powerDB, peak)
	}
	if shown == 0 {
		return fmt.Errorf("channel %d not found", channel)
	}
	return tw.Flush()
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <run-dir>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println("iqinspect", version.String())
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	dir := flag.Arg(0)
	run, err := loadRun(fsutil.OSFileSystem{}, dir)
	if err != nil {
		log.Fatalf("failed to read %s: %v", dir, err)
	}
	fmt.Printf("%s: %s, %d channels, fs=%g Hz\n", dir, run.Format, len(run.Channels), run.Config.GetADCSampleRateHz())
	if err := inspect(os.Stdout, run, *channelFlag, *chirpFlag); err != nil {
		log.Fatal(err)
	}
}
