// Command iqsim runs a radar scenario and writes the synthesized I/Q channels.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/banshee-data/iqsim/internal/api"
	"github.com/banshee-data/iqsim/internal/config"
	"github.com/banshee-data/iqsim/internal/db"
	"github.com/banshee-data/iqsim/internal/engine"
	"github.com/banshee-data/iqsim/internal/monitoring"
	"github.com/banshee-data/iqsim/internal/registry"
	"github.com/banshee-data/iqsim/internal/report"
	"github.com/banshee-data/iqsim/internal/sink"
	"github.com/banshee-data/iqsim/internal/version"
)

var (
	configPath  = flag.String("config", "", "Run configuration (.json, .yaml); defaults apply when empty")
	outDir      = flag.String("out", ".", "Directory the run directory is created in")
	seedFlag    = flag.String("seed", "", "Override the configured random seed")
	format      = flag.String("format", "", "Override the output format (bin or parquet)")
	workers     = flag.Int("workers", -1, "Override the synthesis worker count (0 = GOMAXPROCS)")
	dbPath      = flag.String("db", "", "Record ground truth to this SQLite database")
	plotsDir    = flag.String("plots", "", "Write PNG plots of the run to this directory")
	flightTime  = flag.Bool("flight-time", false, "Only compute the target flight time; no I/Q is written")
	listen      = flag.String("serve", "", "After the run, serve the database admin and chart routes on this address (requires -db)")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

// options carries everything simulate needs, resolved from the flags.
type options struct {
	Config     *config.RunConfig
	OutDir     string
	DB         *db.DB
	PlotsDir   string
	FlightTime bool
}

// summary is what a run produced.
type summary struct {
	RunID       string
	Result      engine.Result
	FlightTimeS float64
	Plots       []string
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig(path, seed, format string, workers int) (*config.RunConfig, error) {
	cfg := config.DefaultRunConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadRunConfig(path); err != nil {
			return nil, err
		}
	}
	if seed != "" {
		v, err := strconv.ParseUint(seed, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid seed %q: %v", config.ErrConfiguration, seed, err)
		}
		cfg.Seed = &v
	}
	if format != "" {
		cfg.OutputFormat = &format
	}
	if workers >= 0 {
		cfg.Workers = &workers
	}
	return cfg, cfg.Validate()
}

// sinkFactory opens the configured output format beneath root.
func sinkFactory(cfg *config.RunConfig, root string, metadata []byte) engine.SinkFactory {
	return func(channels int) (sink.Sink, error) {
		opts := sink.Options{
			Root:     root,
			RunName:  cfg.GetRunName(),
			Channels: channels,
			Metadata: metadata,
		}
		if cfg.GetOutputFormat() == config.FormatParquet {
			return sink.NewParquetSink(opts)
		}
		return sink.NewBinarySink(opts)
	}
}

// progressLogger reports every tenth of the run.
func progressLogger() engine.ProgressFunc {
	next := 0.1
	return func(elapsed, total float64) {
		if total <= 0 {
			return
		}
		frac := elapsed / total
		monitoring.Debugf("progress %.3f/%.3fs", elapsed, total)
		if frac+1e-9 >= next {
			monitoring.Logf("progress: %3.0f%% (%.2fs of %.2fs)", frac*100, elapsed, total)
			for next <= frac+1e-9 {
				next += 0.1
			}
		}
	}
}

func simulate(opts options) (summary, error) {
	cfg := opts.Config
	metadata, err := json.Marshal(cfg)
	if err != nil {
		return summary{}, fmt.Errorf("failed to encode run config: %w", err)
	}

	var out summary
	engineOpts := []engine.Option{
		engine.WithSink(sinkFactory(cfg, opts.OutDir, metadata)),
		engine.WithProgress(progressLogger()),
	}

	var mem *engine.MemoryRecorder
	var rec *db.Recorder
	if opts.DB != nil {
		if out.RunID, err = opts.DB.StartRun(cfg.GetSeed(), metadata); err != nil {
			return out, err
		}
		rec = opts.DB.NewRecorder(out.RunID)
		engineOpts = append(engineOpts, engine.WithRecorder(rec))
	} else if opts.PlotsDir != "" {
		mem = &engine.MemoryRecorder{}
		engineOpts = append(engineOpts, engine.WithRecorder(mem))
	}

	d, err := engine.FromConfig(cfg, registry.Default(), engineOpts...)
	if err != nil {
		if opts.DB != nil {
			_ = opts.DB.FinishRun(out.RunID, engine.Result{ImpactS: -1}, err)
		}
		return out, err
	}

	var runErr error
	if opts.FlightTime {
		out.FlightTimeS, runErr = d.FlightTime()
		out.Result = engine.Result{
			Ticks:    int(math.Round(out.FlightTimeS / cfg.GetTimeStepS())),
			ElapsedS: out.FlightTimeS,
			ImpactS:  out.FlightTimeS,
		}
		if runErr != nil {
			out.Result.ImpactS = -1
		}
	} else {
		out.Result, runErr = d.Run()
	}

	if rec != nil {
		// The recorder holds the only connection's transaction; release it
		// before the run row is updated.
		if err := rec.Close(); err != nil && runErr == nil {
			runErr = err
		}
		if err := opts.DB.FinishRun(out.RunID, out.Result, runErr); err != nil {
			log.Printf("failed to finish run %s: %v", out.RunID, err)
		}
	}
	if runErr != nil {
		return out, runErr
	}

	if opts.PlotsDir != "" {
		var run report.Run
		if opts.DB != nil {
			if run, err = report.FromDB(opts.DB, out.RunID); err != nil {
				return out, fmt.Errorf("failed to load run for plots: %w", err)
			}
		} else {
			name := "iqsim"
			if out.Result.Dir != "" {
				name = filepath.Base(out.Result.Dir)
			}
			run = report.FromRecorder(name, mem)
		}
		if out.Plots, err = report.WritePlots(run, opts.PlotsDir); err != nil {
			return out, fmt.Errorf("failed to write plots: %w", err)
		}
	}
	return out, nil
}

// adminMux mounts the runs API, chart pages and the database admin routes.
func adminMux(store *db.DB) (*http.ServeMux, error) {
	mux := api.NewServer(store).ServeMux()
	if err := store.AttachAdminRoutes(mux); err != nil {
		return nil, err
	}
	return mux, nil
}

func serve(ctx context.Context, addr string, h http.Handler) {
	server := &http.Server{
		Addr:    addr,
		Handler: h,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()
	log.Printf("serving admin routes on %s", addr)

	<-ctx.Done()
	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("iqsim", version.String())
		return
	}
	monitoring.SetVerbose(*verbose)
	if *listen != "" && *dbPath == "" {
		log.Fatal("-serve requires -db")
	}

	cfg, err := loadConfig(*configPath, *seedFlag, *format, *workers)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	opts := options{
		Config:     cfg,
		OutDir:     *outDir,
		PlotsDir:   *plotsDir,
		FlightTime: *flightTime,
	}
	if *dbPath != "" {
		store, err := db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer store.Close()
		opts.DB = store
	}

	start := time.Now()
	res, err := simulate(opts)
	switch {
	case errors.Is(err, config.ErrConfiguration):
		log.Fatalf("invalid configuration: %v", err)
	case errors.Is(err, engine.ErrFlightTimeExceeded):
		log.Fatalf("%v", err)
	case err != nil:
		log.Fatalf("run failed: %v", err)
	}

	if opts.FlightTime {
		fmt.Printf("flight time: %.3f s\n", res.FlightTimeS)
	} else {
		log.Printf("run complete: %d ticks, %d chirps, %.2fs simulated in %s",
			res.Result.Ticks, res.Result.Chirps, res.Result.ElapsedS, time.Since(start).Round(time.Millisecond))
		if res.Result.ImpactS >= 0 {
			log.Printf("target inactive at %.3fs", res.Result.ImpactS)
		}
		if res.Result.Dir != "" {
			fmt.Println(res.Result.Dir)
		}
	}
	if res.RunID != "" {
		log.Printf("ground truth recorded as run %s", res.RunID)
	}
	for _, p := range res.Plots {
		log.Printf("wrote %s", p)
	}

	if *listen != "" {
		mux, err := adminMux(opts.DB)
		if err != nil {
			log.Fatalf("failed to attach admin routes: %v", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		serve(ctx, *listen, api.LoggingMiddleware(mux))
	}
}
