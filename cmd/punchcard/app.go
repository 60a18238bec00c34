package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/config"
	"github.com/san-kum/punchcard/internal/hardware"
	"github.com/san-kum/punchcard/internal/history"
	"github.com/san-kum/punchcard/internal/logging"
	"github.com/san-kum/punchcard/internal/pipeline"
	"github.com/san-kum/punchcard/internal/render"
	"github.com/san-kum/punchcard/internal/storage"
)

const defaultConfigName = "config.yaml"

// loadConfig reads the config file (explicit, or config.yaml in the data
// directory if present), applies the preset and then any flags that were
// set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	path := configFile
	if path == "" {
		candidate := filepath.Join(dataDir, defaultConfigName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if preset != "" && !cfg.ApplyPreset(preset) {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.PresetNames())
	}

	flags := cmd.Flags()
	if flags.Changed("kind") {
		cfg.Animation.Kind = kind
	}
	if flags.Changed("duration") {
		cfg.Animation.DurationMs = config.Millis(durationMs)
	}
	if flags.Changed("policy") {
		cfg.Animation.Supersede = policy
	}
	if flags.Changed("hardware") {
		cfg.Hardware.Driver = hwDriver
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. When w is nil logs go to the
// configured file, or stderr.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, io.Closer, error) {
	var closer io.Closer
	if w == nil {
		w = os.Stderr
		if cfg.Log.File != "" {
			f, err := logging.OpenFile(cfg.Log.File)
			if err != nil {
				return nil, nil, err
			}
			w, closer = f, f
		}
	}
	logger := logging.New(logging.Options{
		Level:   cfg.Log.SlogLevel(),
		Format:  cfg.Log.Format,
		Writer:  w,
		Journal: cfg.Log.Journal,
	})
	return logger, closer, nil
}

// archive is a history backend that can also be listed.
type archive interface {
	pipeline.History
	Recent(ctx context.Context, limit int) ([]pipeline.Entry, error)
}

func openHistory(cfg *config.Config) (archive, error) {
	switch cfg.History.Driver {
	case config.HistorySQLite:
		path := cfg.History.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dataDir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		db, err := history.Open(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.HistoryFiles:
		st := storage.New(filepath.Join(dataDir, "cards"), cfg.Layout())
		if err := st.Init(); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, nil
	}
}

func openHardware(cfg *config.Config) (*hardware.Sink, error) {
	layout := cfg.Layout()
	hw := cfg.Hardware
	switch hw.Driver {
	case config.HardwarePanel:
		m := hardware.NewPanel(layout.Rows, layout.Cols, time.Duration(hw.LatencyMs)*time.Millisecond)
		return hardware.NewSink("panel", m), nil
	case config.HardwareShiftReg:
		m, err := hardware.OpenShiftRegister(hardware.Pins{
			Data:  hw.DataPin,
			Clock: hw.ClockPin,
			Latch: hw.LatchPin,
		}, layout.Rows, layout.Cols, hw.Invert)
		if err != nil {
			return nil, err
		}
		return hardware.NewSink("shiftreg", m), nil
	default:
		return nil, nil
	}
}

// app is one wired pipeline with its renderer and backends.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	params   animate.Params
	pipeline *pipeline.Pipeline
	renderer *render.Renderer
	history  archive
	hw       *hardware.Sink
	logFile  io.Closer
}

// newApp wires a pipeline that publishes to gui (may be nil) and to the
// configured hardware. logTo overrides the log destination.
func newApp(ctx context.Context, cfg *config.Config, gui render.Sink, logTo io.Writer, observers ...pipeline.Observer) (*app, error) {
	logger, logFile, err := newLogger(cfg, logTo)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logger, logFile: logFile}

	opts, err := cfg.PipelineOptions()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.params = opts.Animation

	if a.hw, err = openHardware(cfg); err != nil {
		a.Close()
		return nil, fmt.Errorf("open hardware: %w", err)
	}
	if a.history, err = openHistory(cfg); err != nil {
		a.Close()
		return nil, fmt.Errorf("open history: %w", err)
	}

	var hwSink render.Sink
	if a.hw != nil {
		hwSink = a.hw
	}
	var p *pipeline.Pipeline
	a.renderer = render.New(gui, hwSink, render.Options{
		MinInterval: cfg.HardwareInterval(),
		OnFailure:   func(e *render.SinkWriteError) { p.SinkFailed(e) },
		Logger:      logger,
	})

	options := []pipeline.Option{pipeline.WithLogger(logger)}
	if a.history != nil {
		options = append(options, pipeline.WithHistory(a.history))
	}
	for _, o := range observers {
		options = append(options, pipeline.WithObserver(o))
	}
	p = pipeline.New(animate.NewEngine(cfg.Timing()), a.renderer, opts, options...)
	a.pipeline = p

	a.renderer.Start(ctx)
	logger.Info("punchcard ready",
		slog.String("animation", opts.Animation.Kind.String()),
		slog.String("policy", opts.Policy.String()),
		slog.String("hardware", cfg.Hardware.Driver),
		slog.String("history", cfg.History.Driver),
	)
	return a, nil
}

// Close stops the renderer after its last hardware write, then releases
// the hardware and history.
func (a *app) Close() error {
	var errs []error
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.hw != nil {
		errs = append(errs, a.hw.Close())
	}
	if c, ok := a.history.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}
