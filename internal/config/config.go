// Package config loads punchcard settings from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/card"
	"github.com/san-kum/punchcard/internal/codec"
	"github.com/san-kum/punchcard/internal/pipeline"
)

const (
	DefaultKind                  = "slide"
	DefaultFrameIntervalMs       = 33
	DefaultHardwareIntervalMs    = 100
	DefaultTypewriterMsPerColumn = 15
	DefaultRows                  = 12
	DefaultCols                  = 80
	DefaultPort                  = 8080
)

type Config struct {
	Animation AnimationConfig `yaml:"animation"`
	Grid      GridConfig      `yaml:"grid"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	History   HistoryConfig   `yaml:"history"`
	HTTP      HTTPConfig      `yaml:"http"`
	Inbox     InboxConfig     `yaml:"inbox"`
	Log       LogConfig       `yaml:"log"`
}

type AnimationConfig struct {
	Kind                  string `yaml:"kind"`
	// DurationMs overrides the per-kind duration. Unset means the kind's
	// default; when set it must be positive.
	DurationMs            *int   `yaml:"duration_ms,omitempty"`
	FrameIntervalMs       int    `yaml:"frame_interval_ms"`
	HardwareIntervalMs    int    `yaml:"hardware_interval_ms"`
	TypewriterMsPerColumn int    `yaml:"typewriter_ms_per_column"`
	SlideMs               int    `yaml:"slide_ms"`
	FadeMs                int    `yaml:"fade_ms"`
	Easing                string `yaml:"easing"`
	Supersede             string `yaml:"supersede"`
	QueueLimit            int    `yaml:"queue_limit"`
	FoldCase              bool   `yaml:"fold_case"`
}

type GridConfig struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

type HardwareConfig struct {
	Driver string `yaml:"driver"`
	// Shift-register pins, by periph.io name (e.g. GPIO17).
	DataPin  string `yaml:"data_pin"`
	ClockPin string `yaml:"clock_pin"`
	LatchPin string `yaml:"latch_pin"`
	Invert   bool   `yaml:"invert"`
	// Simulated panel only.
	LatencyMs int `yaml:"latency_ms"`
}

type HistoryConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type InboxConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	File    string `yaml:"file"`
	Journal bool   `yaml:"journal"`
}

const (
	HardwareNone     = "none"
	HardwarePanel    = "panel"
	HardwareShiftReg = "shiftreg"

	HistoryNone   = "none"
	HistorySQLite = "sqlite"
	HistoryFiles  = "files"
)

func DefaultConfig() *Config {
	return &Config{
		Animation: AnimationConfig{
			Kind:                  DefaultKind,
			FrameIntervalMs:       DefaultFrameIntervalMs,
			HardwareIntervalMs:    DefaultHardwareIntervalMs,
			TypewriterMsPerColumn: DefaultTypewriterMsPerColumn,
			SlideMs:               int(animate.DefaultSlide / time.Millisecond),
			FadeMs:                int(animate.DefaultFade / time.Millisecond),
			Easing:                "linear",
			Supersede:             "cancel",
			QueueLimit:            pipeline.DefaultQueueLimit,
			FoldCase:              true,
		},
		Grid: GridConfig{Rows: DefaultRows, Cols: DefaultCols},
		Hardware: HardwareConfig{
			Driver:   HardwareNone,
			DataPin:  "GPIO17",
			ClockPin: "GPIO27",
			LatchPin: "GPIO22",
		},
		History: HistoryConfig{Driver: HistorySQLite, Path: "history.db"},
		HTTP:    HTTPConfig{Port: DefaultPort},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over DefaultConfig, expanding ${VAR} references, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Animation.Validate(); err != nil {
		return fmt.Errorf("animation: %w", err)
	}
	if err := c.Grid.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if err := c.Hardware.Validate(); err != nil {
		return fmt.Errorf("hardware: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return c.Log.Validate()
}

func (c *AnimationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required, validation.In("instant", "slide", "fade", "typewriter")),
		validation.Field(&c.DurationMs, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&c.FrameIntervalMs, validation.Required, validation.Min(1)),
		validation.Field(&c.HardwareIntervalMs, validation.Min(0)),
		validation.Field(&c.TypewriterMsPerColumn, validation.Required, validation.Min(1)),
		validation.Field(&c.SlideMs, validation.Required, validation.Min(1)),
		validation.Field(&c.FadeMs, validation.Required, validation.Min(1)),
		validation.Field(&c.Easing, validation.In("", "linear", "ease-in-out", "ease-out")),
		validation.Field(&c.Supersede, validation.In("", "cancel", "queue")),
		validation.Field(&c.QueueLimit, validation.Min(0)),
	)
}

func (c *GridConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Rows, validation.Required, validation.Min(codec.Rows)),
		validation.Field(&c.Cols, validation.Required, validation.Min(1)),
	)
}

func (c *HardwareConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In("", HardwareNone, HardwarePanel, HardwareShiftReg)),
		validation.Field(&c.LatencyMs, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.Driver != HardwareShiftReg {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.DataPin, validation.Required),
		validation.Field(&c.ClockPin, validation.Required),
		validation.Field(&c.LatchPin, validation.Required),
	)
}

func (c *HistoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In("", HistoryNone, HistorySQLite, HistoryFiles)),
		validation.Field(&c.Path, validation.When(c.Driver == HistorySQLite || c.Driver == HistoryFiles, validation.Required)),
	)
}

func (c *HTTPConfig) Address() string { return fmt.Sprintf(":%d", c.Port) }

func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.In("", "debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.In("", "text", "json")),
	)
}

// SlogLevel maps the configured level name.
func (c *LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func (c *Config) Layout() card.Layout {
	return card.Layout{Rows: c.Grid.Rows, Cols: c.Grid.Cols}
}

func (c *Config) Timing() animate.Timing {
	return animate.Timing{
		Slide:               time.Duration(c.Animation.SlideMs) * time.Millisecond,
		Fade:                time.Duration(c.Animation.FadeMs) * time.Millisecond,
		TypewriterPerColumn: time.Duration(c.Animation.TypewriterMsPerColumn) * time.Millisecond,
	}
}

// Millis returns a duration_ms value.
func Millis(ms int) *int { return &ms }

// Params resolves the configured animation. Without duration_ms the
// kind's default from Timing is used.
func (c *Config) Params() (animate.Params, error) {
	kind, err := animate.ParseKind(c.Animation.Kind)
	if err != nil {
		return animate.Params{}, err
	}
	easing, err := animate.ParseEasing(c.Animation.Easing)
	if err != nil {
		return animate.Params{}, err
	}
	p := animate.Params{Kind: kind, Easing: easing}
	if c.Animation.DurationMs != nil {
		p.Duration = time.Duration(*c.Animation.DurationMs) * time.Millisecond
	}
	return c.Timing().Resolve(c.Layout(), p), nil
}

// PipelineOptions assembles everything the pipeline needs from c.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	params, err := c.Params()
	if err != nil {
		return pipeline.Options{}, err
	}
	policy, err := pipeline.ParsePolicy(c.Animation.Supersede)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Layout:        c.Layout(),
		Animation:     params,
		FrameInterval: time.Duration(c.Animation.FrameIntervalMs) * time.Millisecond,
		Policy:        policy,
		QueueLimit:    c.Animation.QueueLimit,
		FoldCase:      c.Animation.FoldCase,
	}, nil
}

func (c *Config) HardwareInterval() time.Duration {
	return time.Duration(c.Animation.HardwareIntervalMs) * time.Millisecond
}
