package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trendgate/trendgate/internal/confirm"
	"github.com/trendgate/trendgate/internal/exits"
	"github.com/trendgate/trendgate/internal/fractal"
	"github.com/trendgate/trendgate/internal/gates"
	"github.com/trendgate/trendgate/internal/market"
	"github.com/trendgate/trendgate/internal/regime"
	"github.com/trendgate/trendgate/internal/risk"
)

// Config is the full engine configuration tree.
type Config struct {
	Label   string            `yaml:"label"`
	Symbol  market.SymbolMeta `yaml:"symbol"`
	History HistoryConfig     `yaml:"history"`
	Regime  RegimeConfig      `yaml:"regime"`
	Filter  FilterConfig      `yaml:"filter"`
	Fractal FractalConfig     `yaml:"fractal"`

	Admission gates.Config         `yaml:"admission"`
	Risk      risk.Parameters      `yaml:"risk"`
	Trailing  exits.TrailingConfig `yaml:"trailing"`

	Feed     FeedConfig     `yaml:"feed"`
	Journal  JournalConfig  `yaml:"journal"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// HistoryConfig sizes the bar buffers.
type HistoryConfig struct {
	PrimaryCapacity int `yaml:"primary_capacity"` // Default: 500
	HigherCapacity  int `yaml:"higher_capacity"`  // Default: 200
}

// RegimeConfig selects and parameterizes the context classifier.
type RegimeConfig struct {
	Strategy     string                    `yaml:"strategy"` // "channel_slope" or "momentum"
	ChannelSlope regime.ChannelSlopeConfig `yaml:"channel_slope"`
	Momentum     regime.MomentumConfig     `yaml:"momentum"`
}

// FilterConfig selects and parameterizes the confirmation filter.
type FilterConfig struct {
	Kind       string                   `yaml:"kind"` // "none", "oscillator", "crossover"
	Oscillator confirm.OscillatorConfig `yaml:"oscillator"`
	Crossover  confirm.CrossoverConfig  `yaml:"crossover"`
}

// FractalConfig parameterizes the breakout-reaction machine.
type FractalConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Window         int     `yaml:"window"`
	ReactionPct    float64 `yaml:"reaction_pct"`
	TimeoutMinutes int     `yaml:"timeout_minutes"`
}

// MachineConfig converts the yaml-friendly fields into the machine's
// runtime configuration.
func (f FractalConfig) MachineConfig() fractal.Config {
	return fractal.Config{
		Window:      f.Window,
		ReactionPct: f.ReactionPct,
		Timeout:     time.Duration(f.TimeoutMinutes) * time.Minute,
	}
}

// FeedConfig configures bar ingestion for the host shells.
type FeedConfig struct {
	PrimaryCSV   string  `yaml:"primary_csv"`
	HigherCSV    string  `yaml:"higher_csv"`
	WebsocketURL string  `yaml:"websocket_url"`
	RatePerSec   float64 `yaml:"rate_per_sec"` // Read rate limit for the stream client
}

// JournalConfig configures the Postgres intent journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// SnapshotConfig configures the Redis diagnostics publisher.
type SnapshotConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Key        string `yaml:"key"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// HTTPConfig configures the diagnostics HTTP surface.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a production-ready configuration for a EURUSD-style
// instrument.
func Default() *Config {
	return &Config{
		Label: "trendgate-eurusd",
		Symbol: market.SymbolMeta{
			Symbol:     "EURUSD",
			PipSize:    0.0001,
			PipValue:   0.0001,
			Digits:     5,
			VolumeMin:  1000,
			VolumeMax:  10000000,
			VolumeStep: 1000,
		},
		History: HistoryConfig{
			PrimaryCapacity: 500,
			HigherCapacity:  200,
		},
		Regime: RegimeConfig{
			Strategy:     "channel_slope",
			ChannelSlope: regime.DefaultChannelSlopeConfig(),
			Momentum:     regime.DefaultMomentumConfig(0.0001),
		},
		Filter: FilterConfig{
			Kind:       "oscillator",
			Oscillator: confirm.DefaultOscillatorConfig(),
			Crossover:  confirm.DefaultCrossoverConfig(),
		},
		Fractal: FractalConfig{
			Enabled:        true,
			Window:         2,
			ReactionPct:    0.1,
			TimeoutMinutes: 240,
		},
		Admission: *gates.DefaultConfig(),
		Risk:      risk.DefaultParameters(),
		Trailing:  exits.DefaultTrailingConfig(),
		Snapshot: SnapshotConfig{
			Key:        "trendgate:diagnostics",
			TTLSeconds: 300,
		},
		HTTP: HTTPConfig{
			Addr: ":8093",
		},
	}
}

// Load reads a configuration file, layering it over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for safety and consistency and
// returns all findings.
func (c *Config) Validate() []string {
	var errors []string

	if c.Label == "" {
		errors = append(errors, "label must not be empty")
	}
	if c.Symbol.PipSize <= 0 {
		errors = append(errors, fmt.Sprintf("symbol pip size %.6f must be positive", c.Symbol.PipSize))
	}
	if c.Symbol.VolumeStep <= 0 {
		errors = append(errors, fmt.Sprintf("symbol volume step %.2f must be positive", c.Symbol.VolumeStep))
	}
	if c.History.PrimaryCapacity <= 0 {
		errors = append(errors, fmt.Sprintf("primary history capacity %d must be positive", c.History.PrimaryCapacity))
	}
	if c.Fractal.Enabled && c.History.HigherCapacity <= 0 {
		errors = append(errors, fmt.Sprintf("higher history capacity %d must be positive when the fractal path is enabled", c.History.HigherCapacity))
	}

	switch c.Regime.Strategy {
	case "channel_slope", "momentum":
	default:
		errors = append(errors, fmt.Sprintf("unknown regime strategy %q", c.Regime.Strategy))
	}

	switch c.Filter.Kind {
	case "none", "oscillator", "crossover":
	default:
		errors = append(errors, fmt.Sprintf("unknown filter kind %q", c.Filter.Kind))
	}

	if c.Risk.RiskPercent <= 0 || c.Risk.RiskPercent > 100 {
		errors = append(errors, fmt.Sprintf("risk percent %.2f outside (0, 100]", c.Risk.RiskPercent))
	}
	if c.Risk.StopLossPips <= 0 {
		errors = append(errors, fmt.Sprintf("stop loss %.1f pips must be positive", c.Risk.StopLossPips))
	}

	if c.Fractal.Enabled {
		if c.Fractal.Window < 1 {
			errors = append(errors, fmt.Sprintf("fractal window %d must be at least 1", c.Fractal.Window))
		}
		if c.Fractal.ReactionPct <= 0 {
			errors = append(errors, fmt.Sprintf("fractal reaction %.2f%% must be positive", c.Fractal.ReactionPct))
		}
		if c.Fractal.TimeoutMinutes <= 0 {
			errors = append(errors, fmt.Sprintf("fractal timeout %d minutes must be positive", c.Fractal.TimeoutMinutes))
		}
	}

	if c.Journal.Enabled && c.Journal.DSN == "" {
		errors = append(errors, "journal enabled without a DSN")
	}
	if c.Snapshot.Enabled && c.Snapshot.Addr == "" {
		errors = append(errors, "snapshot enabled without a redis address")
	}

	return errors
}

// Classifier builds the configured context classifier.
func (c *Config) Classifier() regime.Classifier {
	if c.Regime.Strategy == "momentum" {
		mc := c.Regime.Momentum
		if mc.PipSize <= 0 {
			mc.PipSize = c.Symbol.PipSize
		}
		return regime.NewMomentum(mc)
	}
	return regime.NewChannelSlope(c.Regime.ChannelSlope)
}

// ConfirmationFilter builds the configured signal filter.
func (c *Config) ConfirmationFilter() confirm.Filter {
	switch c.Filter.Kind {
	case "oscillator":
		return confirm.NewOscillator(c.Filter.Oscillator)
	case "crossover":
		return confirm.NewCrossover(c.Filter.Crossover)
	default:
		return confirm.Unconditional{}
	}
}
