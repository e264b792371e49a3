package confirm

import (
	"github.com/trendgate/trendgate/internal/indicators"
	"github.com/trendgate/trendgate/internal/market"
	"github.com/trendgate/trendgate/internal/regime"
)

// CrossoverConfig holds the MACD/EMA/ADX filter thresholds
type CrossoverConfig struct {
	FastPeriod     int     `yaml:"fast_period"`     // Default: 12
	SlowPeriod     int     `yaml:"slow_period"`     // Default: 26
	SignalPeriod   int     `yaml:"signal_period"`   // Default: 9
	TrendEMAPeriod int     `yaml:"trend_ema_period"` // Default: 100
	ADXPeriod      int     `yaml:"adx_period"`      // Default: 14
	MinADX         float64 `yaml:"min_adx"`         // Minimum trend strength, default: 25
}

// DefaultCrossoverConfig returns production-ready filter settings
func DefaultCrossoverConfig() CrossoverConfig {
	return CrossoverConfig{
		FastPeriod:     12,
		SlowPeriod:     26,
		SignalPeriod:   9,
		TrendEMAPeriod: 100,
		ADXPeriod:      14,
		MinADX:         25,
	}
}

// Crossover confirms a trend only when trend strength (ADX) is adequate,
// the MACD line crosses its signal between the previous and current bar
// in the trend direction, and price closes on the correct side of a
// long-period trend EMA.
type Crossover struct {
	cfg CrossoverConfig
}

// NewCrossover creates the crossover-with-strength filter.
func NewCrossover(cfg CrossoverConfig) *Crossover {
	return &Crossover{cfg: cfg}
}

func (c *Crossover) Name() string { return "crossover" }

// Confirms implements Filter.
func (c *Crossover) Confirms(ctx regime.Context, bars []market.Bar) bool {
	if !ctx.Tradable() {
		return false
	}

	adx := indicators.CalculateADX(bars, c.cfg.ADXPeriod)
	if !adx.IsValid || adx.ADX < c.cfg.MinADX {
		return false
	}

	prices := closes(bars)
	macd := indicators.CalculateMACD(prices, c.cfg.FastPeriod, c.cfg.SlowPeriod, c.cfg.SignalPeriod)
	if !macd.IsValid {
		return false
	}

	trendEMA := indicators.CalculateEMA(prices, c.cfg.TrendEMAPeriod)
	if !trendEMA.IsValid {
		return false
	}
	close := prices[len(prices)-1]

	if ctx == regime.TrendingUp {
		crossedUp := macd.PrevLine <= macd.PrevSignal && macd.Line > macd.Signal
		return crossedUp && close > trendEMA.Value
	}

	crossedDown := macd.PrevLine >= macd.PrevSignal && macd.Line < macd.Signal
	return crossedDown && close < trendEMA.Value
}
