package confirm

import (
	"github.com/trendgate/trendgate/internal/indicators"
	"github.com/trendgate/trendgate/internal/market"
	"github.com/trendgate/trendgate/internal/regime"
)

// OscillatorConfig holds RSI filter thresholds
type OscillatorConfig struct {
	Period        int     `yaml:"period"`         // Default: 14
	BuyThreshold  float64 `yaml:"buy_threshold"`  // Confirm up-trend when RSI above, default: 55
	SellThreshold float64 `yaml:"sell_threshold"` // Confirm down-trend when RSI below, default: 45
}

// DefaultOscillatorConfig returns production-ready filter settings
func DefaultOscillatorConfig() OscillatorConfig {
	return OscillatorConfig{
		Period:        14,
		BuyThreshold:  55,
		SellThreshold: 45,
	}
}

// Oscillator confirms a trend context when an RSI-like oscillator agrees
// with the trend direction.
type Oscillator struct {
	cfg OscillatorConfig
}

// NewOscillator creates the oscillator-threshold filter.
func NewOscillator(cfg OscillatorConfig) *Oscillator {
	return &Oscillator{cfg: cfg}
}

func (o *Oscillator) Name() string { return "oscillator" }

// Confirms implements Filter.
func (o *Oscillator) Confirms(ctx regime.Context, bars []market.Bar) bool {
	rsi := indicators.CalculateRSI(closes(bars), o.cfg.Period)
	if !rsi.IsValid {
		return false
	}

	switch ctx {
	case regime.TrendingUp:
		return rsi.Value > o.cfg.BuyThreshold
	case regime.TrendingDown:
		return rsi.Value < o.cfg.SellThreshold
	default:
		return false
	}
}
