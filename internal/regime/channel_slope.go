package regime

import (
	"github.com/trendgate/trendgate/internal/indicators"
	"github.com/trendgate/trendgate/internal/market"
)

// ChannelSlopeConfig holds thresholds for the Keltner-channel classifier
type ChannelSlopeConfig struct {
	EMAPeriod  int     `yaml:"ema_period"`  // Default: 20
	ATRPeriod  int     `yaml:"atr_period"`  // Default: 14
	Multiplier float64 `yaml:"multiplier"`  // Channel width in ATRs, default: 2.0
	FlatEps    float64 `yaml:"flat_eps"`    // Slope magnitude treated as flat
}

// DefaultChannelSlopeConfig returns production-ready classifier settings
func DefaultChannelSlopeConfig() ChannelSlopeConfig {
	return ChannelSlopeConfig{
		EMAPeriod:  20,
		ATRPeriod:  14,
		Multiplier: 2.0,
		FlatEps:    0.0001,
	}
}

// ChannelSlope classifies context from a Keltner channel (EMA of typical
// price +/- Multiplier*ATR) combined with the EMA slope over its last
// three values.
type ChannelSlope struct {
	cfg ChannelSlopeConfig
}

// NewChannelSlope creates a channel-slope classifier.
func NewChannelSlope(cfg ChannelSlopeConfig) *ChannelSlope {
	return &ChannelSlope{cfg: cfg}
}

type slope int

const (
	slopeFlat slope = iota
	slopeRising
	slopeFalling
)

// Classify implements Classifier.
func (c *ChannelSlope) Classify(bars []market.Bar) Context {
	if c.cfg.EMAPeriod <= 0 || c.cfg.ATRPeriod <= 0 || c.cfg.Multiplier <= 0 {
		return Undefined
	}
	minBars := c.cfg.EMAPeriod
	if c.cfg.ATRPeriod+1 > minBars {
		minBars = c.cfg.ATRPeriod + 1
	}
	if len(bars) < minBars {
		return Undefined
	}

	typical := make([]float64, len(bars))
	for i, b := range bars {
		typical[i] = b.Typical()
	}

	emaSeries := indicators.EMASeries(typical, c.cfg.EMAPeriod)
	if len(emaSeries) < 3 {
		return Undefined
	}

	atr := indicators.CalculateATR(bars, c.cfg.ATRPeriod)
	if !atr.IsValid {
		return Undefined
	}

	ema := emaSeries[len(emaSeries)-1]
	upper := ema + c.cfg.Multiplier*atr.Value
	lower := ema - c.cfg.Multiplier*atr.Value
	close := bars[len(bars)-1].Close

	sl := c.emaSlope(emaSeries)

	switch {
	case close > upper && sl == slopeRising:
		return TrendingUp
	case close < lower && sl == slopeFalling:
		return TrendingDown
	case close <= upper && close >= lower && sl == slopeFlat:
		return Ranging
	// Inside the channel with a sloping EMA still reports a full trend.
	// A pullback within a trend keeps the trend label; whether that was
	// the original author's intent is unconfirmed (see DESIGN.md), so
	// the behavior is reproduced as observed.
	case close <= upper && close >= lower && sl == slopeRising:
		return TrendingUp
	case close <= upper && close >= lower && sl == slopeFalling:
		return TrendingDown
	default:
		return Ranging
	}
}

// emaSlope grades the EMA direction over its last three values. Both
// steps must agree and at least one must exceed the flat epsilon.
func (c *ChannelSlope) emaSlope(series []float64) slope {
	n := len(series)
	d1 := series[n-2] - series[n-3]
	d2 := series[n-1] - series[n-2]

	if d1 >= 0 && d2 >= 0 && (d1 > c.cfg.FlatEps || d2 > c.cfg.FlatEps) {
		return slopeRising
	}
	if d1 <= 0 && d2 <= 0 && (d1 < -c.cfg.FlatEps || d2 < -c.cfg.FlatEps) {
		return slopeFalling
	}
	return slopeFlat
}
