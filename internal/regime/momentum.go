package regime

import "github.com/trendgate/trendgate/internal/market"

// MomentumConfig holds thresholds for the N-bar momentum classifier
type MomentumConfig struct {
	Lookback      int     `yaml:"lookback"`       // Bars between the two closes, default: 10
	ThresholdPips float64 `yaml:"threshold_pips"` // Minimum move to call a trend, default: 20
	PipSize       float64 `yaml:"pip_size"`       // Instrument pip size, e.g. 0.0001
}

// DefaultMomentumConfig returns production-ready classifier settings
func DefaultMomentumConfig(pipSize float64) MomentumConfig {
	return MomentumConfig{
		Lookback:      10,
		ThresholdPips: 20,
		PipSize:       pipSize,
	}
}

// Momentum classifies context from the close-to-close move over the
// lookback window, expressed in pips against a fixed threshold.
type Momentum struct {
	cfg MomentumConfig
}

// NewMomentum creates a momentum-threshold classifier.
func NewMomentum(cfg MomentumConfig) *Momentum {
	return &Momentum{cfg: cfg}
}

// Classify implements Classifier.
func (m *Momentum) Classify(bars []market.Bar) Context {
	if m.cfg.Lookback < 1 || m.cfg.PipSize <= 0 {
		return Undefined
	}
	if len(bars) < m.cfg.Lookback+1 {
		return Undefined
	}

	now := bars[len(bars)-1].Close
	then := bars[len(bars)-1-m.cfg.Lookback].Close
	changePips := (now - then) / m.cfg.PipSize

	switch {
	case changePips > m.cfg.ThresholdPips:
		return TrendingUp
	case changePips < -m.cfg.ThresholdPips:
		return TrendingDown
	default:
		return Ranging
	}
}
