package exits

import (
	"github.com/trendgate/trendgate/internal/market"
)

// TrailingConfig contains trailing stop configuration
type TrailingConfig struct {
	DistancePips float64 `yaml:"distance_pips"` // 0 disables trailing
}

// DefaultTrailingConfig returns production-ready trailing settings
func DefaultTrailingConfig() TrailingConfig {
	return TrailingConfig{DistancePips: 15}
}

// TrailingStopManager ratchets protective stops as price moves
// favorably. Stops are monotonic: a buy stop never moves down, a sell
// stop never moves up, and neither crosses to the profitable side of
// entry until price has first cleared it. Re-evaluating without price
// movement is an idempotent no-op.
type TrailingStopManager struct {
	config TrailingConfig
	meta   market.SymbolMeta
	label  string
}

// NewTrailingStopManager creates a trailing manager for one engine's
// positions, identified by label and symbol.
func NewTrailingStopManager(config TrailingConfig, meta market.SymbolMeta, label string) *TrailingStopManager {
	return &TrailingStopManager{config: config, meta: meta, label: label}
}

// Evaluate recomputes stops for every matching open position against the
// current quote. Each qualifying position yields exactly one intent;
// positions failing the monotonic-improvement condition are untouched.
func (t *TrailingStopManager) Evaluate(positions []market.Position, quote market.Quote) []market.StopIntent {
	if t.config.DistancePips <= 0 || t.meta.PipSize <= 0 {
		return nil
	}

	distance := t.config.DistancePips * t.meta.PipSize
	var intents []market.StopIntent

	for _, pos := range positions {
		if pos.Label != t.label || pos.Symbol != t.meta.Symbol {
			continue
		}

		var candidate float64
		improved := false

		switch pos.Side {
		case market.Buy:
			candidate = t.meta.RoundPrice(quote.Bid - distance)
			improved = candidate > pos.EntryPrice && (pos.StopLoss == 0 || candidate > pos.StopLoss)
		case market.Sell:
			candidate = t.meta.RoundPrice(quote.Ask + distance)
			improved = candidate < pos.EntryPrice && (pos.StopLoss == 0 || candidate < pos.StopLoss)
		}

		if improved {
			intents = append(intents, market.StopIntent{
				PositionID:  pos.ID,
				NewStopLoss: candidate,
			})
		}
	}

	return intents
}
