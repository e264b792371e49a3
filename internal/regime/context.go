package regime

import "github.com/trendgate/trendgate/internal/market"

// Context represents the current market context classification
type Context int

const (
	Undefined Context = iota
	TrendingUp
	TrendingDown
	Ranging
)

func (c Context) String() string {
	switch c {
	case Undefined:
		return "undefined"
	case TrendingUp:
		return "trending_up"
	case TrendingDown:
		return "trending_down"
	case Ranging:
		return "ranging"
	default:
		return "unknown"
	}
}

// Tradable reports whether the context can justify opening a position.
// Undefined is the sentinel for insufficient data and is never tradable.
func (c Context) Tradable() bool {
	return c == TrendingUp || c == TrendingDown
}

// Classifier maps recent bar history to a market context. Strategies are
// interchangeable policies selected by configuration.
type Classifier interface {
	Classify(bars []market.Bar) Context
}
