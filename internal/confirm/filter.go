package confirm

import (
	"github.com/trendgate/trendgate/internal/market"
	"github.com/trendgate/trendgate/internal/regime"
)

// Filter is an optional confirmation layer gating a raw context signal.
// Implementations compute whatever indicators they need from the primary
// bar history. Absence of a filter is the Unconditional variant.
type Filter interface {
	Confirms(ctx regime.Context, bars []market.Bar) bool
	Name() string
}

// Unconditional confirms every tradable context.
type Unconditional struct{}

func (Unconditional) Name() string { return "unconditional" }

func (Unconditional) Confirms(ctx regime.Context, _ []market.Bar) bool {
	return ctx.Tradable()
}

func closes(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
