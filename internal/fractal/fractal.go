package fractal

import (
	"time"

	"github.com/trendgate/trendgate/internal/market"
)

// Kind selects which extremum a fractal scan looks for.
type Kind int

const (
	UpFractal   Kind = iota // Strict local high
	DownFractal             // Strict local low
)

func (k Kind) String() string {
	switch k {
	case UpFractal:
		return "up_fractal"
	case DownFractal:
		return "down_fractal"
	default:
		return "unknown"
	}
}

// Level is a fractal price level on the higher timeframe.
type Level struct {
	Price float64   `json:"price"`
	Time  time.Time `json:"time"`
	Kind  Kind      `json:"kind"`
}

// Find scans backward from the most recent eligible bar and returns the
// first bar whose high (up) or low (down) is a strict extremum over the
// window bars on each side, or nil when none qualifies.
func Find(bars []market.Bar, window int, kind Kind) *Level {
	if window < 1 || len(bars) < 2*window+1 {
		return nil
	}

	for i := len(bars) - 1 - window; i >= window; i-- {
		if isExtremum(bars, i, window, kind) {
			price := bars[i].High
			if kind == DownFractal {
				price = bars[i].Low
			}
			return &Level{Price: price, Time: bars[i].Timestamp, Kind: kind}
		}
	}
	return nil
}

func isExtremum(bars []market.Bar, i, window int, kind Kind) bool {
	for j := i - window; j <= i+window; j++ {
		if j == i {
			continue
		}
		switch kind {
		case UpFractal:
			if bars[j].High >= bars[i].High {
				return false
			}
		case DownFractal:
			if bars[j].Low <= bars[i].Low {
				return false
			}
		}
	}
	return true
}
