package regime

import (
	"testing"
	"time"

	"github.com/trendgate/trendgate/internal/market"
)

func seriesBars(closes []float64) []market.Bar {
	t0 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Open:      c, High: c + 0.0003, Low: c - 0.0003, Close: c,
		}
	}
	return bars
}

func TestMomentum_SpecExample(t *testing.T) {
	// close[now-10]=1.1000, close[now]=1.1025, pip 0.0001 => +25 pips
	closes := make([]float64, 11)
	for i := range closes {
		closes[i] = 1.1000 + float64(i)*0.00025
	}
	closes[0] = 1.1000
	closes[10] = 1.1025
	bars := seriesBars(closes)

	m := NewMomentum(MomentumConfig{Lookback: 10, ThresholdPips: 20, PipSize: 0.0001})
	if got := m.Classify(bars); got != TrendingUp {
		t.Errorf("25 pips vs threshold 20: expected trending_up, got %s", got)
	}

	m = NewMomentum(MomentumConfig{Lookback: 10, ThresholdPips: 30, PipSize: 0.0001})
	if got := m.Classify(bars); got != Ranging {
		t.Errorf("25 pips vs threshold 30: expected ranging, got %s", got)
	}
}

func TestMomentum_TrendingDown(t *testing.T) {
	closes := make([]float64, 11)
	for i := range closes {
		closes[i] = 1.1025 - float64(i)*0.00025
	}
	m := NewMomentum(MomentumConfig{Lookback: 10, ThresholdPips: 20, PipSize: 0.0001})
	if got := m.Classify(seriesBars(closes)); got != TrendingDown {
		t.Errorf("Expected trending_down, got %s", got)
	}
}

func TestMomentum_UndefinedCases(t *testing.T) {
	bars := seriesBars([]float64{1.1, 1.2, 1.3})

	cases := []struct {
		name string
		cfg  MomentumConfig
	}{
		{"short history", MomentumConfig{Lookback: 10, ThresholdPips: 20, PipSize: 0.0001}},
		{"zero pip size", MomentumConfig{Lookback: 2, ThresholdPips: 20, PipSize: 0}},
		{"zero lookback", MomentumConfig{Lookback: 0, ThresholdPips: 20, PipSize: 0.0001}},
	}
	for _, tc := range cases {
		if got := NewMomentum(tc.cfg).Classify(bars); got != Undefined {
			t.Errorf("%s: expected undefined, got %s", tc.name, got)
		}
	}
}

func TestChannelSlope_UndefinedOnShortHistory(t *testing.T) {
	c := NewChannelSlope(DefaultChannelSlopeConfig())
	for n := 0; n < 15; n++ {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 1.1000
		}
		if got := c.Classify(seriesBars(closes)); got != Undefined {
			t.Errorf("%d bars: expected undefined, got %s", n, got)
		}
	}
}

func TestChannelSlope_BreakoutUptrend(t *testing.T) {
	// Gentle base then a strong breakout: close above upper channel with
	// a rising EMA.
	closes := make([]float64, 40)
	for i := 0; i < 30; i++ {
		closes[i] = 1.1000
	}
	for i := 30; i < 40; i++ {
		closes[i] = closes[i-1] + 0.0020
	}

	cfg := DefaultChannelSlopeConfig()
	cfg.FlatEps = 0.00001
	c := NewChannelSlope(cfg)
	if got := c.Classify(seriesBars(closes)); got != TrendingUp {
		t.Errorf("Expected trending_up on breakout, got %s", got)
	}
}

func TestChannelSlope_BreakdownDowntrend(t *testing.T) {
	closes := make([]float64, 40)
	for i := 0; i < 30; i++ {
		closes[i] = 1.1000
	}
	for i := 30; i < 40; i++ {
		closes[i] = closes[i-1] - 0.0020
	}

	cfg := DefaultChannelSlopeConfig()
	cfg.FlatEps = 0.00001
	c := NewChannelSlope(cfg)
	if got := c.Classify(seriesBars(closes)); got != TrendingDown {
		t.Errorf("Expected trending_down on breakdown, got %s", got)
	}
}

func TestChannelSlope_FlatMarketRanges(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 1.1000
	}
	c := NewChannelSlope(DefaultChannelSlopeConfig())
	if got := c.Classify(seriesBars(closes)); got != Ranging {
		t.Errorf("Expected ranging in a flat market, got %s", got)
	}
}

func TestContext_Tradable(t *testing.T) {
	if Undefined.Tradable() || Ranging.Tradable() {
		t.Error("Undefined and ranging must not be tradable")
	}
	if !TrendingUp.Tradable() || !TrendingDown.Tradable() {
		t.Error("Trend contexts must be tradable")
	}
}
