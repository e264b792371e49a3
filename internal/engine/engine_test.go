package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendgate/trendgate/internal/config"
	"github.com/trendgate/trendgate/internal/market"
)

var t0 = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

// testConfig wires a momentum classifier with a short lookback and the
// fractal path with window 1 so a full entry cycle fits in a few bars.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Regime.Strategy = "momentum"
	cfg.Regime.Momentum.Lookback = 2
	cfg.Regime.Momentum.ThresholdPips = 10
	cfg.Regime.Momentum.PipSize = 0.0001
	cfg.Filter.Kind = "none"
	cfg.Fractal.Window = 1
	cfg.Fractal.ReactionPct = 0.1
	cfg.Fractal.TimeoutMinutes = 240
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	e, err := New(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	return e
}

func primaryBar(minute int, high, low, close float64) market.Bar {
	return market.Bar{
		Timestamp: t0.Add(time.Duration(minute) * time.Minute),
		Open:      close, High: high, Low: low, Close: close, Volume: 100,
	}
}

// feedHigher installs a higher-timeframe history whose most recent down
// fractal (window 1) sits at 1.1005.
func feedHigher(t *testing.T, e *Engine) {
	t.Helper()
	lows := []float64{1.1030, 1.1020, 1.1005, 1.1018, 1.1025}
	for i, l := range lows {
		bar := market.Bar{
			Timestamp: t0.Add(time.Duration(i-10) * time.Hour),
			High:      l + 0.0040, Low: l, Close: l + 0.0020,
		}
		require.NoError(t, e.OnHigherBar(bar))
	}
}

func env(now time.Time) Environment {
	return Environment{
		Account: market.Account{Balance: 10000, Currency: "USD"},
		Now:     now,
	}
}

func TestEngine_FullEntryCycle(t *testing.T) {
	e := newTestEngine(t, testConfig())
	feedHigher(t, e)

	steps := []struct {
		bar        market.Bar
		wantIntent bool
		wantReject string
	}{
		// Warmup: momentum needs lookback+1 bars
		{primaryBar(0, 1.1003, 1.0997, 1.1000), false, RejectNoContext},
		{primaryBar(1, 1.1013, 1.1007, 1.1010), false, RejectNoContext},
		// Trend confirmed, machine tracks the 1.1005 support
		{primaryBar(2, 1.1023, 1.1017, 1.1020), false, RejectNoReaction},
		// Low pierces the support: breakout close 1.1025
		{primaryBar(3, 1.1028, 1.1002, 1.1025), false, RejectNoReaction},
		// Close clears the reaction target 1.1025*1.001: entry
		{primaryBar(4, 1.1043, 1.1020, 1.1040), true, RejectNone},
	}

	for i, step := range steps {
		intent, diag, err := e.OnBar(step.bar, env(step.bar.Timestamp))
		require.NoError(t, err, "step %d", i)
		require.NotNil(t, diag, "step %d", i)

		if step.wantIntent {
			require.NotNil(t, intent, "step %d expected an intent, reject=%s detail=%s",
				i, diag.RejectReason, diag.RejectDetail)
			assert.Equal(t, market.Buy, intent.Side)
			assert.Equal(t, 50000.0, intent.Volume)
			assert.Equal(t, "EURUSD", intent.Symbol)
			assert.NotEmpty(t, intent.ID)
		} else {
			require.Nil(t, intent, "step %d expected no intent", i)
			assert.Equal(t, step.wantReject, diag.RejectReason, "step %d", i)
		}
	}
}

func TestEngine_DailyLimitAfterFill(t *testing.T) {
	e := newTestEngine(t, testConfig())
	feedHigher(t, e)

	bars := []market.Bar{
		primaryBar(0, 1.1003, 1.0997, 1.1000),
		primaryBar(1, 1.1013, 1.1007, 1.1010),
		primaryBar(2, 1.1023, 1.1017, 1.1020),
		primaryBar(3, 1.1028, 1.1002, 1.1025),
		primaryBar(4, 1.1043, 1.1020, 1.1040),
	}
	var intent *market.OrderIntent
	for _, b := range bars {
		var err error
		intent, _, err = e.OnBar(b, env(b.Timestamp))
		require.NoError(t, err)
	}
	require.NotNil(t, intent)

	// Host executes the order and reports success
	e.RecordFill(bars[4].Timestamp)

	// Same-day follow-up is blocked by the daily limit even with a
	// fresh trend signal
	next := primaryBar(5, 1.1058, 1.1040, 1.1055)
	intent, diag, err := e.OnBar(next, env(next.Timestamp))
	require.NoError(t, err)
	require.Nil(t, intent)
	assert.Equal(t, RejectGates, diag.RejectReason)
}

func TestEngine_UnfilledOrderLeavesLimitUnconsumed(t *testing.T) {
	e := newTestEngine(t, testConfig())
	feedHigher(t, e)

	bars := []market.Bar{
		primaryBar(0, 1.1003, 1.0997, 1.1000),
		primaryBar(1, 1.1013, 1.1007, 1.1010),
		primaryBar(2, 1.1023, 1.1017, 1.1020),
		primaryBar(3, 1.1028, 1.1002, 1.1025),
		primaryBar(4, 1.1043, 1.1020, 1.1040),
	}
	for _, b := range bars {
		_, _, err := e.OnBar(b, env(b.Timestamp))
		require.NoError(t, err)
	}

	// No RecordFill: the gate must still pass on the next evaluation.
	next := primaryBar(5, 1.1058, 1.1040, 1.1055)
	_, diag, err := e.OnBar(next, env(next.Timestamp))
	require.NoError(t, err)
	require.NotNil(t, diag.Admission)
	assert.True(t, diag.Admission.Checks["one_trade_per_day"].Passed)
}

func TestEngine_DuplicateBarIsNoop(t *testing.T) {
	e := newTestEngine(t, testConfig())

	bar := primaryBar(0, 1.1003, 1.0997, 1.1000)
	_, _, err := e.OnBar(bar, env(bar.Timestamp))
	require.NoError(t, err)

	intent, diag, err := e.OnBar(bar, env(bar.Timestamp))
	require.NoError(t, err)
	require.Nil(t, intent)
	assert.Equal(t, RejectDuplicateBar, diag.RejectReason)
}

func TestEngine_OutOfOrderBarIsError(t *testing.T) {
	e := newTestEngine(t, testConfig())

	_, _, err := e.OnBar(primaryBar(5, 1.1003, 1.0997, 1.1000), env(t0))
	require.NoError(t, err)

	_, _, err = e.OnBar(primaryBar(3, 1.1003, 1.0997, 1.1000), env(t0))
	require.Error(t, err)
}

func TestEngine_OutsideSessionRejected(t *testing.T) {
	e := newTestEngine(t, testConfig())
	feedHigher(t, e)

	bars := []market.Bar{
		primaryBar(0, 1.1003, 1.0997, 1.1000),
		primaryBar(1, 1.1013, 1.1007, 1.1010),
		primaryBar(2, 1.1023, 1.1017, 1.1020),
	}
	var diag *Diagnostics
	for _, b := range bars {
		// Shift the wall clock to 03:00, outside the default session
		var err error
		_, diag, err = e.OnBar(b, env(time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC).Add(time.Duration(b.Timestamp.Minute())*time.Second)))
		require.NoError(t, err)
	}
	assert.Equal(t, RejectGates, diag.RejectReason)
}

func TestEngine_TrailingTickPath(t *testing.T) {
	cfg := testConfig()
	e := newTestEngine(t, cfg)

	positions := []market.Position{{
		ID:         "p1",
		Symbol:     "EURUSD",
		Label:      cfg.Label,
		Side:       market.Buy,
		EntryPrice: 1.1000,
	}}

	quote := market.Quote{Bid: 1.1050, Ask: 1.1052, Time: t0}
	intents := e.OnTick(quote, positions)
	require.Len(t, intents, 1)

	// Apply and re-evaluate: idempotent
	positions[0].StopLoss = intents[0].NewStopLoss
	assert.Empty(t, e.OnTick(quote, positions))
}

func TestEngine_LastDiagnosticsRetained(t *testing.T) {
	e := newTestEngine(t, testConfig())
	require.Nil(t, e.LastDiagnostics())

	bar := primaryBar(0, 1.1003, 1.0997, 1.1000)
	_, diag, err := e.OnBar(bar, env(bar.Timestamp))
	require.NoError(t, err)
	assert.Equal(t, diag, e.LastDiagnostics())
}
