package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trendgate/trendgate/internal/config"
	"github.com/trendgate/trendgate/internal/confirm"
	"github.com/trendgate/trendgate/internal/exits"
	"github.com/trendgate/trendgate/internal/fractal"
	"github.com/trendgate/trendgate/internal/gates"
	"github.com/trendgate/trendgate/internal/history"
	"github.com/trendgate/trendgate/internal/market"
	"github.com/trendgate/trendgate/internal/metrics"
	"github.com/trendgate/trendgate/internal/regime"
	"github.com/trendgate/trendgate/internal/risk"
)

// Rejection reasons reported in diagnostics and metrics.
const (
	RejectNone         = ""
	RejectDuplicateBar = "duplicate_bar"
	RejectNoContext    = "context_not_tradable"
	RejectGates        = "admission_gates"
	RejectFilter       = "filter_declined"
	RejectNoReaction   = "no_confirmed_reaction"
	RejectSizing       = "sizing"
)

// Environment carries the host-supplied, already-materialized state for
// one evaluation. The engine performs no I/O of its own.
type Environment struct {
	Account       market.Account
	OpenPositions []market.Position
	Now           time.Time
}

// Diagnostics describes one bar evaluation. It is informational only
// and never feeds back into control flow.
type Diagnostics struct {
	Timestamp       time.Time           `json:"timestamp"`
	Symbol          string              `json:"symbol"`
	Context         string              `json:"context"`
	FilterName      string              `json:"filter_name"`
	FilterConfirmed bool                `json:"filter_confirmed"`
	MachineState    string              `json:"machine_state"`
	MachineReason   string              `json:"machine_reason,omitempty"`
	Admission       *gates.Result       `json:"admission,omitempty"`
	RejectReason    string              `json:"reject_reason,omitempty"`
	RejectDetail    string              `json:"reject_detail,omitempty"`
	Intent          *market.OrderIntent `json:"intent,omitempty"`
}

// Engine is the per-symbol decision pipeline: bounded history, context
// classification, admission gates, signal filter, breakout-reaction
// machine, sizing, and trailing stops. It is single-threaded by
// contract; the host invokes it once per closed bar and per tick. Only
// the retained diagnostics are guarded for the HTTP surface.
type Engine struct {
	log zerolog.Logger
	cfg *config.Config

	primary *history.Buffer
	higher  *history.Buffer

	classifier regime.Classifier
	filter     confirm.Filter
	machine    *fractal.Machine
	admission  *gates.Admission
	sizer      *risk.Sizer
	trailing   *exits.TrailingStopManager
	metrics    *metrics.Set

	lastTradeDay time.Time

	mu       sync.Mutex
	lastDiag *Diagnostics
}

// New assembles an engine from configuration.
func New(cfg *config.Config, log zerolog.Logger, m *metrics.Set) (*Engine, error) {
	if findings := cfg.Validate(); len(findings) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", findings)
	}

	primary, err := history.New(cfg.History.PrimaryCapacity)
	if err != nil {
		return nil, fmt.Errorf("primary history: %w", err)
	}

	var higher *history.Buffer
	var machine *fractal.Machine
	if cfg.Fractal.Enabled {
		higher, err = history.New(cfg.History.HigherCapacity)
		if err != nil {
			return nil, fmt.Errorf("higher history: %w", err)
		}
		machine = fractal.NewMachine(cfg.Fractal.MachineConfig())
	}

	return &Engine{
		log:        log.With().Str("component", "engine").Str("symbol", cfg.Symbol.Symbol).Logger(),
		cfg:        cfg,
		primary:    primary,
		higher:     higher,
		classifier: cfg.Classifier(),
		filter:     cfg.ConfirmationFilter(),
		machine:    machine,
		admission:  gates.NewAdmission(&cfg.Admission),
		sizer:      risk.NewSizer(cfg.Symbol),
		trailing:   exits.NewTrailingStopManager(cfg.Trailing, cfg.Symbol, cfg.Label),
		metrics:    m,
	}, nil
}

// OnHigherBar ingests a closed higher-timeframe bar for fractal
// detection. A no-op when the fractal path is disabled.
func (e *Engine) OnHigherBar(bar market.Bar) error {
	if e.higher == nil {
		return nil
	}
	if err := e.higher.Append(bar); err != nil {
		return fmt.Errorf("higher bar rejected: %w", err)
	}
	if e.metrics != nil {
		e.metrics.BarsIngested.WithLabelValues("higher").Inc()
	}
	return nil
}

// OnBar runs one full evaluation for a closed primary bar and returns
// zero or one order intent. Rejections are diagnostics, not errors; an
// error means the bar itself was unusable.
func (e *Engine) OnBar(bar market.Bar, env Environment) (*market.OrderIntent, *Diagnostics, error) {
	started := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.EvaluationSecs.Observe(time.Since(started).Seconds())
		}
	}()

	diag := &Diagnostics{
		Timestamp:  env.Now,
		Symbol:     e.cfg.Symbol.Symbol,
		FilterName: e.filter.Name(),
	}

	if last, ok := e.primary.Last(); ok && last.Timestamp.Equal(bar.Timestamp) {
		diag.RejectReason = RejectDuplicateBar
		e.finish(diag)
		return nil, diag, nil
	}
	if err := e.primary.Append(bar); err != nil {
		return nil, nil, fmt.Errorf("primary bar rejected: %w", err)
	}
	if e.metrics != nil {
		e.metrics.BarsIngested.WithLabelValues("primary").Inc()
	}

	bars := e.primary.Bars()
	ctx := e.classifier.Classify(bars)
	diag.Context = ctx.String()
	if e.metrics != nil {
		e.metrics.CurrentContext.Set(float64(ctx))
	}

	if !ctx.Tradable() {
		// The reaction machine drops its state the moment the context
		// leaves the trend that created it.
		if e.machine != nil {
			out := e.machine.Step(ctx, nil, bar, env.Now)
			diag.MachineState = out.State.String()
			diag.MachineReason = out.Reason
		}
		diag.RejectReason = RejectNoContext
		e.reject(diag)
		return nil, diag, nil
	}

	admission := e.admission.Evaluate(gates.Inputs{
		Now:           env.Now,
		LastTradeDay:  e.lastTradeDay,
		OpenPositions: env.OpenPositions,
		Label:         e.cfg.Label,
		Symbol:        e.cfg.Symbol.Symbol,
	})
	diag.Admission = admission
	if !admission.Passed {
		diag.RejectReason = RejectGates
		e.reject(diag)
		return nil, diag, nil
	}

	diag.FilterConfirmed = e.filter.Confirms(ctx, bars)
	if !diag.FilterConfirmed {
		diag.RejectReason = RejectFilter
		e.reject(diag)
		return nil, diag, nil
	}

	side := market.Buy
	if ctx == regime.TrendingDown {
		side = market.Sell
	}

	if e.machine != nil {
		out := e.machine.Step(ctx, e.higher.Bars(), bar, env.Now)
		diag.MachineState = out.State.String()
		diag.MachineReason = out.Reason
		if !out.Entry {
			diag.RejectReason = RejectNoReaction
			e.reject(diag)
			return nil, diag, nil
		}
		side = out.Side
	}

	volume, err := e.sizer.Size(env.Account.Balance, e.cfg.Risk)
	if err != nil {
		diag.RejectReason = RejectSizing
		diag.RejectDetail = err.Error()
		e.reject(diag)
		e.log.Warn().Err(err).Float64("balance", env.Account.Balance).Msg("trade path aborted in sizing")
		return nil, diag, nil
	}

	intent := &market.OrderIntent{
		ID:             uuid.NewString(),
		Symbol:         e.cfg.Symbol.Symbol,
		Side:           side,
		Volume:         volume,
		StopLossPips:   e.cfg.Risk.StopLossPips,
		TakeProfitPips: e.cfg.Risk.TakeProfitPips,
		Label:          e.cfg.Label,
		Timestamp:      env.Now,
	}
	diag.Intent = intent

	if e.metrics != nil {
		e.metrics.IntentsEmitted.WithLabelValues(side.String()).Inc()
	}
	e.log.Info().
		Str("intent_id", intent.ID).
		Str("side", side.String()).
		Float64("volume", volume).
		Str("context", ctx.String()).
		Msg("order intent emitted")

	e.finish(diag)
	return intent, diag, nil
}

// OnTick recomputes trailing stops for the engine's open positions.
// Safe to call at any frequency; unqualified positions are untouched.
func (e *Engine) OnTick(quote market.Quote, positions []market.Position) []market.StopIntent {
	intents := e.trailing.Evaluate(positions, quote)
	if e.metrics != nil && len(intents) > 0 {
		e.metrics.StopsRatcheted.Add(float64(len(intents)))
	}
	for _, in := range intents {
		e.log.Debug().
			Str("position_id", in.PositionID).
			Float64("new_stop", in.NewStopLoss).
			Msg("trailing stop ratcheted")
	}
	return intents
}

// RecordFill commits "trade taken today" after the host reports a
// successful execution. Rejected or failed orders leave the daily limit
// unconsumed.
func (e *Engine) RecordFill(at time.Time) {
	e.lastTradeDay = at
}

// LastDiagnostics returns the most recent evaluation diagnostics for
// the HTTP surface.
func (e *Engine) LastDiagnostics() *Diagnostics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastDiag
}

func (e *Engine) reject(diag *Diagnostics) {
	if e.metrics != nil {
		e.metrics.TradesRejected.WithLabelValues(diag.RejectReason).Inc()
	}
	e.log.Debug().
		Str("reason", diag.RejectReason).
		Str("context", diag.Context).
		Msg("no trade this bar")
	e.finish(diag)
}

func (e *Engine) finish(diag *Diagnostics) {
	e.mu.Lock()
	e.lastDiag = diag
	e.mu.Unlock()
}
