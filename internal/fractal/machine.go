package fractal

import (
	"time"

	"github.com/trendgate/trendgate/internal/market"
	"github.com/trendgate/trendgate/internal/regime"
)

// State is the breakout-then-reaction machine state.
type State int

const (
	Idle State = iota
	LevelTracked
	AwaitingReaction
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LevelTracked:
		return "level_tracked"
	case AwaitingReaction:
		return "awaiting_reaction"
	default:
		return "unknown"
	}
}

// Direction is the trend direction the machine is confirming.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Config holds the reaction machine thresholds
type Config struct {
	Window      int           `yaml:"window"`       // Fractal window on each side, default: 2
	ReactionPct float64       `yaml:"reaction_pct"` // Reaction distance from breakout close, default: 0.1
	Timeout     time.Duration `yaml:"timeout"`      // Max wait for a reaction, default: 4h
}

// DefaultConfig returns production-ready machine settings
func DefaultConfig() Config {
	return Config{
		Window:      2,
		ReactionPct: 0.1,
		Timeout:     4 * time.Hour,
	}
}

// WaitState exists only between a confirmed breakout and its
// confirmation, timeout, or negation.
type WaitState struct {
	Direction     Direction `json:"direction"`
	BreakoutClose float64   `json:"breakout_close"`
	Target        float64   `json:"target"`
	Negation      float64   `json:"negation"`
	Since         time.Time `json:"since"`
}

// Outcome describes one machine step. Entry is true only on a confirmed
// reaction; that is the sole transition that authorizes a trade.
type Outcome struct {
	State  State       `json:"state"`
	Entry  bool        `json:"entry"`
	Side   market.Side `json:"side"`
	Reason string      `json:"reason"`
}

// Machine delays trend entries until a counter-trend fractal on the
// higher timeframe is broken and price reacts back in the trend
// direction. It is exclusively owned by a single evaluation loop.
type Machine struct {
	cfg   Config
	state State
	dir   Direction
	level *Level
	wait  *WaitState
}

// NewMachine creates a reaction machine.
func NewMachine(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// State returns the current machine state.
func (m *Machine) State() State { return m.state }

// Wait returns the active wait state, nil outside AwaitingReaction.
func (m *Machine) Wait() *WaitState { return m.wait }

// TrackedLevel returns the currently tracked fractal level, if any.
func (m *Machine) TrackedLevel() *Level { return m.level }

// Reset discards any tracked level and wait state.
func (m *Machine) Reset() {
	m.state = Idle
	m.level = nil
	m.wait = nil
}

// Step advances the machine by one closed primary bar. higher is the
// higher-timeframe history used for fractal detection; now is the
// host-supplied clock.
func (m *Machine) Step(ctx regime.Context, higher []market.Bar, bar market.Bar, now time.Time) Outcome {
	dir, ok := directionFor(ctx)
	if !ok {
		// Context moved away from any tradable trend: drop everything.
		if m.state != Idle {
			m.Reset()
			return Outcome{State: m.state, Reason: "context left trend, machine reset"}
		}
		return Outcome{State: m.state, Reason: "no tradable context"}
	}

	// A trend flip also invalidates the tracked side.
	if m.state != Idle && dir != m.dir {
		m.Reset()
	}
	m.dir = dir

	switch m.state {
	case Idle:
		return m.stepIdle(higher)
	case LevelTracked:
		return m.stepTracked(bar, now)
	case AwaitingReaction:
		return m.stepAwaiting(bar, now)
	default:
		return Outcome{State: m.state, Reason: "unknown state"}
	}
}

func (m *Machine) stepIdle(higher []market.Bar) Outcome {
	// In an uptrend the machine watches the nearest support (down
	// fractal); in a downtrend the nearest resistance.
	kind := DownFractal
	if m.dir == Down {
		kind = UpFractal
	}

	level := Find(higher, m.cfg.Window, kind)
	if level == nil {
		return Outcome{State: m.state, Reason: "no fractal level on higher timeframe"}
	}

	m.level = level
	m.state = LevelTracked
	return Outcome{State: m.state, Reason: "fractal level tracked"}
}

func (m *Machine) stepTracked(bar market.Bar, now time.Time) Outcome {
	broken := false
	if m.dir == Up {
		broken = bar.Low < m.level.Price
	} else {
		broken = bar.High > m.level.Price
	}
	if !broken {
		return Outcome{State: m.state, Reason: "level intact"}
	}

	pct := m.cfg.ReactionPct / 100.0
	wait := &WaitState{
		Direction:     m.dir,
		BreakoutClose: bar.Close,
		Since:         now,
	}
	if m.dir == Up {
		wait.Target = bar.Close * (1 + pct)
		wait.Negation = bar.Close * (1 - pct)
	} else {
		wait.Target = bar.Close * (1 - pct)
		wait.Negation = bar.Close * (1 + pct)
	}

	m.wait = wait
	m.state = AwaitingReaction
	return Outcome{State: m.state, Reason: "level broken, awaiting reaction"}
}

func (m *Machine) stepAwaiting(bar market.Bar, now time.Time) Outcome {
	if now.Sub(m.wait.Since) > m.cfg.Timeout {
		m.Reset()
		return Outcome{State: m.state, Reason: "reaction wait timed out"}
	}

	if m.dir == Up {
		if bar.Close > m.wait.Target {
			m.Reset()
			return Outcome{State: m.state, Entry: true, Side: market.Buy, Reason: "reaction confirmed"}
		}
		if bar.Low < m.wait.Negation {
			m.Reset()
			return Outcome{State: m.state, Reason: "continuation against reaction, abandoned"}
		}
	} else {
		if bar.Close < m.wait.Target {
			m.Reset()
			return Outcome{State: m.state, Entry: true, Side: market.Sell, Reason: "reaction confirmed"}
		}
		if bar.High > m.wait.Negation {
			m.Reset()
			return Outcome{State: m.state, Reason: "continuation against reaction, abandoned"}
		}
	}

	return Outcome{State: m.state, Reason: "awaiting reaction"}
}

func directionFor(ctx regime.Context) (Direction, bool) {
	switch ctx {
	case regime.TrendingUp:
		return Up, true
	case regime.TrendingDown:
		return Down, true
	default:
		return Up, false
	}
}
