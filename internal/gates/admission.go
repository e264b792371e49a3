package gates

import (
	"fmt"
	"time"

	"github.com/trendgate/trendgate/internal/market"
)

// Config contains hard thresholds for trade admission
type Config struct {
	// Trading-session window, inclusive start, exclusive end, in the
	// host clock's location. Zero values disable the window check.
	SessionStartHour int `yaml:"session_start_hour"` // Default: 8
	SessionEndHour   int `yaml:"session_end_hour"`   // Default: 18

	// One-trade-per-day limit
	OneTradePerDay bool `yaml:"one_trade_per_day"` // Default: true
}

// DefaultConfig returns production-ready admission settings
func DefaultConfig() *Config {
	return &Config{
		SessionStartHour: 8,
		SessionEndHour:   18,
		OneTradePerDay:   true,
	}
}

// Check records a single gate's outcome.
type Check struct {
	Name        string `json:"name"`
	Passed      bool   `json:"passed"`
	Description string `json:"description"`
}

// Result contains the admission evaluation and detailed reasoning.
type Result struct {
	Timestamp      time.Time         `json:"timestamp"`
	Passed         bool              `json:"passed"`
	Checks         map[string]*Check `json:"checks"`
	PassedGates    []string          `json:"passed_gates"`
	FailureReasons []string          `json:"failure_reasons"`
}

// Inputs carries the host-supplied facts the gates need.
type Inputs struct {
	Now           time.Time
	LastTradeDay  time.Time // Zero when no trade has been taken yet
	OpenPositions []market.Position
	Label         string
	Symbol        string
}

// Admission runs the precondition gates ahead of the sizing/entry path:
// session window, one trade per calendar day, no duplicate open
// position. All gates must pass.
type Admission struct {
	config *Config
}

// NewAdmission creates an admission gate evaluator.
func NewAdmission(config *Config) *Admission {
	if config == nil {
		config = DefaultConfig()
	}
	return &Admission{config: config}
}

// Evaluate runs all gates and aggregates the result.
func (a *Admission) Evaluate(in Inputs) *Result {
	result := &Result{
		Timestamp: in.Now,
		Passed:    true,
		Checks:    make(map[string]*Check),
	}

	a.record(result, a.checkSession(in))
	a.record(result, a.checkDailyLimit(in))
	a.record(result, a.checkDuplicatePosition(in))

	return result
}

func (a *Admission) record(result *Result, check *Check) {
	result.Checks[check.Name] = check
	if check.Passed {
		result.PassedGates = append(result.PassedGates, check.Name)
		return
	}
	result.Passed = false
	result.FailureReasons = append(result.FailureReasons, check.Description)
}

func (a *Admission) checkSession(in Inputs) *Check {
	check := &Check{Name: "session_window"}

	if a.config.SessionStartHour == 0 && a.config.SessionEndHour == 0 {
		check.Passed = true
		check.Description = "Session window disabled"
		return check
	}

	hour := in.Now.Hour()
	check.Passed = hour >= a.config.SessionStartHour && hour < a.config.SessionEndHour
	if check.Passed {
		check.Description = fmt.Sprintf("Hour %d inside session [%d, %d)",
			hour, a.config.SessionStartHour, a.config.SessionEndHour)
	} else {
		check.Description = fmt.Sprintf("Hour %d outside session [%d, %d)",
			hour, a.config.SessionStartHour, a.config.SessionEndHour)
	}
	return check
}

func (a *Admission) checkDailyLimit(in Inputs) *Check {
	check := &Check{Name: "one_trade_per_day"}

	if !a.config.OneTradePerDay {
		check.Passed = true
		check.Description = "Daily limit disabled"
		return check
	}
	if in.LastTradeDay.IsZero() {
		check.Passed = true
		check.Description = "No trade taken today"
		return check
	}

	y1, m1, d1 := in.LastTradeDay.Date()
	y2, m2, d2 := in.Now.Date()
	sameDay := y1 == y2 && m1 == m2 && d1 == d2

	check.Passed = !sameDay
	if sameDay {
		check.Description = fmt.Sprintf("Trade already taken on %04d-%02d-%02d", y2, m2, d2)
	} else {
		check.Description = "No trade taken today"
	}
	return check
}

func (a *Admission) checkDuplicatePosition(in Inputs) *Check {
	check := &Check{Name: "no_duplicate_position"}

	for _, pos := range in.OpenPositions {
		if pos.Label == in.Label && pos.Symbol == in.Symbol {
			check.Passed = false
			check.Description = fmt.Sprintf("Position %s already open for %s/%s",
				pos.ID, in.Symbol, in.Label)
			return check
		}
	}

	check.Passed = true
	check.Description = "No open position for this engine"
	return check
}
