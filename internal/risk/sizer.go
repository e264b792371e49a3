package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/trendgate/trendgate/internal/market"
)

var (
	// ErrInvalidRisk marks a non-positive risk-per-unit (bad stop
	// distance or pip value).
	ErrInvalidRisk = errors.New("invalid risk parameters")

	// ErrInvalidConfig marks broken broker volume metadata.
	ErrInvalidConfig = errors.New("invalid volume configuration")

	// ErrUnaffordable marks a minimum tradable size whose risk exceeds
	// the configured budget. Rejecting here is the safety valve against
	// silent over-leverage at the broker's minimum lot.
	ErrUnaffordable = errors.New("minimum volume exceeds risk budget")
)

// Parameters is the per-trade risk budget.
type Parameters struct {
	RiskPercent    float64 `yaml:"risk_percent"`     // Fraction of balance risked per trade, (0, 100]
	StopLossPips   float64 `yaml:"stop_loss_pips"`   // Protective stop distance
	TakeProfitPips float64 `yaml:"take_profit_pips"` // Target distance, 0 disables
}

// DefaultParameters returns conservative sizing defaults
func DefaultParameters() Parameters {
	return Parameters{
		RiskPercent:    1.0,
		StopLossPips:   20,
		TakeProfitPips: 40,
	}
}

// Sizer converts a fractional risk budget and stop distance into a
// broker-quantized volume. Realized risk never knowingly exceeds the
// budget except at the broker minimum, where affordability is verified
// before the size is allowed through.
type Sizer struct {
	meta market.SymbolMeta
}

// NewSizer creates a sizer for one instrument.
func NewSizer(meta market.SymbolMeta) *Sizer {
	return &Sizer{meta: meta}
}

// Size computes the order volume in broker units.
func (s *Sizer) Size(balance float64, params Parameters) (float64, error) {
	if params.RiskPercent <= 0 || params.RiskPercent > 100 {
		return 0, fmt.Errorf("%w: risk percent %.2f outside (0, 100]", ErrInvalidRisk, params.RiskPercent)
	}
	if s.meta.VolumeStep <= 0 {
		return 0, fmt.Errorf("%w: volume step %.2f must be positive", ErrInvalidConfig, s.meta.VolumeStep)
	}

	riskAmount := balance * params.RiskPercent / 100.0

	riskPerUnit := params.StopLossPips * s.meta.PipValue
	if riskPerUnit <= 0 {
		return 0, fmt.Errorf("%w: stop %.1f pips x pip value %.5f yields non-positive risk per unit",
			ErrInvalidRisk, params.StopLossPips, s.meta.PipValue)
	}

	rawUnits := riskAmount / riskPerUnit
	units := math.Floor(rawUnits/s.meta.VolumeStep) * s.meta.VolumeStep

	if units < s.meta.VolumeMin {
		units = s.meta.VolumeMin
		if riskAmount > 0 && units*riskPerUnit > riskAmount {
			return 0, fmt.Errorf("%w: min volume %.0f risks %.2f against budget %.2f",
				ErrUnaffordable, units, units*riskPerUnit, riskAmount)
		}
	}

	if s.meta.VolumeMax > 0 && units > s.meta.VolumeMax {
		units = s.meta.VolumeMax
	}

	if units <= 0 {
		return 0, fmt.Errorf("%w: computed volume %.2f is not tradable", ErrInvalidConfig, units)
	}

	return units, nil
}
