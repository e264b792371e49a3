package market

import (
	"math"
	"time"
)

// Bar is a single OHLCV aggregate for one timeframe interval.
// Bars are immutable once ingested.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Typical returns the typical price (H+L+C)/3 used by channel indicators.
func (b Bar) Typical() float64 {
	return (b.High + b.Low + b.Close) / 3.0
}

// TrueRange computes the true range of cur relative to the previous bar's close.
func TrueRange(cur, prev Bar) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Close)
	lc := math.Abs(cur.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

// Side is the direction of an order or position.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// SymbolMeta carries broker-defined instrument metadata. It is read-only
// to the engine; the host supplies it.
type SymbolMeta struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	PipSize    float64 `json:"pip_size" yaml:"pip_size"`       // Price increment of one pip (e.g. 0.0001)
	PipValue   float64 `json:"pip_value" yaml:"pip_value"`     // Account-currency value of one pip per unit of volume
	Digits     int     `json:"digits" yaml:"digits"`           // Price precision for stop rounding
	VolumeMin  float64 `json:"volume_min" yaml:"volume_min"`   // Minimum tradable volume in base units
	VolumeMax  float64 `json:"volume_max" yaml:"volume_max"`   // Maximum tradable volume in base units
	VolumeStep float64 `json:"volume_step" yaml:"volume_step"` // Volume quantization step in base units
}

// RoundPrice rounds a price to the instrument's digit precision.
func (m SymbolMeta) RoundPrice(price float64) float64 {
	scale := math.Pow(10, float64(m.Digits))
	return math.Round(price*scale) / scale
}

// Quote is the current top-of-book bid/ask supplied by the host.
type Quote struct {
	Bid  float64   `json:"bid"`
	Ask  float64   `json:"ask"`
	Time time.Time `json:"time"`
}

// Position is an open position as reported by the host.
type Position struct {
	ID         string  `json:"id"`
	Symbol     string  `json:"symbol"`
	Label      string  `json:"label"`
	Side       Side    `json:"side"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"` // 0 means no stop currently set
	Volume     float64 `json:"volume"`
}

// Account is the host-reported account state used for sizing.
type Account struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// OrderIntent is the engine's request to open a position. It is produced
// once per admitted evaluation and never mutated; execution belongs to
// the host.
type OrderIntent struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Side           Side      `json:"side"`
	Volume         float64   `json:"volume"` // Broker units, already quantized
	StopLossPips   float64   `json:"stop_loss_pips"`
	TakeProfitPips float64   `json:"take_profit_pips"`
	Label          string    `json:"label"`
	Timestamp      time.Time `json:"timestamp"`
}

// StopIntent asks the host to move an open position's protective stop.
// At most one is produced per qualifying position per evaluation.
type StopIntent struct {
	PositionID  string  `json:"position_id"`
	NewStopLoss float64 `json:"new_stop_loss"`
}
