package indicators

import (
	"math"

	"github.com/trendgate/trendgate/internal/market"
)

// EMAResult represents the result of EMA calculation
type EMAResult struct {
	Value     float64 `json:"value"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// EMASeries computes an exponential moving average series over values,
// seeded with a simple average of the first period values. The returned
// series has len(values)-period+1 points; nil when data is insufficient.
func EMASeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	out := make([]float64, 0, len(values)-period+1)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out = append(out, seed)

	alpha := 2.0 / (float64(period) + 1.0)
	ema := seed
	for i := period; i < len(values); i++ {
		ema = values[i]*alpha + ema*(1-alpha)
		out = append(out, ema)
	}
	return out
}

// CalculateEMA computes the latest EMA value over values.
func CalculateEMA(values []float64, period int) EMAResult {
	series := EMASeries(values, period)
	if series == nil {
		return EMAResult{Period: period, IsValid: false, DataCount: len(values)}
	}
	return EMAResult{
		Value:     series[len(series)-1],
		Period:    period,
		IsValid:   true,
		DataCount: len(values),
	}
}

// ATRResult represents the result of ATR calculation
type ATRResult struct {
	Value     float64 `json:"value"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// CalculateATR calculates the Average True Range using Wilder smoothing:
// atr[i] = (atr[i-1]*(period-1) + tr[i]) / period, seeded with a simple
// average of the first period true-range values.
func CalculateATR(bars []market.Bar, period int) ATRResult {
	if period <= 0 || len(bars) < period+1 {
		return ATRResult{Period: period, IsValid: false, DataCount: len(bars)}
	}

	trueRanges := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trueRanges[i-1] = market.TrueRange(bars[i], bars[i-1])
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}

	return ATRResult{
		Value:     atr,
		Period:    period,
		IsValid:   true,
		DataCount: len(bars),
	}
}

// RSIResult represents the result of RSI calculation
type RSIResult struct {
	Value     float64 `json:"value"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// CalculateRSI calculates the Relative Strength Index over closing prices.
func CalculateRSI(prices []float64, period int) RSIResult {
	if period <= 0 || len(prices) < period+1 {
		return RSIResult{
			Value:     50.0, // Neutral when insufficient data
			Period:    period,
			IsValid:   false,
			DataCount: len(prices),
		}
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing for the remainder
	alpha := 1.0 / float64(period)
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = avgGain*(1-alpha) + gain*alpha
		avgLoss = avgLoss*(1-alpha) + loss*alpha
	}

	if avgLoss == 0 {
		return RSIResult{Value: 100.0, Period: period, IsValid: true, DataCount: len(prices)}
	}

	rs := avgGain / avgLoss
	return RSIResult{
		Value:     100.0 - (100.0 / (1.0 + rs)),
		Period:    period,
		IsValid:   true,
		DataCount: len(prices),
	}
}

// ADXResult represents the result of ADX calculation
type ADXResult struct {
	ADX       float64 `json:"adx"`
	PDI       float64 `json:"pdi"` // Plus Directional Indicator
	MDI       float64 `json:"mdi"` // Minus Directional Indicator
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// CalculateADX calculates the Average Directional Index for trend strength.
func CalculateADX(bars []market.Bar, period int) ADXResult {
	if period <= 0 || len(bars) < period*2+1 {
		return ADXResult{Period: period, IsValid: false, DataCount: len(bars)}
	}

	trueRanges := make([]float64, len(bars)-1)
	plusDM := make([]float64, len(bars)-1)
	minusDM := make([]float64, len(bars)-1)

	for i := 1; i < len(bars); i++ {
		trueRanges[i-1] = market.TrueRange(bars[i], bars[i-1])

		plusMove := bars[i].High - bars[i-1].High
		minusMove := bars[i-1].Low - bars[i].Low
		if plusMove > minusMove && plusMove > 0 {
			plusDM[i-1] = plusMove
		}
		if minusMove > plusMove && minusMove > 0 {
			minusDM[i-1] = minusMove
		}
	}

	smoothedTR := 0.0
	smoothedPlusDM := 0.0
	smoothedMinusDM := 0.0
	for i := 0; i < period; i++ {
		smoothedTR += trueRanges[i]
		smoothedPlusDM += plusDM[i]
		smoothedMinusDM += minusDM[i]
	}

	alpha := 1.0 / float64(period)
	for i := period; i < len(trueRanges); i++ {
		smoothedTR = smoothedTR*(1-alpha) + trueRanges[i]*alpha
		smoothedPlusDM = smoothedPlusDM*(1-alpha) + plusDM[i]*alpha
		smoothedMinusDM = smoothedMinusDM*(1-alpha) + minusDM[i]*alpha
	}

	var pdi, mdi, adx float64
	if smoothedTR > 0 {
		pdi = 100.0 * smoothedPlusDM / smoothedTR
		mdi = 100.0 * smoothedMinusDM / smoothedTR

		if sum := pdi + mdi; sum > 0 {
			adx = 100.0 * math.Abs(pdi-mdi) / sum
		}
	}

	return ADXResult{
		ADX:       adx,
		PDI:       pdi,
		MDI:       mdi,
		Period:    period,
		IsValid:   true,
		DataCount: len(bars),
	}
}

// MACDResult represents the latest two points of a MACD line and its
// signal line, enough to detect a crossover between consecutive bars.
type MACDResult struct {
	Line       float64 `json:"line"`
	Signal     float64 `json:"signal"`
	Histogram  float64 `json:"histogram"`
	PrevLine   float64 `json:"prev_line"`
	PrevSignal float64 `json:"prev_signal"`
	IsValid    bool    `json:"is_valid"`
	DataCount  int     `json:"data_count"`
}

// CalculateMACD computes MACD(fast, slow) with a signal EMA over the
// MACD line. At least two signal points are required so callers can
// check for a cross between the previous and the current bar.
func CalculateMACD(prices []float64, fast, slow, signal int) MACDResult {
	if fast <= 0 || slow <= fast || signal <= 0 {
		return MACDResult{IsValid: false, DataCount: len(prices)}
	}

	fastSeries := EMASeries(prices, fast)
	slowSeries := EMASeries(prices, slow)
	if fastSeries == nil || slowSeries == nil {
		return MACDResult{IsValid: false, DataCount: len(prices)}
	}

	// Align the two series; the slow one starts slow-fast points later
	offset := slow - fast
	n := len(slowSeries)
	macdLine := make([]float64, n)
	for i := 0; i < n; i++ {
		macdLine[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries := EMASeries(macdLine, signal)
	if signalSeries == nil || len(signalSeries) < 2 {
		return MACDResult{IsValid: false, DataCount: len(prices)}
	}

	lineOffset := len(macdLine) - len(signalSeries)
	last := len(signalSeries) - 1

	return MACDResult{
		Line:       macdLine[lineOffset+last],
		Signal:     signalSeries[last],
		Histogram:  macdLine[lineOffset+last] - signalSeries[last],
		PrevLine:   macdLine[lineOffset+last-1],
		PrevSignal: signalSeries[last-1],
		IsValid:    true,
		DataCount:  len(prices),
	}
}
