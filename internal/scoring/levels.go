package scoring

import (
	talib "github.com/markcheno/go-talib"
)

// pivotLevels derives support and resistance from classic floor-trader
// pivots over the last pivotLookback candles. The level nearest to but
// beyond the current price is chosen; degenerate pivots fall back to a
// fixed 2% band around price.
func pivotLevels(highs, lows, closes []float64) (float64, float64) {
	n := len(closes)
	price := closes[n-1]

	start := n - pivotLookback
	if start < 0 {
		start = 0
	}

	maxHigh := highs[start]
	minLow := lows[start]
	for i := start + 1; i < n; i++ {
		if highs[i] > maxHigh {
			maxHigh = highs[i]
		}
		if lows[i] < minLow {
			minLow = lows[i]
		}
	}

	pivot := (maxHigh + minLow + price) / 3
	r1 := 2*pivot - minLow
	r2 := pivot + (maxHigh - minLow)
	s1 := 2*pivot - maxHigh
	s2 := pivot - (maxHigh - minLow)

	resistance := r1
	if resistance <= price {
		resistance = r2
	}
	if resistance <= price {
		resistance = price * 1.02
	}

	support := s1
	if support >= price {
		support = s2
	}
	if support >= price || support <= 0 {
		support = price * 0.98
	}

	return Round2(support), Round2(resistance)
}

// swingLevels returns the lowest low and highest high of the last
// swingLookback candles.
func swingLevels(highs, lows []float64) (float64, float64) {
	n := len(highs)
	start := n - swingLookback
	if start < 0 {
		start = 0
	}

	swingHigh := highs[start]
	swingLow := lows[start]
	for i := start + 1; i < n; i++ {
		if highs[i] > swingHigh {
			swingHigh = highs[i]
		}
		if lows[i] < swingLow {
			swingLow = lows[i]
		}
	}

	return Round2(swingLow), Round2(swingHigh)
}

// atrLevels returns the current ATR and its avgATRLookback-sample mean.
func atrLevels(highs, lows, closes []float64) (float64, float64) {
	if len(closes) <= atrPeriod {
		return 0, 0
	}

	atrSeries := talib.Atr(highs, lows, closes, atrPeriod)
	atr, ok := lastValue(atrSeries)
	if !ok {
		return 0, 0
	}

	start := len(atrSeries) - avgATRLookback
	if start < atrPeriod {
		start = atrPeriod
	}
	var sum float64
	var count int
	for i := start; i < len(atrSeries); i++ {
		sum += atrSeries[i]
		count++
	}
	if count == 0 {
		return Round4(atr), 0
	}

	return Round4(atr), Round4(sum / float64(count))
}

// volumeProfile compares the latest volume to its recent mean.
func volumeProfile(volumes []float64) (float64, bool) {
	n := len(volumes)
	if n == 0 {
		return 0, false
	}

	start := n - volumeLookback
	if start < 0 {
		start = 0
	}
	var sum float64
	for i := start; i < n; i++ {
		sum += volumes[i]
	}
	mean := sum / float64(n-start)
	if mean == 0 {
		return 0, false
	}

	ratio := volumes[n-1] / mean
	return Round2(ratio), ratio > 1.5
}
