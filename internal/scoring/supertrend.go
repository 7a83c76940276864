package scoring

import (
	talib "github.com/markcheno/go-talib"
)

// Supertrend computes the supertrend line and direction for the last
// candle. Direction is +1 (uptrend), -1 (downtrend) or 0 when the window
// is too short. The line rides below price in an uptrend and above it in
// a downtrend.
func Supertrend(highs, lows, closes []float64, period int, multiplier float64) (float64, int) {
	n := len(closes)
	if n <= period+1 || len(highs) != n || len(lows) != n {
		return 0, 0
	}

	atr := talib.Atr(highs, lows, closes, period)

	upper := make([]float64, n)
	lower := make([]float64, n)
	trend := make([]int, n)

	for i := period; i < n; i++ {
		mid := (highs[i] + lows[i]) / 2
		basicUpper := mid + multiplier*atr[i]
		basicLower := mid - multiplier*atr[i]

		if i == period {
			upper[i] = basicUpper
			lower[i] = basicLower
			if closes[i] > basicUpper {
				trend[i] = 1
			} else {
				trend[i] = -1
			}
			continue
		}

		if basicUpper < upper[i-1] || closes[i-1] > upper[i-1] {
			upper[i] = basicUpper
		} else {
			upper[i] = upper[i-1]
		}

		if basicLower > lower[i-1] || closes[i-1] < lower[i-1] {
			lower[i] = basicLower
		} else {
			lower[i] = lower[i-1]
		}

		switch {
		case closes[i] > upper[i]:
			trend[i] = 1
		case closes[i] < lower[i]:
			trend[i] = -1
		default:
			trend[i] = trend[i-1]
		}
	}

	last := n - 1
	if trend[last] > 0 {
		return lower[last], 1
	}
	return upper[last], -1
}
