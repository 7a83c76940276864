package strategy

import (
	"trading-signal-bot/internal/scoring"
)

// StopLoss picks the tightest defensible stop from three candidates:
// the buffered swing level, a 2xATR distance, and the supertrend line
// (only when it is a real price). Longs take the highest candidate,
// shorts the lowest, so the stop is always the nearest to entry.
func StopLoss(direction Direction, entry, swingLow, swingHigh, atr, supertrendLevel float64) float64 {
	if direction == Long {
		candidates := []float64{swingLow * 0.999, entry - 2*atr}
		if supertrendLevel > 0 {
			candidates = append(candidates, supertrendLevel)
		}
		stop := candidates[0]
		for _, c := range candidates[1:] {
			if c > stop {
				stop = c
			}
		}
		return scoring.Round2(stop)
	}

	candidates := []float64{swingHigh * 1.001, entry + 2*atr}
	if supertrendLevel > 0 {
		candidates = append(candidates, supertrendLevel)
	}
	stop := candidates[0]
	for _, c := range candidates[1:] {
		if c < stop {
			stop = c
		}
	}
	return scoring.Round2(stop)
}

// Target places the profit objective at twice the risked distance.
func Target(direction Direction, entry, stop float64) float64 {
	risk := entry - stop
	if risk < 0 {
		risk = -risk
	}
	if direction == Long {
		return scoring.Round2(entry + 2*risk)
	}
	return scoring.Round2(entry - 2*risk)
}

// PositionSize converts the per-trade risk budget into a quantity.
// Returns 0 when the stop distance is degenerate.
func PositionSize(balance, riskPercent, entry, stop float64) float64 {
	distance := entry - stop
	if distance < 0 {
		distance = -distance
	}
	if distance == 0 {
		return 0
	}
	riskAmount := balance * riskPercent / 100
	return scoring.Round4(riskAmount / distance)
}
