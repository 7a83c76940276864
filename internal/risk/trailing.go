package risk

import (
	"trading-signal-bot/internal/scoring"
	"trading-signal-bot/internal/strategy"
)

// NextTrailingStop proposes a tightened stop for a profitable position.
// At one unit of initial risk in profit the stop moves to breakeven; at
// 1.5 units it locks in half the open profit. Stops only ever move in
// the position's favor. Returns false when no tightening applies.
func NextTrailingStop(direction strategy.Direction, entry, currentStop, price, initialRisk float64) (float64, bool) {
	if direction == strategy.Long {
		profit := price - entry
		if profit <= 0 {
			return 0, false
		}
		if profit >= 1.5*initialRisk {
			candidate := scoring.Round2(entry + 0.5*profit)
			if candidate > currentStop {
				return candidate, true
			}
			return 0, false
		}
		if profit >= initialRisk && entry > currentStop {
			return scoring.Round2(entry), true
		}
		return 0, false
	}

	profit := entry - price
	if profit <= 0 {
		return 0, false
	}
	if profit >= 1.5*initialRisk {
		candidate := scoring.Round2(entry - 0.5*profit)
		if candidate < currentStop {
			return candidate, true
		}
		return 0, false
	}
	if profit >= initialRisk && entry < currentStop {
		return scoring.Round2(entry), true
	}
	return 0, false
}
