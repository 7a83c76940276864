package strategy

import (
	"trading-signal-bot/internal/scoring"
)

// EntrySignal is a fully specified trade intent.
type EntrySignal struct {
	Direction Direction `json:"direction"`
	Kind      SetupKind `json:"kind"`
	Reason    string    `json:"reason"`
	Entry     float64   `json:"entry"`
	StopLoss  float64   `json:"stop_loss"`
	Target    float64   `json:"target"`
	Size      float64   `json:"size"`
}

// EvaluateEntry runs the four entry rule families in fixed order:
// breakout long, reversal long, breakout short, reversal short. The
// first family whose conditions all hold wins; reversal entries
// additionally require a matching detected reversal setup.
func EvaluateEntry(snap scoring.Snapshot, reversal *Setup) (Direction, SetupKind, string, bool) {
	ref := snap.Reference
	price := snap.Price
	if price <= 0 {
		return "", "", "", false
	}

	if snap.MasterScore > 60 &&
		allSupertrendsAgree(snap, 100) &&
		ref.Resistance > 0 && price > ref.Resistance*1.002 &&
		ref.HighVolume {
		return Long, SetupBreakout, "resistance breakout on high volume", true
	}

	if reversal != nil && reversal.Bias == BiasBullish &&
		snap.MasterScore > 55 &&
		snap.Weighted.MACD > 50 &&
		nearLevel(price, ref.Support) {
		return Long, SetupReversal, "bullish reversal at support", true
	}

	if snap.MasterScore < 40 &&
		allSupertrendsAgree(snap, 0) &&
		ref.Support > 0 && price < ref.Support*0.998 &&
		ref.HighVolume {
		return Short, SetupBreakout, "support breakdown on high volume", true
	}

	if reversal != nil && reversal.Bias == BiasBearish &&
		snap.MasterScore < 45 &&
		snap.Weighted.MACD < 50 &&
		nearLevel(price, ref.Resistance) {
		return Short, SetupReversal, "bearish reversal at resistance", true
	}

	return "", "", "", false
}

// allSupertrendsAgree reports whether every scored interval's supertrend
// landed on the given value (100 all-up, 0 all-down).
func allSupertrendsAgree(snap scoring.Snapshot, value float64) bool {
	if len(snap.Intervals) == 0 {
		return false
	}
	for _, score := range snap.Intervals {
		if score.Supertrend != value {
			return false
		}
	}
	return true
}
