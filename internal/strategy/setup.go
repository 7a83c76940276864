package strategy

import (
	"trading-signal-bot/internal/scoring"
)

// Direction of a position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Bias of a detected setup.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
)

// SetupKind distinguishes the two setup families.
type SetupKind string

const (
	SetupReversal SetupKind = "REVERSAL"
	SetupBreakout SetupKind = "BREAKOUT"
)

// Setup is an advisory market condition. Detection alone never opens a
// position; the entry rules decide that.
type Setup struct {
	Kind   SetupKind `json:"kind"`
	Bias   Bias      `json:"bias"`
	Reason string    `json:"reason"`
}

const levelProximity = 0.01 // within 1% of a level counts as "near"

func nearLevel(price, level float64) bool {
	if price <= 0 || level <= 0 {
		return false
	}
	diff := price - level
	if diff < 0 {
		diff = -diff
	}
	return diff/price <= levelProximity
}

// DetectReversal looks for an exhausted move at a key level: RSI at an
// extreme, price near support or resistance, a real trend behind the
// move, and the master score diverging against the RSI extreme.
func DetectReversal(snap scoring.Snapshot) (Setup, bool) {
	ref := snap.Reference
	if !ref.RSIExtreme {
		return Setup{}, false
	}
	if !nearLevel(snap.Price, ref.Support) && !nearLevel(snap.Price, ref.Resistance) {
		return Setup{}, false
	}
	if snap.Weighted.ADX < 25 {
		return Setup{}, false
	}

	if snap.Weighted.RSI > 70 && snap.MasterScore < 45 {
		return Setup{
			Kind:   SetupReversal,
			Bias:   BiasBearish,
			Reason: "overbought RSI with bearish master score at resistance",
		}, true
	}
	if snap.Weighted.RSI < 30 && snap.MasterScore > 55 {
		return Setup{
			Kind:   SetupReversal,
			Bias:   BiasBullish,
			Reason: "oversold RSI with bullish master score at support",
		}, true
	}
	return Setup{}, false
}

// DetectBreakout looks for a strengthening trend pressing a level: RSI
// not yet extreme, ADX rising, price near support or resistance, and a
// decisively directional master score. adxHistory is oldest first.
func DetectBreakout(snap scoring.Snapshot, adxHistory []float64) (Setup, bool) {
	ref := snap.Reference
	if ref.RSIExtreme {
		return Setup{}, false
	}
	if !adxRising(adxHistory) {
		return Setup{}, false
	}
	if !nearLevel(snap.Price, ref.Support) && !nearLevel(snap.Price, ref.Resistance) {
		return Setup{}, false
	}

	if snap.MasterScore > 55 {
		return Setup{
			Kind:   SetupBreakout,
			Bias:   BiasBullish,
			Reason: "rising ADX with bullish master score at resistance",
		}, true
	}
	if snap.MasterScore < 45 {
		return Setup{
			Kind:   SetupBreakout,
			Bias:   BiasBearish,
			Reason: "rising ADX with bearish master score at support",
		}, true
	}
	return Setup{}, false
}

// adxRising reports whether the newest ADX reading exceeds the mean of
// the three readings before it.
func adxRising(history []float64) bool {
	n := len(history)
	if n < 4 {
		return false
	}
	mean := (history[n-2] + history[n-3] + history[n-4]) / 3
	return history[n-1] > mean
}
