package scoring

import (
	"time"

	talib "github.com/markcheno/go-talib"
)

// Classification buckets for the master score.
const (
	StrongBullish = "STRONG_BULLISH"
	Bullish       = "BULLISH"
	Neutral       = "NEUTRAL"
	Bearish       = "BEARISH"
	StrongBearish = "STRONG_BEARISH"
)

// WeightedIndicators are the timeframe-weighted per-indicator scores.
type WeightedIndicators struct {
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	ADX        float64 `json:"adx"`
	Supertrend float64 `json:"supertrend"`
}

// Snapshot is the full multi-timeframe analysis result for one symbol.
type Snapshot struct {
	Symbol         string                   `json:"symbol"`
	Timestamp      time.Time                `json:"timestamp"`
	Price          float64                  `json:"price"`
	Weighted       WeightedIndicators       `json:"weighted"`
	MasterScore    float64                  `json:"master_score"`
	Classification string                   `json:"classification"`
	Intervals      map[string]IntervalScore `json:"intervals"`

	// Reference carries the price-level context (S/R, ATR, swings,
	// Supertrend level) taken from the reference interval.
	Reference IntervalScore `json:"reference"`
}

var intervalRank = map[string]int{
	"1m": 1, "5m": 2, "15m": 3, "30m": 4, "1h": 5, "4h": 6, "1d": 7, "1w": 8,
}

// Aggregate combines per-interval scores into a weighted snapshot. A zero
// total weight yields all-neutral output rather than dividing by zero.
func Aggregate(symbol string, scores map[string]IntervalScore, weights map[string]float64, referenceInterval string, now time.Time) Snapshot {
	snap := Snapshot{
		Symbol:    symbol,
		Timestamp: now,
		Intervals: scores,
	}

	var totalWeight float64
	for interval := range scores {
		totalWeight += weights[interval]
	}
	if totalWeight > 0 {
		var w WeightedIndicators
		for interval, score := range scores {
			weight := weights[interval] / totalWeight
			w.RSI += score.RSI * weight
			w.MACD += score.MACD * weight
			w.ADX += score.ADX * weight
			w.Supertrend += score.Supertrend * weight
		}
		w.RSI = Round2(w.RSI)
		w.MACD = Round2(w.MACD)
		w.ADX = Round2(w.ADX)
		w.Supertrend = Round2(w.Supertrend)
		snap.Weighted = w
		snap.MasterScore = Round2(weightRSI*w.RSI + weightMACD*w.MACD +
			weightADX*w.ADX + weightSupertrend*w.Supertrend)
	}
	snap.Classification = Classify(snap.MasterScore)

	ref, ok := scores[referenceInterval]
	if !ok {
		// Fall back to the longest interval that produced a score.
		best := -1
		for interval, score := range scores {
			if rank := intervalRank[interval]; rank > best {
				best = rank
				ref = score
			}
		}
	}
	snap.Reference = ref
	snap.Price = ref.Price

	return snap
}

// Classify maps a master score onto its sentiment bucket.
func Classify(score float64) string {
	switch {
	case score > 65:
		return StrongBullish
	case score >= 55:
		return Bullish
	case score >= 45:
		return Neutral
	case score >= 35:
		return Bearish
	default:
		return StrongBearish
	}
}

const (
	crossoverFast = 9
	crossoverSlow = 11
)

// DetectCrossover checks the master-score history for an SMA(9)/SMA(11)
// crossover. Returns "BUY" when the fast average crosses above the slow,
// "SELL" on the opposite cross, "" otherwise. History is oldest first.
func DetectCrossover(history []float64) string {
	if len(history) < crossoverSlow+1 {
		return ""
	}

	fast := talib.Sma(history, crossoverFast)
	slow := talib.Sma(history, crossoverSlow)

	last := len(history) - 1
	curFast, curSlow := fast[last], slow[last]
	prevFast, prevSlow := fast[last-1], slow[last-1]

	if prevFast <= prevSlow && curFast > curSlow {
		return "BUY"
	}
	if prevFast >= prevSlow && curFast < curSlow {
		return "SELL"
	}
	return ""
}
