package scoring

import (
	"testing"
	"time"
)

func TestClassifyBands(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{80, StrongBullish},
		{65.01, StrongBullish},
		{65, Bullish},
		{55, Bullish},
		{54.99, Neutral},
		{50, Neutral},
		{45, Neutral},
		{44.99, Bearish},
		{35, Bearish},
		{34.99, StrongBearish},
		{10, StrongBearish},
	}
	for _, tc := range cases {
		if got := Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestAggregateWeighted(t *testing.T) {
	scores := map[string]IntervalScore{
		"1h": {Interval: "1h", RSI: 60, MACD: 70, ADX: 50, Supertrend: 100, Price: 101},
		"4h": {Interval: "4h", RSI: 40, MACD: 30, ADX: 50, Supertrend: 0, Price: 102},
	}
	weights := map[string]float64{"1h": 0.5, "4h": 0.5}

	snap := Aggregate("BTCUSDT", scores, weights, "4h", time.Now())

	if snap.Weighted.RSI != 50 || snap.Weighted.MACD != 50 || snap.Weighted.ADX != 50 || snap.Weighted.Supertrend != 50 {
		t.Errorf("unexpected weighted indicators: %+v", snap.Weighted)
	}
	if snap.MasterScore != 50 {
		t.Errorf("master score = %v, want 50", snap.MasterScore)
	}
	if snap.Classification != Neutral {
		t.Errorf("classification = %s, want %s", snap.Classification, Neutral)
	}
	if snap.Reference.Interval != "4h" {
		t.Errorf("reference interval = %s, want 4h", snap.Reference.Interval)
	}
	if snap.Price != 102 {
		t.Errorf("price = %v, want reference price 102", snap.Price)
	}
}

func TestAggregateSkewedWeights(t *testing.T) {
	scores := map[string]IntervalScore{
		"1h": {Interval: "1h", RSI: 80, MACD: 80, ADX: 80, Supertrend: 100},
		"4h": {Interval: "4h", RSI: 50, MACD: 50, ADX: 50, Supertrend: 50},
	}
	weights := map[string]float64{"1h": 0.75, "4h": 0.25}

	snap := Aggregate("BTCUSDT", scores, weights, "1h", time.Now())

	if snap.Weighted.RSI != 72.5 {
		t.Errorf("weighted RSI = %v, want 72.5", snap.Weighted.RSI)
	}
	if snap.Weighted.Supertrend != 87.5 {
		t.Errorf("weighted supertrend = %v, want 87.5", snap.Weighted.Supertrend)
	}
	if snap.Classification != StrongBullish {
		t.Errorf("classification = %s, want %s", snap.Classification, StrongBullish)
	}
}

func TestAggregateZeroWeight(t *testing.T) {
	scores := map[string]IntervalScore{
		"1h": {Interval: "1h", RSI: 60, MACD: 60, ADX: 60, Supertrend: 100},
	}

	snap := Aggregate("BTCUSDT", scores, map[string]float64{}, "1h", time.Now())

	if snap.MasterScore != 0 {
		t.Errorf("master score = %v, want 0 on zero total weight", snap.MasterScore)
	}
	if snap.Weighted != (WeightedIndicators{}) {
		t.Errorf("weighted = %+v, want zero value", snap.Weighted)
	}
}

func TestAggregateReferenceFallback(t *testing.T) {
	scores := map[string]IntervalScore{
		"15m": {Interval: "15m", Price: 99},
		"4h":  {Interval: "4h", Price: 100},
	}
	weights := map[string]float64{"15m": 0.5, "4h": 0.5}

	snap := Aggregate("ETHUSDT", scores, weights, "1d", time.Now())

	if snap.Reference.Interval != "4h" {
		t.Errorf("fallback reference = %s, want longest scored interval 4h", snap.Reference.Interval)
	}
	if snap.Price != 100 {
		t.Errorf("price = %v, want 100", snap.Price)
	}
}

func TestDetectCrossover(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 50
	}
	if got := DetectCrossover(flat); got != "" {
		t.Errorf("flat history crossover = %q, want none", got)
	}

	up := make([]float64, 11)
	for i := range up {
		up[i] = 50
	}
	up = append(up, 60)
	if got := DetectCrossover(up); got != "BUY" {
		t.Errorf("upward cross = %q, want BUY", got)
	}

	down := make([]float64, 11)
	for i := range down {
		down[i] = 50
	}
	down = append(down, 40)
	if got := DetectCrossover(down); got != "SELL" {
		t.Errorf("downward cross = %q, want SELL", got)
	}

	// One sample short of the slow window plus its predecessor.
	short := make([]float64, 11)
	for i := range short {
		short[i] = 50
	}
	if got := DetectCrossover(short); got != "" {
		t.Errorf("short history crossover = %q, want none", got)
	}
}
