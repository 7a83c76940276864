package scoring

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"trading-signal-bot/internal/marketdata"
)

// trendCandles builds a synthetic window whose closes move by step each
// candle, with a small high/low range around the body.
func trendCandles(n int, start, step float64) []marketdata.Candle {
	candles := make([]marketdata.Candle, n)
	price := start
	for i := 0; i < n; i++ {
		open := price
		close := price + step
		candles[i] = marketdata.Candle{
			OpenTime: int64(i) * 60_000,
			Open:     open,
			High:     math.Max(open, close) + 0.5,
			Low:      math.Min(open, close) - 0.5,
			Close:    close,
			Volume:   100,
		}
		price = close
	}
	return candles
}

func TestScoreIntervalEmptyWindow(t *testing.T) {
	scorer := NewScorer(zerolog.Nop())

	score := scorer.ScoreInterval("1h", nil)

	if score.Score != 50 {
		t.Errorf("score = %v, want neutral 50", score.Score)
	}
	if score.RSI != 50 || score.MACD != 50 || score.ADX != 50 || score.Supertrend != 50 {
		t.Errorf("indicators not neutral: %+v", score)
	}
}

func TestScoreIntervalShortWindow(t *testing.T) {
	scorer := NewScorer(zerolog.Nop())

	score := scorer.ScoreInterval("1h", trendCandles(5, 100, 1))

	if score.Score != 50 {
		t.Errorf("score = %v, want neutral 50 on a 5-candle window", score.Score)
	}
	if score.Price <= 0 {
		t.Errorf("price = %v, want last close", score.Price)
	}
}

func TestScoreIntervalUptrend(t *testing.T) {
	scorer := NewScorer(zerolog.Nop())

	score := scorer.ScoreInterval("1h", trendCandles(150, 100, 1))

	if score.RSI <= 50 {
		t.Errorf("RSI = %v, want above 50 in a steady uptrend", score.RSI)
	}
	if !score.RSIExtreme {
		t.Error("RSIExtreme = false, want true for a monotonic rise")
	}
	if score.MACD <= 50 {
		t.Errorf("MACD score = %v, want above 50", score.MACD)
	}
	if score.Supertrend != 100 {
		t.Errorf("supertrend score = %v, want 100", score.Supertrend)
	}
	if score.Score <= 50 {
		t.Errorf("composite score = %v, want above 50", score.Score)
	}
	if score.ADXRaw <= 0 {
		t.Errorf("raw ADX = %v, want positive", score.ADXRaw)
	}
	if score.Support >= score.Resistance {
		t.Errorf("support %v not below resistance %v", score.Support, score.Resistance)
	}
	if score.ATR <= 0 || score.AvgATR <= 0 {
		t.Errorf("ATR = %v, avg ATR = %v, want positive", score.ATR, score.AvgATR)
	}
	if score.SwingLow >= score.SwingHigh {
		t.Errorf("swing low %v not below swing high %v", score.SwingLow, score.SwingHigh)
	}
	if score.SupertrendLevel <= 0 || score.SupertrendLevel >= score.Price {
		t.Errorf("supertrend level = %v, want below price %v in an uptrend", score.SupertrendLevel, score.Price)
	}
}

func TestScoreIntervalDowntrend(t *testing.T) {
	scorer := NewScorer(zerolog.Nop())

	score := scorer.ScoreInterval("1h", trendCandles(150, 400, -1))

	if score.RSI >= 50 {
		t.Errorf("RSI = %v, want below 50 in a steady downtrend", score.RSI)
	}
	if score.MACD >= 50 {
		t.Errorf("MACD score = %v, want below 50", score.MACD)
	}
	if score.Supertrend != 0 {
		t.Errorf("supertrend score = %v, want 0", score.Supertrend)
	}
	if score.Score >= 50 {
		t.Errorf("composite score = %v, want below 50", score.Score)
	}
}

func TestVolumeProfile(t *testing.T) {
	volumes := make([]float64, 20)
	for i := range volumes {
		volumes[i] = 100
	}
	volumes[19] = 200

	ratio, high := volumeProfile(volumes)
	if !high {
		t.Error("volume spike not flagged as high")
	}
	if ratio <= 1.5 {
		t.Errorf("ratio = %v, want above 1.5", ratio)
	}

	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 100
	}
	ratio, high = volumeProfile(flat)
	if high {
		t.Error("flat volume flagged as high")
	}
	if ratio != 1 {
		t.Errorf("ratio = %v, want 1", ratio)
	}
}

func TestLastValueKeepsZeroSamples(t *testing.T) {
	// A MACD histogram can legitimately end at exactly zero.
	if v, ok := lastValue([]float64{1.2, -0.4, 0}); !ok || v != 0 {
		t.Errorf("lastValue = (%v, %v), want (0, true)", v, ok)
	}

	if v, ok := lastValue([]float64{0.5, math.NaN(), math.NaN()}); !ok || v != 0.5 {
		t.Errorf("lastValue = (%v, %v), want (0.5, true)", v, ok)
	}

	if _, ok := lastValue(nil); ok {
		t.Error("lastValue reported a sample in an empty series")
	}
	if _, ok := lastValue([]float64{math.NaN()}); ok {
		t.Error("lastValue reported a sample in an all-NaN series")
	}
}

func TestRoundHelpers(t *testing.T) {
	if got := Round2(97.902); got != 97.9 {
		t.Errorf("Round2(97.902) = %v, want 97.9", got)
	}
	if got := Round4(71.42857); got != 71.4286 {
		t.Errorf("Round4(71.42857) = %v, want 71.4286", got)
	}
}
