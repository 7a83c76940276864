package strategy

import (
	"testing"

	"trading-signal-bot/internal/scoring"
)

func reversalSnapshot() scoring.Snapshot {
	return scoring.Snapshot{
		Symbol: "BTCUSDT",
		Price:  100,
		Weighted: scoring.WeightedIndicators{
			RSI: 25,
			ADX: 30,
		},
		MasterScore: 60,
		Reference: scoring.IntervalScore{
			RSIExtreme: true,
			Support:    99.5,
			Resistance: 110,
		},
	}
}

func TestDetectReversalBullish(t *testing.T) {
	setup, ok := DetectReversal(reversalSnapshot())
	if !ok {
		t.Fatal("expected a reversal setup")
	}
	if setup.Kind != SetupReversal || setup.Bias != BiasBullish {
		t.Errorf("got %s %s, want %s %s", setup.Kind, setup.Bias, SetupReversal, BiasBullish)
	}
}

func TestDetectReversalBearish(t *testing.T) {
	snap := reversalSnapshot()
	snap.Weighted.RSI = 75
	snap.MasterScore = 40
	snap.Reference.Support = 90
	snap.Reference.Resistance = 100.5

	setup, ok := DetectReversal(snap)
	if !ok {
		t.Fatal("expected a reversal setup")
	}
	if setup.Bias != BiasBearish {
		t.Errorf("bias = %s, want %s", setup.Bias, BiasBearish)
	}
}

func TestDetectReversalRequiresTrend(t *testing.T) {
	snap := reversalSnapshot()
	snap.Weighted.ADX = 20

	if _, ok := DetectReversal(snap); ok {
		t.Error("reversal detected with weak weighted ADX")
	}
}

func TestDetectReversalRequiresExtreme(t *testing.T) {
	snap := reversalSnapshot()
	snap.Reference.RSIExtreme = false

	if _, ok := DetectReversal(snap); ok {
		t.Error("reversal detected without an RSI extreme")
	}
}

func TestDetectReversalRequiresNearLevel(t *testing.T) {
	snap := reversalSnapshot()
	snap.Reference.Support = 50
	snap.Reference.Resistance = 150

	if _, ok := DetectReversal(snap); ok {
		t.Error("reversal detected far from any level")
	}
}

func TestDetectBreakoutBullish(t *testing.T) {
	snap := scoring.Snapshot{
		Price:       100,
		MasterScore: 60,
		Reference: scoring.IntervalScore{
			Support:    90,
			Resistance: 100.5,
		},
	}
	history := []float64{22, 22, 22, 28}

	setup, ok := DetectBreakout(snap, history)
	if !ok {
		t.Fatal("expected a breakout setup")
	}
	if setup.Kind != SetupBreakout || setup.Bias != BiasBullish {
		t.Errorf("got %s %s, want %s %s", setup.Kind, setup.Bias, SetupBreakout, BiasBullish)
	}

	snap.MasterScore = 40
	setup, ok = DetectBreakout(snap, history)
	if !ok || setup.Bias != BiasBearish {
		t.Errorf("bearish breakout: ok=%v bias=%s", ok, setup.Bias)
	}
}

func TestDetectBreakoutRequiresRisingADX(t *testing.T) {
	snap := scoring.Snapshot{
		Price:       100,
		MasterScore: 60,
		Reference: scoring.IntervalScore{
			Resistance: 100.5,
		},
	}

	if _, ok := DetectBreakout(snap, []float64{28, 28, 28, 28}); ok {
		t.Error("breakout detected with flat ADX")
	}
	if _, ok := DetectBreakout(snap, []float64{22, 28}); ok {
		t.Error("breakout detected with too little ADX history")
	}
}

func TestAdxRising(t *testing.T) {
	if !adxRising([]float64{20, 20, 20, 25}) {
		t.Error("rising series not detected")
	}
	if adxRising([]float64{25, 25, 25, 20}) {
		t.Error("falling series detected as rising")
	}
	if adxRising([]float64{20, 25}) {
		t.Error("short series detected as rising")
	}
}

func TestNearLevel(t *testing.T) {
	if !nearLevel(100, 99.5) {
		t.Error("99.5 should be near 100")
	}
	if nearLevel(100, 95) {
		t.Error("95 should not be near 100")
	}
	if nearLevel(100, 0) {
		t.Error("zero level should never be near")
	}
}
