package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trading-signal-bot/config"
	"trading-signal-bot/internal/events"
	"trading-signal-bot/internal/marketdata"
	"trading-signal-bot/internal/notification"
	"trading-signal-bot/internal/position"
	"trading-signal-bot/internal/risk"
	"trading-signal-bot/internal/scoring"
	"trading-signal-bot/internal/strategy"
)

type fakeProvider struct {
	candles []marketdata.Candle
	price   float64
	err     error
}

func (p *fakeProvider) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]marketdata.Candle, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.candles, nil
}

func (p *fakeProvider) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if p.price <= 0 {
		return 0, errors.New("no price")
	}
	return p.price, nil
}

type fakeRepo struct {
	snapshots []*scoring.Snapshot
	appends   int
	signals   []string
	history   []float64
}

func (r *fakeRepo) AppendCandles(ctx context.Context, symbol, timeframe string, candles []marketdata.Candle, maxStored int) error {
	r.appends++
	return nil
}

func (r *fakeRepo) SaveSnapshot(ctx context.Context, snap *scoring.Snapshot) error {
	r.snapshots = append(r.snapshots, snap)
	return nil
}

func (r *fakeRepo) GetScoreHistory(ctx context.Context, symbol string, limit int) ([]float64, error) {
	return r.history, nil
}

func (r *fakeRepo) LogSignal(ctx context.Context, symbol, signalType string, value float64, message string) error {
	r.signals = append(r.signals, signalType)
	return nil
}

type fakeStore struct {
	positions []*position.Position
	trades    []*position.Trade
}

func (s *fakeStore) SavePosition(ctx context.Context, pos *position.Position) error {
	s.positions = append(s.positions, pos)
	return nil
}

func (s *fakeStore) UpdateStopLoss(ctx context.Context, positionID string, newStop float64) error {
	return nil
}

func (s *fakeStore) ClosePosition(ctx context.Context, trade *position.Trade) error {
	s.trades = append(s.trades, trade)
	return nil
}

func (s *fakeStore) ListOpenPositions(ctx context.Context, symbol string) ([]*position.Position, error) {
	var out []*position.Position
	for _, pos := range s.positions {
		if pos.Status == position.StatusOpen && (symbol == "" || pos.Symbol == symbol) {
			out = append(out, pos)
		}
	}
	return out, nil
}

type fakeLedger struct{}

func (fakeLedger) CountOpenPositions(ctx context.Context) (int, error) { return 0, nil }

func (fakeLedger) CountTradesSince(ctx context.Context, t time.Time) (int, error) { return 0, nil }

func (fakeLedger) SumPnLSince(ctx context.Context, t time.Time) (float64, error) { return 0, nil }

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func uptrendCandles(n int, start float64) []marketdata.Candle {
	candles := make([]marketdata.Candle, n)
	price := start
	for i := 0; i < n; i++ {
		open := price
		close := price + 1
		volume := 100.0
		if i == n-1 {
			volume = 300 // breakout volume spike
		}
		candles[i] = marketdata.Candle{
			OpenTime: int64(i) * 3_600_000,
			Open:     open,
			High:     math.Max(open, close) + 0.5,
			Low:      math.Min(open, close) - 0.5,
			Close:    close,
			Volume:   volume,
		}
		price = close
	}
	return candles
}

func testConfig(tradingEnabled bool) *config.Config {
	return &config.Config{
		AnalysisConfig: config.AnalysisConfig{
			Symbols:               []string{"BTCUSDT"},
			Intervals:             []string{"1h"},
			TimeframeWeights:      map[string]float64{"1h": 1.0},
			ReferenceInterval:     "1h",
			UpdateIntervalMinutes: 5,
			CandleFetchLimit:      150,
			MaxCandlesStored:      500,
		},
		TradingConfig: config.TradingConfig{
			Enabled:               tradingEnabled,
			AccountBalance:        10000,
			RiskPerTradePercent:   1.5,
			DailyLossLimitPercent: 4,
			MaxOpenPositions:      3,
			MaxTradesPerHour:      2,
			TradeCooldownSeconds:  600,
			TimeExitSeconds:       14400,
			MinADX:                20,
			ATRSpikeMultiplier:    2,
		},
	}
}

func newTestEngine(cfg *config.Config, provider marketdata.Provider, repo *fakeRepo, store *fakeStore) *Engine {
	log := zerolog.Nop()
	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	bus := events.NewEventBus()
	notifier := notification.NewManager(false)
	gate := risk.NewGate(risk.Config{
		DailyLossLimitPercent: cfg.TradingConfig.DailyLossLimitPercent,
		MaxOpenPositions:      cfg.TradingConfig.MaxOpenPositions,
		MaxTradesPerHour:      cfg.TradingConfig.MaxTradesPerHour,
		CooldownSeconds:       cfg.TradingConfig.TradeCooldownSeconds,
	}, fakeLedger{}, clock, log)
	positions := position.NewManager(store, bus, notifier, clock, 4*time.Hour, log)

	return New(cfg, provider, scoring.NewScorer(log), gate, positions, repo, nil, bus, notifier, nil, clock, log)
}

func TestRunCycleProducesSnapshot(t *testing.T) {
	provider := &fakeProvider{candles: uptrendCandles(150, 100), price: 251}
	repo := &fakeRepo{}
	eng := newTestEngine(testConfig(false), provider, repo, &fakeStore{})

	eng.RunCycle(context.Background())

	if len(repo.snapshots) != 1 {
		t.Fatalf("saved %d snapshots, want 1", len(repo.snapshots))
	}
	if repo.appends != 1 {
		t.Errorf("appended candles %d times, want 1", repo.appends)
	}

	snap, ok := eng.LatestSnapshot("BTCUSDT")
	if !ok {
		t.Fatal("no in-memory snapshot")
	}
	if snap.Price != 251 {
		t.Errorf("price = %v, want live ticker price 251", snap.Price)
	}
	if snap.MasterScore <= 50 {
		t.Errorf("master score = %v, want above 50 for an uptrend", snap.MasterScore)
	}
	if snap.Classification != scoring.StrongBullish {
		t.Errorf("classification = %s, want %s", snap.Classification, scoring.StrongBullish)
	}
}

func TestRunCycleSkipsSymbolWithoutData(t *testing.T) {
	provider := &fakeProvider{err: errors.New("exchange down")}
	repo := &fakeRepo{}
	eng := newTestEngine(testConfig(false), provider, repo, &fakeStore{})

	eng.RunCycle(context.Background())

	if len(repo.snapshots) != 0 {
		t.Errorf("saved %d snapshots without data", len(repo.snapshots))
	}
	if _, ok := eng.LatestSnapshot("BTCUSDT"); ok {
		t.Error("in-memory snapshot exists without data")
	}
}

func TestRunCycleOpensBreakoutPosition(t *testing.T) {
	// Strong uptrend with the live price far through the pivot
	// resistance and a volume spike on the last candle.
	provider := &fakeProvider{candles: uptrendCandles(150, 100), price: 280}
	repo := &fakeRepo{}
	store := &fakeStore{}
	eng := newTestEngine(testConfig(true), provider, repo, store)

	eng.RunCycle(context.Background())

	if len(store.positions) != 1 {
		t.Fatalf("opened %d positions, want 1", len(store.positions))
	}
	pos := store.positions[0]
	if pos.Direction != strategy.Long || pos.SetupKind != strategy.SetupBreakout {
		t.Errorf("got %s %s, want %s %s", pos.Direction, pos.SetupKind, strategy.Long, strategy.SetupBreakout)
	}
	if pos.StopLoss >= pos.EntryPrice {
		t.Errorf("stop %v not below entry %v", pos.StopLoss, pos.EntryPrice)
	}
	if pos.Target <= pos.EntryPrice {
		t.Errorf("target %v not above entry %v", pos.Target, pos.EntryPrice)
	}
	if pos.Size <= 0 {
		t.Errorf("size = %v, want positive", pos.Size)
	}

	if !containsSignal(repo.signals, "ENTRY_LONG") {
		t.Errorf("signals = %v, want an ENTRY_LONG record", repo.signals)
	}

	// The same snapshot on the next cycle must not stack a second
	// position on the symbol.
	eng.RunCycle(context.Background())
	if len(store.positions) != 1 {
		t.Errorf("opened %d positions after second cycle, want 1", len(store.positions))
	}
}

func containsSignal(signals []string, want string) bool {
	for _, s := range signals {
		if s == want {
			return true
		}
	}
	return false
}

// bullishReversalSnapshot passes the market filters and satisfies the
// reversal detector: oversold weighted RSI, bullish master score, price
// near support with a real trend behind it.
func bullishReversalSnapshot() scoring.Snapshot {
	return scoring.Snapshot{
		Symbol:      "BTCUSDT",
		Price:       100,
		MasterScore: 60,
		Weighted:    scoring.WeightedIndicators{RSI: 25, MACD: 60, ADX: 30, Supertrend: 50},
		Reference: scoring.IntervalScore{
			Interval:   "1h",
			RSIExtreme: true,
			Support:    99.5,
			Resistance: 110,
			ADXRaw:     30,
			ATR:        1,
			AvgATR:     1,
		},
		Intervals: map[string]scoring.IntervalScore{"1h": {Interval: "1h", Supertrend: 50}},
	}
}

func TestEvaluateEntryAnnouncesSetupWhenFlat(t *testing.T) {
	repo := &fakeRepo{}
	eng := newTestEngine(testConfig(false), &fakeProvider{}, repo, &fakeStore{})

	eng.evaluateEntry(context.Background(), "BTCUSDT", bullishReversalSnapshot(), &symbolState{})

	if !containsSignal(repo.signals, "REVERSAL_BULLISH") {
		t.Errorf("signals = %v, want a REVERSAL_BULLISH record", repo.signals)
	}
}

func TestEvaluateEntrySkipsDetectionWithOpenPosition(t *testing.T) {
	repo := &fakeRepo{}
	store := &fakeStore{positions: []*position.Position{{
		ID:     "pos-1",
		Symbol: "BTCUSDT",
		Status: position.StatusOpen,
	}}}
	eng := newTestEngine(testConfig(true), &fakeProvider{}, repo, store)

	eng.evaluateEntry(context.Background(), "BTCUSDT", bullishReversalSnapshot(), &symbolState{})

	if len(repo.signals) != 0 {
		t.Errorf("signals = %v, want none while a position is open", repo.signals)
	}
	if len(store.positions) != 1 {
		t.Errorf("positions = %d, want only the seeded one", len(store.positions))
	}
}

func TestEvaluateEntrySkipsDetectionDuringCooldown(t *testing.T) {
	repo := &fakeRepo{}
	eng := newTestEngine(testConfig(true), &fakeProvider{}, repo, &fakeStore{})

	eng.gate.StampEntry("BTCUSDT")
	eng.evaluateEntry(context.Background(), "BTCUSDT", bullishReversalSnapshot(), &symbolState{})

	if len(repo.signals) != 0 {
		t.Errorf("signals = %v, want none during the symbol cooldown", repo.signals)
	}
}

func TestRunCycleTradingDisabled(t *testing.T) {
	provider := &fakeProvider{candles: uptrendCandles(150, 100), price: 280}
	repo := &fakeRepo{}
	store := &fakeStore{}
	eng := newTestEngine(testConfig(false), provider, repo, store)

	eng.RunCycle(context.Background())

	if len(store.positions) != 0 {
		t.Errorf("opened %d positions with trading disabled", len(store.positions))
	}
	if len(repo.snapshots) != 1 {
		t.Errorf("saved %d snapshots, want analysis to continue", len(repo.snapshots))
	}
}
