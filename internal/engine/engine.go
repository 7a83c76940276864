package engine

import (
	"context"
	"fmt"
	"sync"
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

const (
	adxHistoryDepth   = 10
	scoreHistoryDepth = 50
)

// Repository is the persistence surface the engine writes through.
type Repository interface {
	AppendCandles(ctx context.Context, symbol, timeframe string, candles []marketdata.Candle, maxStored int) error
	SaveSnapshot(ctx context.Context, snap *scoring.Snapshot) error
	GetScoreHistory(ctx context.Context, symbol string, limit int) ([]float64, error)
	LogSignal(ctx context.Context, symbol, signalType string, value float64, message string) error
}

// SnapshotCache is the optional hot-projection sink.
type SnapshotCache interface {
	Set(ctx context.Context, snap *scoring.Snapshot) error
}

// symbolState is engine-owned per-symbol state that survives cycles.
type symbolState struct {
	adxHistory []float64 // raw ADX readings, oldest first, capped
}

// Engine drives the analysis cycle: fetch, score, aggregate, manage
// positions, detect setups, evaluate entries. Symbols are processed
// sequentially; one symbol's failure never stops the others.
type Engine struct {
	cfg       *config.Config
	market    marketdata.Provider
	scorer    *scoring.Scorer
	gate      *risk.Gate
	positions *position.Manager
	repo      Repository
	snapshots SnapshotCache // may be nil
	bus       *events.EventBus
	notifier  *notification.Manager
	alerts    *notification.AlertRules
	clock     Clock
	log       zerolog.Logger

	mu     sync.RWMutex
	states map[string]*symbolState
	latest map[string]*scoring.Snapshot

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func New(cfg *config.Config, market marketdata.Provider, scorer *scoring.Scorer, gate *risk.Gate, positions *position.Manager, repo Repository, snapshots SnapshotCache, bus *events.EventBus, notifier *notification.Manager, alerts *notification.AlertRules, clock Clock, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		market:    market,
		scorer:    scorer,
		gate:      gate,
		positions: positions,
		repo:      repo,
		snapshots: snapshots,
		bus:       bus,
		notifier:  notifier,
		alerts:    alerts,
		clock:     clock,
		log:       log.With().Str("component", "engine").Logger(),
		states:    make(map[string]*symbolState),
		latest:    make(map[string]*scoring.Snapshot),
		stopChan:  make(chan struct{}),
	}
}

// Start launches the cycle loop. The first cycle runs immediately.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		interval := time.Duration(e.cfg.AnalysisConfig.UpdateIntervalMinutes) * time.Minute
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		e.log.Info().Dur("interval", interval).Strs("symbols", e.cfg.AnalysisConfig.Symbols).Msg("engine started")
		e.RunCycle(ctx)

		for {
			select {
			case <-ticker.C:
				e.RunCycle(ctx)
			case <-e.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the cycle loop and waits for the current cycle to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	close(e.stopChan)
	e.wg.Wait()
	e.log.Info().Msg("engine stopped")
}

// RunCycle processes every configured symbol once.
func (e *Engine) RunCycle(ctx context.Context) {
	for _, symbol := range e.cfg.AnalysisConfig.Symbols {
		e.runSymbol(ctx, symbol)
	}
}

// runSymbol isolates one symbol's processing: panics and errors are
// logged and the cycle moves on.
func (e *Engine) runSymbol(ctx context.Context, symbol string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("symbol", symbol).Interface("panic", r).Msg("symbol processing panicked")
			e.bus.PublishError("engine", fmt.Sprintf("panic processing %s", symbol), nil)
		}
	}()

	if err := e.processSymbol(ctx, symbol); err != nil {
		e.log.Error().Err(err).Str("symbol", symbol).Msg("symbol processing failed")
		e.bus.PublishError("engine", fmt.Sprintf("processing %s", symbol), err)
	}
}

func (e *Engine) processSymbol(ctx context.Context, symbol string) error {
	analysisCfg := e.cfg.AnalysisConfig

	scores := make(map[string]scoring.IntervalScore)
	for _, interval := range analysisCfg.Intervals {
		candles, err := e.market.GetKlines(ctx, symbol, interval, analysisCfg.CandleFetchLimit)
		if err != nil {
			e.log.Warn().Err(err).Str("symbol", symbol).Str("interval", interval).Msg("kline fetch failed, skipping interval")
			continue
		}
		if len(candles) == 0 {
			continue
		}

		if err := e.repo.AppendCandles(ctx, symbol, interval, candles, analysisCfg.MaxCandlesStored); err != nil {
			e.log.Warn().Err(err).Str("symbol", symbol).Str("interval", interval).Msg("candle persistence failed")
		}

		scores[interval] = e.scorer.ScoreInterval(interval, candles)
	}

	if len(scores) == 0 {
		// Nothing fetched: skip the symbol without touching its state.
		e.log.Warn().Str("symbol", symbol).Msg("no interval data, skipping symbol")
		return nil
	}

	snap := scoring.Aggregate(symbol, scores, analysisCfg.TimeframeWeights, analysisCfg.ReferenceInterval, e.clock.Now())

	if price, err := e.market.GetCurrentPrice(ctx, symbol); err == nil && price > 0 {
		snap.Price = scoring.Round2(price)
	}
	// On fetch failure snap.Price keeps the reference interval's last
	// close; 0 means no price is known at all.

	state := e.state(symbol)
	if snap.Reference.ADXRaw > 0 {
		state.adxHistory = append(state.adxHistory, snap.Reference.ADXRaw)
		if len(state.adxHistory) > adxHistoryDepth {
			state.adxHistory = state.adxHistory[len(state.adxHistory)-adxHistoryDepth:]
		}
	}

	e.mu.Lock()
	e.latest[symbol] = &snap
	e.mu.Unlock()

	if err := e.repo.SaveSnapshot(ctx, &snap); err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("snapshot persistence failed")
	}
	if e.snapshots != nil {
		if err := e.snapshots.Set(ctx, &snap); err != nil {
			e.log.Warn().Err(err).Str("symbol", symbol).Msg("snapshot cache write failed")
		}
	}

	e.log.Info().
		Str("symbol", symbol).
		Float64("master_score", snap.MasterScore).
		Str("classification", snap.Classification).
		Float64("price", snap.Price).
		Msg("scores updated")
	e.bus.PublishScoreUpdate(symbol, snap.MasterScore, snap.Classification, snap.Price)

	e.fireAlerts(ctx, symbol, snap)
	e.checkCrossover(ctx, symbol, snap)

	// Open positions are managed before anything can block entries.
	if err := e.positions.ManageSymbol(ctx, symbol, snap.Price, snap.MasterScore, snap.Weighted.Supertrend); err != nil {
		e.log.Error().Err(err).Str("symbol", symbol).Msg("position management failed")
	}

	e.evaluateEntry(ctx, symbol, snap, state)
	return nil
}

func (e *Engine) fireAlerts(ctx context.Context, symbol string, snap scoring.Snapshot) {
	if e.alerts == nil || !e.cfg.AlertsConfig.Enabled {
		return
	}
	for _, alert := range e.alerts.Evaluate(symbol, snap.MasterScore, snap.Weighted.RSI) {
		e.log.Info().Str("symbol", symbol).Str("alert", alert.Type).Msg(alert.Message)
		e.bus.PublishAlert(symbol, alert.Type, alert.Message, alert.Value)
		if err := e.notifier.SendAlert(symbol, alert.Type, alert.Message); err != nil {
			e.log.Warn().Err(err).Msg("alert notification failed")
		}
		if err := e.repo.LogSignal(ctx, symbol, alert.Type, alert.Value, alert.Message); err != nil {
			e.log.Warn().Err(err).Msg("alert signal log failed")
		}
	}
}

func (e *Engine) checkCrossover(ctx context.Context, symbol string, snap scoring.Snapshot) {
	history, err := e.repo.GetScoreHistory(ctx, symbol, scoreHistoryDepth)
	if err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("score history fetch failed")
		return
	}
	signal := scoring.DetectCrossover(history)
	if signal == "" {
		return
	}

	e.log.Info().Str("symbol", symbol).Str("signal", signal).Msg("score SMA crossover")
	e.bus.PublishCrossover(symbol, signal, snap.MasterScore)
	message := fmt.Sprintf("score SMA crossover %s at master score %.2f", signal, snap.MasterScore)
	if err := e.repo.LogSignal(ctx, symbol, "CROSSOVER_"+signal, snap.MasterScore, message); err != nil {
		e.log.Warn().Err(err).Msg("crossover signal log failed")
	}
}

func (e *Engine) evaluateEntry(ctx context.Context, symbol string, snap scoring.Snapshot, state *symbolState) {
	tradingCfg := e.cfg.TradingConfig

	if ok, reason := strategy.CheckMarketFilters(
		snap.Reference.ADXRaw, snap.Reference.ATR, snap.Reference.AvgATR,
		tradingCfg.MinADX, tradingCfg.ATRSpikeMultiplier,
	); !ok {
		e.log.Debug().Str("symbol", symbol).Str("reason", reason).Msg("market filter blocked entry evaluation")
		return
	}

	// A symbol already holding a position, or one the risk gate rejects,
	// skips setup detection entirely: no announcements, no signal rows.
	hasOpen, err := e.positions.HasOpen(ctx, symbol)
	if err != nil {
		e.log.Error().Err(err).Str("symbol", symbol).Msg("open position check failed")
		return
	}
	if hasOpen {
		return
	}

	allowed, gateReason, err := e.gate.Check(ctx, symbol, tradingCfg.AccountBalance)
	if err != nil {
		e.log.Error().Err(err).Str("symbol", symbol).Msg("risk gate check failed")
		return
	}
	if !allowed {
		e.log.Info().Str("symbol", symbol).Str("reason", gateReason).Msg("entry blocked by risk gate")
		e.bus.PublishRiskWarning(symbol, gateReason)
		if err := e.notifier.SendRiskWarning(symbol, gateReason); err != nil {
			e.log.Warn().Err(err).Msg("risk warning notification failed")
		}
		return
	}

	var reversalPtr *strategy.Setup
	if setup, ok := strategy.DetectReversal(snap); ok {
		reversalPtr = &setup
		e.announceSetup(ctx, symbol, setup, snap.Price)
	}
	if setup, ok := strategy.DetectBreakout(snap, state.adxHistory); ok {
		e.announceSetup(ctx, symbol, setup, snap.Price)
	}

	if !tradingCfg.Enabled {
		return
	}
	if snap.Price <= 0 {
		e.log.Debug().Str("symbol", symbol).Msg("no known price, skipping entry")
		return
	}

	direction, kind, reason, ok := strategy.EvaluateEntry(snap, reversalPtr)
	if !ok {
		return
	}

	ref := snap.Reference
	entry := snap.Price
	stop := strategy.StopLoss(direction, entry, ref.SwingLow, ref.SwingHigh, ref.ATR, ref.SupertrendLevel)
	if direction == strategy.Long && stop >= entry || direction == strategy.Short && stop <= entry {
		e.log.Warn().Str("symbol", symbol).Float64("entry", entry).Float64("stop", stop).Msg("degenerate stop, skipping entry")
		return
	}
	target := strategy.Target(direction, entry, stop)
	size := strategy.PositionSize(tradingCfg.AccountBalance, tradingCfg.RiskPerTradePercent, entry, stop)
	if size <= 0 {
		e.log.Warn().Str("symbol", symbol).Msg("zero position size, skipping entry")
		return
	}

	if _, err := e.positions.Open(ctx, symbol, direction, kind, reason, entry, stop, target, size); err != nil {
		e.log.Error().Err(err).Str("symbol", symbol).Msg("position open failed")
		return
	}
	e.gate.StampEntry(symbol)

	message := fmt.Sprintf("%s %s entry at %.2f: %s", direction, kind, entry, reason)
	if err := e.repo.LogSignal(ctx, symbol, "ENTRY_"+string(direction), entry, message); err != nil {
		e.log.Warn().Err(err).Msg("entry signal log failed")
	}
}

func (e *Engine) announceSetup(ctx context.Context, symbol string, setup strategy.Setup, price float64) {
	e.log.Info().
		Str("symbol", symbol).
		Str("kind", string(setup.Kind)).
		Str("bias", string(setup.Bias)).
		Msg(setup.Reason)
	e.bus.PublishSetupDetected(symbol, string(setup.Kind), string(setup.Bias), setup.Reason, price)
	if err := e.notifier.SendSetup(symbol, string(setup.Kind), string(setup.Bias), setup.Reason, price); err != nil {
		e.log.Warn().Err(err).Msg("setup notification failed")
	}
	message := fmt.Sprintf("%s %s: %s", setup.Bias, setup.Kind, setup.Reason)
	if err := e.repo.LogSignal(ctx, symbol, string(setup.Kind)+"_"+string(setup.Bias), price, message); err != nil {
		e.log.Warn().Err(err).Msg("setup signal log failed")
	}
}

func (e *Engine) state(symbol string) *symbolState {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[symbol]
	if !ok {
		st = &symbolState{}
		e.states[symbol] = st
	}
	return st
}

// LatestSnapshot returns the most recent in-memory snapshot for a
// symbol, if one exists.
func (e *Engine) LatestSnapshot(symbol string) (*scoring.Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap, ok := e.latest[symbol]
	return snap, ok
}
