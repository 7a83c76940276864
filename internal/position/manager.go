package position

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trading-signal-bot/internal/events"
	"trading-signal-bot/internal/notification"
	"trading-signal-bot/internal/risk"
	"trading-signal-bot/internal/scoring"
	"trading-signal-bot/internal/strategy"
)

// Exit reasons, in evaluation order.
const (
	ExitTargetHit      = "target hit"
	ExitStopLossHit    = "stop loss hit"
	ExitScoreReversal  = "master score reversal"
	ExitSupertrendFlip = "supertrend flip"
	ExitTimeNoProfit   = "time exit without profit"
)

type Clock interface {
	Now() time.Time
}

// Manager owns the position lifecycle: it opens positions, evaluates
// exits in fixed precedence, trails stops, and records closed trades.
type Manager struct {
	store    Store
	bus      *events.EventBus
	notifier *notification.Manager
	clock    Clock
	timeExit time.Duration
	log      zerolog.Logger
}

func NewManager(store Store, bus *events.EventBus, notifier *notification.Manager, clock Clock, timeExit time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		store:    store,
		bus:      bus,
		notifier: notifier,
		clock:    clock,
		timeExit: timeExit,
		log:      log.With().Str("component", "positions").Logger(),
	}
}

// Open creates and persists a new position.
func (m *Manager) Open(ctx context.Context, symbol string, direction strategy.Direction, kind strategy.SetupKind, reason string, entry, stop, target, size float64) (*Position, error) {
	initialRisk := entry - stop
	if initialRisk < 0 {
		initialRisk = -initialRisk
	}

	pos := &Position{
		ID:          uuid.New().String(),
		Symbol:      symbol,
		Direction:   direction,
		SetupKind:   kind,
		Reason:      reason,
		EntryPrice:  entry,
		StopLoss:    stop,
		Target:      target,
		Size:        size,
		InitialRisk: initialRisk,
		Status:      StatusOpen,
		OpenedAt:    m.clock.Now(),
	}

	if err := m.store.SavePosition(ctx, pos); err != nil {
		return nil, fmt.Errorf("saving position: %w", err)
	}

	m.log.Info().
		Str("symbol", symbol).
		Str("direction", string(direction)).
		Float64("entry", entry).
		Float64("stop", stop).
		Float64("target", target).
		Float64("size", size).
		Msg("position opened")

	m.bus.PublishPositionOpened(symbol, string(direction), string(kind), entry, stop, target, size)
	if err := m.notifier.SendPositionOpen(symbol, string(direction), entry, stop, target, size); err != nil {
		m.log.Warn().Err(err).Msg("open notification failed")
	}

	return pos, nil
}

// ManageSymbol runs exit evaluation and trailing-stop updates over every
// open position on the symbol. Exits take precedence over trailing.
func (m *Manager) ManageSymbol(ctx context.Context, symbol string, price, masterScore, weightedSupertrend float64) error {
	if price <= 0 {
		// Unknown price, nothing can be decided safely.
		return nil
	}

	positions, err := m.store.ListOpenPositions(ctx, symbol)
	if err != nil {
		return fmt.Errorf("listing open positions: %w", err)
	}

	for _, pos := range positions {
		reason, exit := m.checkExit(pos, price, masterScore, weightedSupertrend)
		if exit {
			if err := m.Close(ctx, pos, price, reason); err != nil {
				m.log.Error().Err(err).Str("symbol", symbol).Msg("close failed")
			}
			continue
		}

		newStop, ok := risk.NextTrailingStop(pos.Direction, pos.EntryPrice, pos.StopLoss, price, pos.InitialRisk)
		if !ok {
			continue
		}
		if err := m.store.UpdateStopLoss(ctx, pos.ID, newStop); err != nil {
			m.log.Error().Err(err).Str("symbol", symbol).Msg("stop update failed")
			continue
		}
		oldStop := pos.StopLoss
		pos.StopLoss = newStop

		m.log.Info().
			Str("symbol", symbol).
			Float64("old_stop", oldStop).
			Float64("new_stop", newStop).
			Msg("trailing stop moved")
		m.bus.PublishTrailingStopMoved(symbol, oldStop, newStop, price)
		if err := m.notifier.SendTrailingStop(symbol, oldStop, newStop, price); err != nil {
			m.log.Warn().Err(err).Msg("trailing notification failed")
		}
	}

	return nil
}

// HasOpen reports whether the symbol already carries an open position.
func (m *Manager) HasOpen(ctx context.Context, symbol string) (bool, error) {
	positions, err := m.store.ListOpenPositions(ctx, symbol)
	if err != nil {
		return false, err
	}
	return len(positions) > 0, nil
}

// checkExit applies the exit rules in fixed precedence: target, stop,
// master-score reversal, supertrend flip, stale position without profit.
func (m *Manager) checkExit(pos *Position, price, masterScore, weightedSupertrend float64) (string, bool) {
	long := pos.Direction == strategy.Long

	if long && price >= pos.Target || !long && price <= pos.Target {
		return ExitTargetHit, true
	}
	if long && price <= pos.StopLoss || !long && price >= pos.StopLoss {
		return ExitStopLossHit, true
	}
	if long && masterScore < 45 || !long && masterScore > 55 {
		return ExitScoreReversal, true
	}
	if long && weightedSupertrend < 40 || !long && weightedSupertrend > 60 {
		return ExitSupertrendFlip, true
	}
	if m.clock.Now().Sub(pos.OpenedAt) > m.timeExit && UnrealizedPnL(pos, price) <= 0 {
		return ExitTimeNoProfit, true
	}

	return "", false
}

// Close settles a position at the given price. The store's status guard
// makes this exactly-once: a concurrent or repeated close surfaces as
// ErrPositionClosed and is ignored.
func (m *Manager) Close(ctx context.Context, pos *Position, exitPrice float64, reason string) error {
	pnl := scoring.Round4(UnrealizedPnL(pos, exitPrice))
	var pnlPercent float64
	if notional := pos.EntryPrice * pos.Size; notional != 0 {
		pnlPercent = scoring.Round2(pnl / notional * 100)
	}

	trade := &Trade{
		ID:         uuid.New().String(),
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  scoring.Round2(exitPrice),
		Size:       pos.Size,
		PnL:        pnl,
		PnLPercent: pnlPercent,
		Reason:     reason,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   m.clock.Now(),
	}

	if err := m.store.ClosePosition(ctx, trade); err != nil {
		if errors.Is(err, ErrPositionClosed) {
			m.log.Debug().Str("position_id", pos.ID).Msg("position already closed")
			return nil
		}
		return fmt.Errorf("closing position: %w", err)
	}
	pos.Status = StatusClosed

	m.log.Info().
		Str("symbol", pos.Symbol).
		Str("reason", reason).
		Float64("exit", trade.ExitPrice).
		Float64("pnl", pnl).
		Float64("pnl_percent", pnlPercent).
		Msg("position closed")

	m.bus.PublishPositionClosed(pos.Symbol, string(pos.Direction), reason, pos.EntryPrice, trade.ExitPrice, pnl, pnlPercent)
	if err := m.notifier.SendPositionClose(pos.Symbol, pos.EntryPrice, trade.ExitPrice, pnl, pnlPercent, reason); err != nil {
		m.log.Warn().Err(err).Msg("close notification failed")
	}

	return nil
}
