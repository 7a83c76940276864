package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Ledger provides the account-wide counters the gate checks against.
type Ledger interface {
	CountOpenPositions(ctx context.Context) (int, error)
	CountTradesSince(ctx context.Context, since time.Time) (int, error)
	SumPnLSince(ctx context.Context, since time.Time) (float64, error)
}

type Clock interface {
	Now() time.Time
}

type Config struct {
	DailyLossLimitPercent float64
	MaxOpenPositions      int
	MaxTradesPerHour      int
	CooldownSeconds       int
}

// Gate enforces the account-level risk limits before any new position
// is opened. All checks are evaluated fresh on every call; a failed
// ledger query fails closed.
type Gate struct {
	cfg    Config
	ledger Ledger
	clock  Clock
	log    zerolog.Logger

	mu        sync.RWMutex
	lastEntry map[string]time.Time
}

func NewGate(cfg Config, ledger Ledger, clock Clock, log zerolog.Logger) *Gate {
	return &Gate{
		cfg:       cfg,
		ledger:    ledger,
		clock:     clock,
		log:       log.With().Str("component", "risk_gate").Logger(),
		lastEntry: make(map[string]time.Time),
	}
}

// Check runs the four entry gates in order: daily loss limit, open
// position cap, hourly trade rate, per-symbol cooldown. The first
// failing gate's reason is returned.
func (g *Gate) Check(ctx context.Context, symbol string, balance float64) (bool, string, error) {
	now := g.clock.Now()

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dailyPnL, err := g.ledger.SumPnLSince(ctx, dayStart)
	if err != nil {
		return false, "", fmt.Errorf("querying daily pnl: %w", err)
	}
	// Entries stay allowed at exactly the limit; only a loss beyond it
	// closes the day.
	if dailyPnL < -balance*g.cfg.DailyLossLimitPercent/100 {
		g.log.Warn().Float64("daily_pnl", dailyPnL).Msg("daily loss limit reached")
		return false, "daily loss limit reached", nil
	}

	openCount, err := g.ledger.CountOpenPositions(ctx)
	if err != nil {
		return false, "", fmt.Errorf("counting open positions: %w", err)
	}
	if openCount >= g.cfg.MaxOpenPositions {
		return false, "max open positions reached", nil
	}

	recentTrades, err := g.ledger.CountTradesSince(ctx, now.Add(-time.Hour))
	if err != nil {
		return false, "", fmt.Errorf("counting recent trades: %w", err)
	}
	if recentTrades >= g.cfg.MaxTradesPerHour {
		return false, "hourly trade limit reached", nil
	}

	g.mu.RLock()
	last, ok := g.lastEntry[symbol]
	g.mu.RUnlock()
	if ok {
		cooldown := time.Duration(g.cfg.CooldownSeconds) * time.Second
		if now.Sub(last) < cooldown {
			return false, "symbol cooldown active", nil
		}
	}

	return true, "", nil
}

// StampEntry records that a position was just opened on the symbol,
// starting its cooldown window.
func (g *Gate) StampEntry(symbol string) {
	g.mu.Lock()
	g.lastEntry[symbol] = g.clock.Now()
	g.mu.Unlock()
}
