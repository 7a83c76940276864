package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeLedger struct {
	open   int
	trades int
	pnl    float64
	err    error
}

func (f *fakeLedger) CountOpenPositions(ctx context.Context) (int, error) {
	return f.open, f.err
}

func (f *fakeLedger) CountTradesSince(ctx context.Context, since time.Time) (int, error) {
	return f.trades, f.err
}

func (f *fakeLedger) SumPnLSince(ctx context.Context, since time.Time) (float64, error) {
	return f.pnl, f.err
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func newTestGate(ledger *fakeLedger, clock *fakeClock) *Gate {
	return NewGate(Config{
		DailyLossLimitPercent: 4,
		MaxOpenPositions:      3,
		MaxTradesPerHour:      2,
		CooldownSeconds:       600,
	}, ledger, clock, zerolog.Nop())
}

func TestGateAllowsCleanAccount(t *testing.T) {
	gate := newTestGate(&fakeLedger{}, &fakeClock{now: time.Now()})

	ok, reason, err := gate.Check(context.Background(), "BTCUSDT", 10000)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("blocked: %s", reason)
	}
}

func TestGateDailyLossLimit(t *testing.T) {
	ledger := &fakeLedger{pnl: -400.01}
	gate := newTestGate(ledger, &fakeClock{now: time.Now()})

	ok, reason, err := gate.Check(context.Background(), "BTCUSDT", 10000)
	if err != nil {
		t.Fatal(err)
	}
	if ok || reason != "daily loss limit reached" {
		t.Errorf("ok=%v reason=%q", ok, reason)
	}

	// A day sitting exactly at the limit still allows entries.
	ledger.pnl = -400
	if ok, _, _ = gate.Check(context.Background(), "BTCUSDT", 10000); !ok {
		t.Error("blocked at exactly the loss limit")
	}

	ledger.pnl = -399
	if ok, _, _ = gate.Check(context.Background(), "BTCUSDT", 10000); !ok {
		t.Error("blocked below the loss limit")
	}
}

func TestGateMaxOpenPositions(t *testing.T) {
	gate := newTestGate(&fakeLedger{open: 3}, &fakeClock{now: time.Now()})

	ok, reason, _ := gate.Check(context.Background(), "BTCUSDT", 10000)
	if ok || reason != "max open positions reached" {
		t.Errorf("ok=%v reason=%q", ok, reason)
	}
}

func TestGateHourlyTradeLimit(t *testing.T) {
	gate := newTestGate(&fakeLedger{trades: 2}, &fakeClock{now: time.Now()})

	ok, reason, _ := gate.Check(context.Background(), "BTCUSDT", 10000)
	if ok || reason != "hourly trade limit reached" {
		t.Errorf("ok=%v reason=%q", ok, reason)
	}
}

func TestGateSymbolCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	gate := newTestGate(&fakeLedger{}, clock)

	gate.StampEntry("BTCUSDT")

	clock.now = clock.now.Add(599 * time.Second)
	ok, reason, _ := gate.Check(context.Background(), "BTCUSDT", 10000)
	if ok || reason != "symbol cooldown active" {
		t.Errorf("ok=%v reason=%q at 599s", ok, reason)
	}

	// Other symbols are unaffected by the cooldown.
	if ok, _, _ = gate.Check(context.Background(), "ETHUSDT", 10000); !ok {
		t.Error("cooldown leaked across symbols")
	}

	clock.now = clock.now.Add(2 * time.Second)
	if ok, _, _ = gate.Check(context.Background(), "BTCUSDT", 10000); !ok {
		t.Error("blocked after the cooldown expired")
	}
}

func TestGateFailsClosedOnLedgerError(t *testing.T) {
	gate := newTestGate(&fakeLedger{err: errors.New("db down")}, &fakeClock{now: time.Now()})

	ok, _, err := gate.Check(context.Background(), "BTCUSDT", 10000)
	if err == nil {
		t.Fatal("expected an error")
	}
	if ok {
		t.Error("gate allowed entry on a ledger failure")
	}
}
