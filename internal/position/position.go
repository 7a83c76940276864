package position

import (
	"context"
	"errors"
	"time"

	"trading-signal-bot/internal/strategy"
)

// Status of a position. The only transition is OPEN to CLOSED.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// ErrPositionClosed is returned when closing a position that is no
// longer open. It makes double-closes a detectable no-op.
var ErrPositionClosed = errors.New("position already closed")

// Position is an open (or historical) simulated position.
type Position struct {
	ID         string             `json:"id"`
	Symbol     string             `json:"symbol"`
	Direction  strategy.Direction `json:"direction"`
	SetupKind  strategy.SetupKind `json:"setup_kind"`
	Reason     string             `json:"reason"`
	EntryPrice float64            `json:"entry_price"`
	StopLoss   float64            `json:"stop_loss"`
	Target     float64            `json:"target"`
	Size       float64            `json:"size"`

	// InitialRisk is the entry-to-stop distance at open time. Trailing
	// thresholds are measured against it, not the moving stop.
	InitialRisk float64 `json:"initial_risk"`

	Status   Status    `json:"status"`
	OpenedAt time.Time `json:"opened_at"`
}

// Trade is the immutable record of a closed position.
type Trade struct {
	ID         string             `json:"id"`
	PositionID string             `json:"position_id"`
	Symbol     string             `json:"symbol"`
	Direction  strategy.Direction `json:"direction"`
	EntryPrice float64            `json:"entry_price"`
	ExitPrice  float64            `json:"exit_price"`
	Size       float64            `json:"size"`
	PnL        float64            `json:"pnl"`
	PnLPercent float64            `json:"pnl_percent"`
	Reason     string             `json:"reason"`
	OpenedAt   time.Time          `json:"opened_at"`
	ClosedAt   time.Time          `json:"closed_at"`
}

// Store persists positions and trades. ClosePosition must flip the
// position's status and insert the trade atomically, returning
// ErrPositionClosed when the status guard finds the position not open.
type Store interface {
	SavePosition(ctx context.Context, pos *Position) error
	UpdateStopLoss(ctx context.Context, positionID string, newStop float64) error
	ClosePosition(ctx context.Context, trade *Trade) error
	ListOpenPositions(ctx context.Context, symbol string) ([]*Position, error)
}

// UnrealizedPnL values an open position at the given price.
func UnrealizedPnL(pos *Position, price float64) float64 {
	if pos.Direction == strategy.Long {
		return (price - pos.EntryPrice) * pos.Size
	}
	return (pos.EntryPrice - price) * pos.Size
}
