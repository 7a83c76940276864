package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trading-signal-bot/internal/marketdata"
	"trading-signal-bot/internal/position"
	"trading-signal-bot/internal/scoring"
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// ============================================================================
// CANDLES
// ============================================================================

// AppendCandles upserts a candle window and prunes the stored history to
// maxStored rows per (symbol, timeframe).
func (r *Repository) AppendCandles(ctx context.Context, symbol, timeframe string, candles []marketdata.Candle, maxStored int) error {
	for _, c := range candles {
		_, err := r.db.Pool.Exec(ctx, `
			INSERT INTO candles (symbol, timeframe, open_time, open, high, low, close, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (symbol, timeframe, open_time) DO UPDATE
			SET open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
			    close = EXCLUDED.close, volume = EXCLUDED.volume
		`, symbol, timeframe, c.OpenTime, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("inserting candle: %w", err)
		}
	}

	if maxStored > 0 {
		_, err := r.db.Pool.Exec(ctx, `
			DELETE FROM candles
			WHERE symbol = $1 AND timeframe = $2 AND open_time NOT IN (
				SELECT open_time FROM candles
				WHERE symbol = $1 AND timeframe = $2
				ORDER BY open_time DESC
				LIMIT $3
			)
		`, symbol, timeframe, maxStored)
		if err != nil {
			return fmt.Errorf("pruning candles: %w", err)
		}
	}

	return nil
}

// GetCandles returns the newest candles for a symbol and timeframe,
// oldest first.
func (r *Repository) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]marketdata.Candle, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT open_time, open, high, low, close, volume
		FROM (
			SELECT open_time, open, high, low, close, volume
			FROM candles
			WHERE symbol = $1 AND timeframe = $2
			ORDER BY open_time DESC
			LIMIT $3
		) sub
		ORDER BY open_time ASC
	`, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []marketdata.Candle
	for rows.Next() {
		var c marketdata.Candle
		if err := rows.Scan(&c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// ============================================================================
// SCORE SNAPSHOTS
// ============================================================================

// ScoreSnapshot is a stored analysis snapshot row.
type ScoreSnapshot struct {
	ID             int64           `json:"id"`
	Symbol         string          `json:"symbol"`
	MasterScore    float64         `json:"master_score"`
	Classification string          `json:"classification"`
	Price          float64         `json:"price"`
	Weighted       json.RawMessage `json:"weighted"`
	Intervals      json.RawMessage `json:"intervals"`
	CreatedAt      time.Time       `json:"created_at"`
}

const snapshotRetention = 500

// SaveSnapshot stores an analysis snapshot and prunes the per-symbol
// history to the newest snapshotRetention rows.
func (r *Repository) SaveSnapshot(ctx context.Context, snap *scoring.Snapshot) error {
	weighted, err := json.Marshal(snap.Weighted)
	if err != nil {
		return fmt.Errorf("marshaling weighted scores: %w", err)
	}
	intervals, err := json.Marshal(snap.Intervals)
	if err != nil {
		return fmt.Errorf("marshaling interval scores: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO score_snapshots (symbol, master_score, classification, price, weighted, intervals, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, snap.Symbol, snap.MasterScore, snap.Classification, snap.Price, weighted, intervals, snap.Timestamp)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		DELETE FROM score_snapshots
		WHERE symbol = $1 AND id NOT IN (
			SELECT id FROM score_snapshots
			WHERE symbol = $1
			ORDER BY id DESC
			LIMIT $2
		)
	`, snap.Symbol, snapshotRetention)
	if err != nil {
		return fmt.Errorf("pruning snapshots: %w", err)
	}

	return nil
}

// GetScoreHistory returns the newest master scores for a symbol, oldest
// first, for the crossover detector.
func (r *Repository) GetScoreHistory(ctx context.Context, symbol string, limit int) ([]float64, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT master_score FROM (
			SELECT id, master_score FROM score_snapshots
			WHERE symbol = $1
			ORDER BY id DESC
			LIMIT $2
		) sub
		ORDER BY id ASC
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// GetScoreSnapshots returns the newest stored snapshots for a symbol.
func (r *Repository) GetScoreSnapshots(ctx context.Context, symbol string, limit int) ([]*ScoreSnapshot, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, symbol, master_score, classification, price, weighted, intervals, created_at
		FROM score_snapshots
		WHERE symbol = $1
		ORDER BY id DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*ScoreSnapshot
	for rows.Next() {
		s := &ScoreSnapshot{}
		err := rows.Scan(&s.ID, &s.Symbol, &s.MasterScore, &s.Classification, &s.Price, &s.Weighted, &s.Intervals, &s.CreatedAt)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// ============================================================================
// POSITIONS
// ============================================================================

// SavePosition inserts a new position
func (r *Repository) SavePosition(ctx context.Context, pos *position.Position) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO positions (id, symbol, direction, setup_kind, reason, entry_price, stop_loss, target, size, initial_risk, status, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, pos.ID, pos.Symbol, pos.Direction, pos.SetupKind, pos.Reason,
		pos.EntryPrice, pos.StopLoss, pos.Target, pos.Size, pos.InitialRisk,
		pos.Status, pos.OpenedAt)
	return err
}

// UpdateStopLoss moves a position's stop
func (r *Repository) UpdateStopLoss(ctx context.Context, positionID string, newStop float64) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE positions SET stop_loss = $2 WHERE id = $1
	`, positionID, newStop)
	return err
}

// ClosePosition flips the position to CLOSED and inserts the trade in a
// single transaction. The status guard makes a repeated close return
// position.ErrPositionClosed without inserting a second trade.
func (r *Repository) ClosePosition(ctx context.Context, trade *position.Trade) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning close transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE positions SET status = 'CLOSED' WHERE id = $1 AND status = 'OPEN'
	`, trade.PositionID)
	if err != nil {
		return fmt.Errorf("updating position status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return position.ErrPositionClosed
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trades (id, position_id, symbol, direction, entry_price, exit_price, size, pnl, pnl_percent, reason, opened_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, trade.ID, trade.PositionID, trade.Symbol, trade.Direction,
		trade.EntryPrice, trade.ExitPrice, trade.Size, trade.PnL, trade.PnLPercent,
		trade.Reason, trade.OpenedAt, trade.ClosedAt)
	if err != nil {
		return fmt.Errorf("inserting trade: %w", err)
	}

	return tx.Commit(ctx)
}

// ListOpenPositions returns open positions, optionally filtered by
// symbol (empty string means all symbols).
func (r *Repository) ListOpenPositions(ctx context.Context, symbol string) ([]*position.Position, error) {
	query := `
		SELECT id, symbol, direction, setup_kind, reason, entry_price, stop_loss, target, size, initial_risk, status, opened_at
		FROM positions
		WHERE status = 'OPEN'
	`
	args := []interface{}{}
	if symbol != "" {
		query += ` AND symbol = $1`
		args = append(args, symbol)
	}
	query += ` ORDER BY opened_at ASC`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*position.Position
	for rows.Next() {
		pos := &position.Position{}
		err := rows.Scan(
			&pos.ID, &pos.Symbol, &pos.Direction, &pos.SetupKind, &pos.Reason,
			&pos.EntryPrice, &pos.StopLoss, &pos.Target, &pos.Size, &pos.InitialRisk,
			&pos.Status, &pos.OpenedAt,
		)
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// CountOpenPositions returns the number of open positions across all
// symbols.
func (r *Repository) CountOpenPositions(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM positions WHERE status = 'OPEN'
	`).Scan(&count)
	return count, err
}

// ============================================================================
// TRADES
// ============================================================================

// CountTradesSince counts positions opened after the given time. New
// entries count against the rate limit even while still open.
func (r *Repository) CountTradesSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM positions WHERE opened_at >= $1
	`, since).Scan(&count)
	return count, err
}

// SumPnLSince sums realized P&L of trades closed after the given time.
func (r *Repository) SumPnLSince(ctx context.Context, since time.Time) (float64, error) {
	var sum float64
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(pnl), 0) FROM trades WHERE closed_at >= $1
	`, since).Scan(&sum)
	return sum, err
}

// GetRecentTrades returns the newest closed trades.
func (r *Repository) GetRecentTrades(ctx context.Context, limit int) ([]*position.Trade, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, position_id, symbol, direction, entry_price, exit_price, size, pnl, pnl_percent, reason, opened_at, closed_at
		FROM trades
		ORDER BY closed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*position.Trade
	for rows.Next() {
		t := &position.Trade{}
		err := rows.Scan(
			&t.ID, &t.PositionID, &t.Symbol, &t.Direction,
			&t.EntryPrice, &t.ExitPrice, &t.Size, &t.PnL, &t.PnLPercent,
			&t.Reason, &t.OpenedAt, &t.ClosedAt,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// TradingStats summarizes closed-trade performance.
type TradingStats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgPnL        float64 `json:"avg_pnl"`
}

// GetTradingStats aggregates performance over all closed trades.
func (r *Repository) GetTradingStats(ctx context.Context) (*TradingStats, error) {
	stats := &TradingStats{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE pnl > 0),
			COUNT(*) FILTER (WHERE pnl < 0),
			COALESCE(SUM(pnl), 0),
			COALESCE(AVG(pnl), 0)
		FROM trades
	`).Scan(&stats.TotalTrades, &stats.WinningTrades, &stats.LosingTrades, &stats.TotalPnL, &stats.AvgPnL)
	if err != nil {
		return nil, err
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	}
	return stats, nil
}

// ============================================================================
// SIGNALS
// ============================================================================

// LogSignal appends an advisory signal (setup, crossover, alert) to the
// signal log.
func (r *Repository) LogSignal(ctx context.Context, symbol, signalType string, value float64, message string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO signals (symbol, signal_type, value, message)
		VALUES ($1, $2, $3, $4)
	`, symbol, signalType, value, message)
	return err
}

// SignalRow is a stored advisory signal.
type SignalRow struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	SignalType string    `json:"signal_type"`
	Value      float64   `json:"value"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// GetRecentSignals returns the newest advisory signals.
func (r *Repository) GetRecentSignals(ctx context.Context, limit int) ([]*SignalRow, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, symbol, signal_type, COALESCE(value, 0), COALESCE(message, ''), created_at
		FROM signals
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*SignalRow
	for rows.Next() {
		s := &SignalRow{}
		if err := rows.Scan(&s.ID, &s.Symbol, &s.SignalType, &s.Value, &s.Message, &s.CreatedAt); err != nil {
			return nil, err
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}
