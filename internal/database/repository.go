package database

import (
	"context"
	"fmt"
	"time"

	"spot-rotation-bot/internal/bot"
	"spot-rotation-bot/internal/ledger"
)

// Repository implements the bot's TradeSink against PostgreSQL.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// RecordTrade appends one executed trade.
func (r *Repository) RecordTrade(ctx context.Context, t bot.Trade) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO trades (cycle_id, symbol, side, quantity, price, reason, pnl_percent, executed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.CycleID, t.Symbol, t.Side, t.Quantity, t.Price, t.Reason, t.PnLPct*100, t.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// SaveSnapshot stores the cycle-end ledger state.
func (r *Repository) SaveSnapshot(ctx context.Context, cycleID string, positions []ledger.Position) error {
	for _, pos := range positions {
		_, err := r.db.Pool.Exec(ctx,
			`INSERT INTO position_snapshots (cycle_id, symbol, side, entry_price, quantity, opened_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			cycleID, pos.Symbol, string(pos.Side), pos.EntryPrice, pos.Quantity, pos.OpenedAt,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot for %s: %w", pos.Symbol, err)
		}
	}
	return nil
}

// TradeRow is one persisted trade as read back for the API.
type TradeRow struct {
	ID         int64     `json:"id"`
	CycleID    string    `json:"cycle_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Reason     string    `json:"reason"`
	PnLPercent float64   `json:"pnl_percent"`
	ExecutedAt time.Time `json:"executed_at"`
}

// RecentTrades returns the latest trades, newest first.
func (r *Repository) RecentTrades(ctx context.Context, limit int) ([]TradeRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, cycle_id, symbol, side, quantity, price, reason, COALESCE(pnl_percent, 0), executed_at
		 FROM trades ORDER BY executed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []TradeRow
	for rows.Next() {
		var t TradeRow
		if err := rows.Scan(&t.ID, &t.CycleID, &t.Symbol, &t.Side, &t.Quantity, &t.Price, &t.Reason, &t.PnLPercent, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
