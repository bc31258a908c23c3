package executor

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"fx-breakout-trader/internal/model"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Journal 将每一次下单结果写入 SQLite, 用于审计和运维查询
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// JournalEntry journal 表中的一行
type JournalEntry struct {
	ID          int64  `json:"id"`
	ClientID    string `json:"clientId"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	Volume      string `json:"volume"`
	EntryPrice  string `json:"entryPrice"`
	StopLoss    string `json:"stopLoss"`
	TakeProfit  string `json:"takeProfit"`
	Status      string `json:"status"`
	OrderID     string `json:"orderId"`
	PositionID  string `json:"positionId"`
	Reason      string `json:"reason"`
	SubmittedAt string `json:"submittedAt"`
	ExecutedAt  string `json:"executedAt"`
}

// NewJournal 打开 (或创建) journal 数据库
func NewJournal(dbPath string, logger *zap.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", dbPath, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS executions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id    TEXT NOT NULL,
		symbol       TEXT NOT NULL,
		side         TEXT NOT NULL,
		volume       TEXT NOT NULL,
		entry_price  TEXT NOT NULL,
		stop_loss    TEXT NOT NULL,
		take_profit  TEXT NOT NULL,
		status       TEXT NOT NULL,
		order_id     TEXT,
		position_id  TEXT,
		reason       TEXT,
		submitted_at TEXT NOT NULL,
		executed_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_executions_symbol ON executions(symbol);
	CREATE INDEX IF NOT EXISTS idx_executions_executed_at ON executions(executed_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}

	logger.Info("Opened execution journal", zap.String("path", dbPath))
	return &Journal{db: db}, nil
}

// RecordExecution 实现 Recorder 接口
func (j *Journal) RecordExecution(ctx context.Context, result model.ExecutionResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	req := result.Request
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO executions (client_id, symbol, side, volume, entry_price, stop_loss, take_profit,
		 status, order_id, position_id, reason, submitted_at, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ClientID,
		req.Symbol,
		req.Side.String(),
		req.Volume.String(),
		req.EntryPrice.String(),
		req.StopLoss.String(),
		req.TakeProfit.String(),
		string(result.Status),
		result.OrderID,
		result.PositionID,
		result.Reason,
		req.CreatedAt.UTC().Format(time.RFC3339),
		result.ExecutedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// Recent 返回最近 limit 条记录, 最新的在前
func (j *Journal) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, client_id, symbol, side, volume, entry_price, stop_loss, take_profit,
		 status, order_id, position_id, reason, submitted_at, executed_at
		 FROM executions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Symbol, &e.Side, &e.Volume, &e.EntryPrice,
			&e.StopLoss, &e.TakeProfit, &e.Status, &e.OrderID, &e.PositionID, &e.Reason,
			&e.SubmittedAt, &e.ExecutedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
