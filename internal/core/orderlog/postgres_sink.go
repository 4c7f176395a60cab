package orderlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const ordersLogSchema = `
CREATE TABLE IF NOT EXISTS orders_log (
	id BIGSERIAL PRIMARY KEY,
	ordered_at TIMESTAMPTZ NOT NULL,
	district TEXT NOT NULL,
	dish TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	created_at TIMESTAMPTZ DEFAULT NOW()
);`

// PostgresSink 寫入 orders_log 資料表
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink 連線並建立資料表
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresSinkWithDB(ctx, db)
}

// NewPostgresSinkWithDB 使用既有連線池
func NewPostgresSinkWithDB(ctx context.Context, db *sql.DB) (*PostgresSink, error) {
	if _, err := db.ExecContext(ctx, ordersLogSchema); err != nil {
		return nil, fmt.Errorf("create orders_log table: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

// Write 在同一個交易中寫入所有紀錄
func (s *PostgresSink) Write(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO orders_log (ordered_at, district, dish, quantity) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Timestamp, r.District, r.Dish, r.Quantity); err != nil {
			return fmt.Errorf("insert order log: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order log: %w", err)
	}
	return nil
}

// Close 關閉連線池
func (s *PostgresSink) Close() error {
	return s.db.Close()
}
