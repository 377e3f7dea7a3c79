package tradelog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink stores records in ibdash.trade_log as JSONB
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a sink backed by pool
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// Append implements Sink
func (s *PostgresSink) Append(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode trade log record: %w", err)
	}

	query := `
		INSERT INTO ibdash.trade_log (logged_at, symbol, action, order_type, size, status, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.pool.Exec(ctx, query,
		rec.Timestamp, rec.Symbol, string(rec.Intent.Side), string(rec.Intent.Kind),
		rec.Intent.Size, rec.Status(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save trade log record: %w", err)
	}
	return nil
}

// Recent returns the latest records, newest first
func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM ibdash.trade_log ORDER BY logged_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade log: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan trade log: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode trade log: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
