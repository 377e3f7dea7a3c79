package hwm

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps one mark per account in ibdash.high_water_mark
type PostgresStore struct {
	pool      *pgxpool.Pool
	accountID string
}

// NewPostgresStore creates a store for accountID
func NewPostgresStore(pool *pgxpool.Pool, accountID string) *PostgresStore {
	return &PostgresStore{pool: pool, accountID: accountID}
}

// Read implements Store
func (s *PostgresStore) Read(ctx context.Context) (float64, error) {
	var value float64
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM ibdash.high_water_mark WHERE account_id = $1`, s.accountID,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read high-water mark: %w", err)
	}
	return value, nil
}

// WriteIfHigher implements Store. The comparison happens inside the upsert
// so concurrent writers cannot lower the mark.
func (s *PostgresStore) WriteIfHigher(ctx context.Context, v float64) (float64, error) {
	query := `
		INSERT INTO ibdash.high_water_mark (account_id, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account_id) DO UPDATE SET
			value = GREATEST(ibdash.high_water_mark.value, EXCLUDED.value),
			updated_at = CASE
				WHEN EXCLUDED.value > ibdash.high_water_mark.value THEN NOW()
				ELSE ibdash.high_water_mark.updated_at
			END
		RETURNING value
	`
	var value float64
	if err := s.pool.QueryRow(ctx, query, s.accountID, v).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to write high-water mark: %w", err)
	}
	return value, nil
}
