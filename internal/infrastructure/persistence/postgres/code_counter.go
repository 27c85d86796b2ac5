package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/domain"
)

type CodeCounter struct {
	db *DB
}

func NewCodeCounter(db *DB) *CodeCounter {
	return &CodeCounter{db: db}
}

// Next increments and returns the bucket's sequence in one statement. The
// row lock taken by the upsert serializes concurrent callers per bucket.
func (c *CodeCounter) Next(ctx context.Context, prefix domain.CodePrefix, day time.Time) (int, error) {
	query := `
		INSERT INTO code_counters (prefix, bucket_day, last_seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, bucket_day)
		DO UPDATE SET last_seq = code_counters.last_seq + 1
		RETURNING last_seq
	`

	var seq int
	if err := c.db.Pool.QueryRow(ctx, query, string(prefix), day).Scan(&seq); err != nil {
		return 0, fmt.Errorf("increment code counter %s/%s: %w", prefix, day.Format(time.DateOnly), err)
	}
	return seq, nil
}
