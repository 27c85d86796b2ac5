package postgres

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/jackc/pgx/v5"
)

type RefundRepository struct {
	db *DB
}

func NewRefundRepository(db *DB) *RefundRepository {
	return &RefundRepository{db: db}
}

func (r *RefundRepository) Create(ctx context.Context, refund *domain.Refund) error {
	query := `
		INSERT INTO refunds (id, order_code, order_id, amount, currency, reason, method, recorded_by, created_at)
		VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		refund.ID,
		refund.OrderCode,
		refund.OrderID,
		refund.Amount.String(),
		string(refund.Currency),
		refund.Reason,
		string(refund.Method),
		string(refund.RecordedBy),
		refund.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

func (r *RefundRepository) ListByOrderCode(ctx context.Context, orderCode string) ([]*domain.Refund, error) {
	query := `
		SELECT id, order_code, order_id, amount::text, currency, reason, method, recorded_by, created_at
		FROM refunds
		WHERE order_code = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, orderCode)
	if err != nil {
		return nil, fmt.Errorf("query refunds: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Refund, error) {
		var m RefundModel
		if err := row.Scan(&m.ID, &m.OrderCode, &m.OrderID, &m.Amount, &m.Currency, &m.Reason, &m.Method, &m.RecordedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		return toDomainRefund(m)
	})
	if err != nil {
		return nil, fmt.Errorf("scan refunds: %w", err)
	}
	return results, nil
}
