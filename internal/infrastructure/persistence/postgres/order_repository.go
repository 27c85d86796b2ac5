package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/jackc/pgx/v5"
)

type OrderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m, err := toOrderModel(order)
	if err != nil {
		return err
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO orders (
				id, human_code, order_type, details,
				customer_name, customer_email, customer_phone, customer_country,
				canonical_amount, status, payment_provider, version, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`
		_, err := tx.Exec(ctx, query,
			m.ID,
			m.HumanCode,
			m.OrderType,
			m.Details,
			m.CustomerName,
			m.CustomerEmail,
			m.CustomerPhone,
			m.CustomerCountry,
			m.CanonicalAmount,
			m.Status,
			m.PaymentProvider,
			m.Version,
			m.CreatedAt,
			m.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i, entry := range order.History {
			if err := insertHistory(ctx, tx, order.ID, i, entry); err != nil {
				return err
			}
		}
		for _, s := range order.Sessions {
			if err := upsertSession(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID loads the full aggregate: the order row, its sessions and its history.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, human_code, order_type, details,
		       customer_name, customer_email, customer_phone, customer_country,
		       canonical_amount, status, payment_provider, version, created_at, updated_at
		FROM orders WHERE id = $1
	`

	var m OrderModel
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.HumanCode, &m.OrderType, &m.Details,
		&m.CustomerName, &m.CustomerEmail, &m.CustomerPhone, &m.CustomerCountry,
		&m.CanonicalAmount, &m.Status, &m.PaymentProvider, &m.Version, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewOrderNotFoundError(id)
		}
		return nil, fmt.Errorf("query order: %w", err)
	}

	sessions, err := r.findSessions(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := r.findHistory(ctx, id)
	if err != nil {
		return nil, err
	}

	return toDomainOrder(m, sessions, history)
}

func (r *OrderRepository) FindByHumanCode(ctx context.Context, code string) (*domain.Order, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx, `SELECT id FROM orders WHERE human_code = $1`, code).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewOrderNotFoundError(code)
		}
		return nil, fmt.Errorf("query order by code: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *OrderRepository) FindBySessionReference(ctx context.Context, provider domain.Provider, reference string) (*domain.Order, error) {
	query := `SELECT order_id FROM payment_sessions WHERE provider = $1 AND provider_reference = $2`

	var orderID string
	err := r.db.Pool.QueryRow(ctx, query, string(provider), reference).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewSessionNotFoundError(reference)
		}
		return nil, fmt.Errorf("query session by reference: %w", err)
	}
	return r.FindByID(ctx, orderID)
}

// Save persists one lifecycle change in a single transaction: the versioned
// order row, every session, the confirmation key and the new history entry.
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order, change application.Change) error {
	m, err := toOrderModel(order)
	if err != nil {
		return err
	}

	err = r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE orders
			SET status = $1, payment_provider = $2, canonical_amount = $3,
			    version = version + 1, updated_at = $4
			WHERE id = $5 AND version = $6
		`
		tag, err := tx.Exec(ctx, query,
			m.Status,
			m.PaymentProvider,
			m.CanonicalAmount,
			m.UpdatedAt,
			m.ID,
			change.ExpectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.NewVersionConflictError(order.ID, change.ExpectedVersion)
		}

		// Confirmed sessions are written last so the partial unique index only
		// sees the final state of the others.
		sessions := slices.Clone(order.Sessions)
		slices.SortStableFunc(sessions, func(a, b *domain.PaymentSession) int {
			return confirmedRank(a) - confirmedRank(b)
		})
		for _, s := range sessions {
			if err := upsertSession(ctx, tx, s); err != nil {
				return err
			}
		}

		// The confirmation key goes first so a replay reports as a duplicate
		// rather than as a history position clash.
		if change.Confirmation != nil {
			if err := insertConfirmation(ctx, tx, *change.Confirmation, order.UpdatedAt); err != nil {
				return err
			}
		}

		if change.Entry != nil {
			if err := insertHistory(ctx, tx, order.ID, len(order.History)-1, *change.Entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	order.Version = change.ExpectedVersion + 1
	return nil
}

func (r *OrderRepository) FindOpenSessions(ctx context.Context, filter application.SessionFilter) ([]application.SessionRef, error) {
	query := `
		SELECT s.order_id, s.id, s.provider, COALESCE(s.provider_reference, ''), s.state, o.status, s.created_at
		FROM payment_sessions s
		JOIN orders o ON o.id = s.order_id
		WHERE s.state IN ('initiated', 'awaiting_confirmation')
		  AND ($1 = '' OR s.provider = $1)
		  AND s.created_at < $2
		ORDER BY s.created_at ASC
		LIMIT $3
	`

	rows, err := r.db.Pool.Query(ctx, query, string(filter.Provider), filter.CreatedBefore, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("query open sessions: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (application.SessionRef, error) {
		var (
			ref         application.SessionRef
			provider    string
			state       string
			orderStatus string
		)
		err := row.Scan(&ref.OrderID, &ref.SessionID, &provider, &ref.ProviderReference, &state, &orderStatus, &ref.CreatedAt)
		ref.Provider = domain.Provider(provider)
		ref.State = domain.SessionState(state)
		ref.OrderStatus = domain.OrderStatus(orderStatus)
		return ref, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan open sessions: %w", err)
	}
	return results, nil
}

func (r *OrderRepository) findSessions(ctx context.Context, orderID string) ([]SessionModel, error) {
	query := `
		SELECT id, order_id, provider, requested_amount::text, requested_currency, exchange_rate::text,
		       rate_fallback, provider_reference, checkout_url, state, created_at, updated_at, confirmed_at
		FROM payment_sessions
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SessionModel, error) {
		var m SessionModel
		err := row.Scan(
			&m.ID, &m.OrderID, &m.Provider, &m.RequestedAmount, &m.RequestedCurrency, &m.ExchangeRate,
			&m.RateFallback, &m.ProviderReference, &m.CheckoutURL, &m.State, &m.CreatedAt, &m.UpdatedAt, &m.ConfirmedAt,
		)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return results, nil
}

func (r *OrderRepository) findHistory(ctx context.Context, orderID string) ([]HistoryModel, error) {
	query := `
		SELECT order_id, position, status, event, triggered_by, reference, note, occurred_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (HistoryModel, error) {
		var m HistoryModel
		err := row.Scan(&m.OrderID, &m.Position, &m.Status, &m.Event, &m.TriggeredBy, &m.Reference, &m.Note, &m.OccurredAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return results, nil
}

func confirmedRank(s *domain.PaymentSession) int {
	if s.State == domain.SessionConfirmed {
		return 1
	}
	return 0
}

func upsertSession(ctx context.Context, q Executor, s *domain.PaymentSession) error {
	query := `
		INSERT INTO payment_sessions (
			id, order_id, provider, requested_amount, requested_currency, exchange_rate,
			rate_fallback, provider_reference, checkout_url, state, created_at, updated_at, confirmed_at
		) VALUES ($1, $2, $3, $4::text::numeric, $5, $6::text::numeric, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			provider_reference = EXCLUDED.provider_reference,
			checkout_url       = EXCLUDED.checkout_url,
			state              = EXCLUDED.state,
			updated_at         = EXCLUDED.updated_at,
			confirmed_at       = EXCLUDED.confirmed_at
		WHERE payment_sessions.state <> 'confirmed'
	`

	m := toSessionModel(s)
	_, err := q.Exec(ctx, query,
		m.ID,
		m.OrderID,
		m.Provider,
		m.RequestedAmount,
		m.RequestedCurrency,
		m.ExchangeRate,
		m.RateFallback,
		m.ProviderReference,
		m.CheckoutURL,
		m.State,
		m.CreatedAt,
		m.UpdatedAt,
		m.ConfirmedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) && constraintName(err) == "uq_payment_sessions_confirmed" {
			return domain.NewInvalidSessionStateError(s.ID, s.State, domain.SessionConfirmed)
		}
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	return nil
}

func insertHistory(ctx context.Context, q Executor, orderID string, position int, e domain.StatusEntry) error {
	query := `
		INSERT INTO order_status_history (order_id, position, status, event, triggered_by, reference, note, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.Exec(ctx, query,
		orderID,
		position,
		string(e.Status),
		string(e.Event),
		string(e.TriggeredBy),
		e.Reference,
		e.Note,
		e.OccurredAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewVersionConflictError(orderID, position)
		}
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func insertConfirmation(ctx context.Context, q Executor, key domain.ConfirmationKey, at time.Time) error {
	query := `
		INSERT INTO payment_confirmations (order_id, provider_reference, session_id, confirmed_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := q.Exec(ctx, query, key.OrderID, key.ProviderReference, key.SessionID, at)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewDuplicateConfirmationError(domain.EventProviderConfirmedPayment, key.ProviderReference)
		}
		return fmt.Errorf("failed to record confirmation: %w", err)
	}
	return nil
}
