package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Johnm75/Tienda/internal/checkout"
	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const EventCheckoutCompleted = "checkout.completed"

const selectRequest = `SELECT id, user_id, COALESCE(idempotency_key, ''), recipient, amount, currency, status,
	       COALESCE(payment_id, ''), created_at, updated_at
	FROM payment_requests`

func (r *Repository) Create(ctx context.Context, req *domain.PaymentRequest) error {
	query := `INSERT INTO payment_requests (id, user_id, idempotency_key, recipient, amount, currency, status, created_at, updated_at)
	          VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.UserID,
		req.IdempotencyKey,
		req.Recipient,
		req.Amount,
		req.Currency,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return checkout.ErrDuplicateRequest
		}
		return fmt.Errorf("insert payment request: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	if uuid.Validate(id) != nil {
		return nil, checkout.ErrRequestNotFound
	}
	return r.scanOne(r.db.QueryRowContext(ctx, selectRequest+` WHERE id = $1`, id))
}

func (r *Repository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.PaymentRequest, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		selectRequest+` WHERE user_id = $1 AND idempotency_key = $2`, userID, key))
}

// Complete marks a pending request COMPLETED and queues the checkout.completed
// event in the same transaction.
func (r *Repository) Complete(ctx context.Context, id, paymentID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	req, err := r.finish(ctx, tx, id, domain.CheckoutStatusCompleted, paymentID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"checkout_id":  req.ID,
		"user_id":      req.UserID,
		"recipient":    req.Recipient,
		"amount":       req.Amount,
		"currency":     req.Currency,
		"payment_id":   req.PaymentID,
		"completed_at": req.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal checkout payload: %w", err)
	}

	outboxQuery := `INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, outboxQuery, req.ID, EventCheckoutCompleted, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) Fail(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := r.finish(ctx, tx, id, domain.CheckoutStatusFailed, ""); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// finish moves a pending request to a terminal status. The WHERE clause on
// status makes the move happen at most once.
func (r *Repository) finish(ctx context.Context, tx *sql.Tx, id string, to domain.CheckoutStatus, paymentID string) (*domain.PaymentRequest, error) {
	if uuid.Validate(id) != nil {
		return nil, checkout.ErrRequestNotFound
	}
	query := `UPDATE payment_requests
	          SET status = $2, payment_id = NULLIF($3, ''), updated_at = NOW()
	          WHERE id = $1 AND status = $4
	          RETURNING id, user_id, COALESCE(idempotency_key, ''), recipient, amount, currency, status,
	                    COALESCE(payment_id, ''), created_at, updated_at`

	req, err := r.scanOne(tx.QueryRowContext(ctx, query, id, to, paymentID, domain.CheckoutStatusPaymentPending))
	if !errors.Is(err, checkout.ErrRequestNotFound) {
		return req, err
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM payment_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check payment request: %w", err)
	}
	if exists {
		return nil, checkout.ErrAlreadyObserved
	}
	return nil, checkout.ErrRequestNotFound
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanOne(row rowScanner) (*domain.PaymentRequest, error) {
	var req domain.PaymentRequest
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.IdempotencyKey,
		&req.Recipient,
		&req.Amount,
		&req.Currency,
		&req.Status,
		&req.PaymentID,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, checkout.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment request: %w", err)
	}
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()
	return &req, nil
}

// OutboxEvent is a queued integration event waiting for the publisher.
type OutboxEvent struct {
	ID          int
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events
	          WHERE processed_at IS NULL
	          ORDER BY id
	          LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event %d: %w", id, err)
	}
	return nil
}
