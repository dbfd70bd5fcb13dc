// Package orders keeps each user's purchase history, built from the
// checkout-completed events.
package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrDuplicateCheckout = errors.New("purchase for this checkout already exists")

type Purchase struct {
	ID         uuid.UUID       `json:"id"`
	CheckoutID uuid.UUID       `json:"checkout_id"`
	UserID     string          `json:"-"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	PaymentID  string          `json:"payment_id"`
	PaidAt     time.Time       `json:"paid_at"`
}

type History interface {
	Record(ctx context.Context, p *Purchase) error
	ListByUser(ctx context.Context, userID string) ([]*Purchase, error)
	DeleteByUser(ctx context.Context, userID string) error
}
