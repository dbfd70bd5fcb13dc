package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest is the one-shot handoff to the hosted payment form.
type PaymentRequest struct {
	ID             string          `json:"checkout_id"`
	UserID         string          `json:"user_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Recipient      string          `json:"recipient"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         CheckoutStatus  `json:"status"`
	PaymentID      string          `json:"payment_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
