// Package checkout turns a cart total into a one-shot request for the hosted
// payment form and reacts to the single completion signal that comes back.
//
// A completion signal is only an opaque token. It clears the cart after the
// payment surface confirms it server-side and the confirmed amount matches.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger stores payment requests. Complete and Fail only succeed on a pending
// request and return ErrAlreadyObserved otherwise.
type Ledger interface {
	Create(ctx context.Context, req *domain.PaymentRequest) error
	Get(ctx context.Context, id string) (*domain.PaymentRequest, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.PaymentRequest, error)
	Complete(ctx context.Context, id, paymentID string) error
	Fail(ctx context.Context, id string) error
}

// Confirmation is the payment surface's answer for a token.
type Confirmation struct {
	RequestID string
	Approved  bool
	Amount    decimal.Decimal
	Currency  string
	PaymentID string
}

type Verifier interface {
	Verify(ctx context.Context, requestID, token string) (*Confirmation, error)
}

type Redirector interface {
	RedirectURL(req *domain.PaymentRequest) (string, error)
}

// Clearer is the part of the cart the handoff is allowed to touch.
type Clearer interface {
	Clear()
}

type InitiateRequest struct {
	UserID         string
	Total          decimal.Decimal
	IdempotencyKey string
}

type Initiated struct {
	Request     *domain.PaymentRequest
	RedirectURL string
}

type Signal struct {
	RequestID string
	Token     string
}

type Result struct {
	Request *domain.PaymentRequest
	Cleared bool
}

type Handoff struct {
	ledger     Ledger
	verifier   Verifier
	redirector Redirector
	recipient  string
	currency   string
	now        func() time.Time
}

func NewHandoff(ledger Ledger, verifier Verifier, redirector Redirector, recipient, currency string) *Handoff {
	return &Handoff{
		ledger:     ledger,
		verifier:   verifier,
		redirector: redirector,
		recipient:  recipient,
		currency:   currency,
		now:        time.Now,
	}
}

// InitiateCheckout records a pending payment request for total and returns the
// URL of the hosted payment form. A known idempotency key returns the request
// created the first time while it is still pending; once that request is
// finished the key is spent and ErrRequestClosed is returned.
func (h *Handoff) InitiateCheckout(ctx context.Context, in InitiateRequest) (*Initiated, error) {
	if in.Total.IsNegative() {
		return nil, ErrNegativeTotal
	}

	if in.IdempotencyKey != "" {
		existing, err := h.ledger.GetByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
		if err != nil && !errors.Is(err, ErrRequestNotFound) {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			return h.resume(existing)
		}
	}

	now := h.now().UTC()
	req := &domain.PaymentRequest{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		IdempotencyKey: in.IdempotencyKey,
		Recipient:      h.recipient,
		Amount:         in.Total,
		Currency:       h.currency,
		Status:         domain.CheckoutStatusPaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.ledger.Create(ctx, req); err != nil {
		if errors.Is(err, ErrDuplicateRequest) {
			// lost a race with a retry carrying the same key
			existing, getErr := h.ledger.GetByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
			if getErr == nil {
				return h.resume(existing)
			}
		}
		return nil, fmt.Errorf("failed to create payment request: %w", err)
	}

	return h.initiated(req)
}

func (h *Handoff) resume(req *domain.PaymentRequest) (*Initiated, error) {
	if req.Status.IsTerminal() {
		return nil, ErrRequestClosed
	}
	return h.initiated(req)
}

func (h *Handoff) initiated(req *domain.PaymentRequest) (*Initiated, error) {
	redirect, err := h.redirector.RedirectURL(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment redirect: %w", err)
	}
	return &Initiated{Request: req, RedirectURL: redirect}, nil
}

// Request returns the stored request for id.
func (h *Handoff) Request(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	return h.ledger.Get(ctx, id)
}

// ObserveCompletion consumes the completion signal for a request. Only a
// verified, matching approval clears the cart. A decline or mismatch fails the
// request and leaves the cart alone. Verification errors change nothing.
func (h *Handoff) ObserveCompletion(ctx context.Context, sig Signal, cart Clearer) (*Result, error) {
	if sig.RequestID == "" || sig.Token == "" {
		return nil, ErrInvalidSignal
	}

	req, err := h.ledger.Get(ctx, sig.RequestID)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return &Result{Request: req}, ErrAlreadyObserved
	}

	conf, err := h.verifier.Verify(ctx, sig.RequestID, sig.Token)
	if err != nil {
		return &Result{Request: req}, fmt.Errorf("failed to verify payment: %w", err)
	}

	if !conf.Approved || !h.matches(req, conf) {
		if err := h.ledger.Fail(ctx, req.ID); err != nil {
			return &Result{Request: req}, err
		}
		req.Status = domain.CheckoutStatusFailed
		req.UpdatedAt = h.now().UTC()
		if conf.Approved {
			return &Result{Request: req}, ErrConfirmationMatch
		}
		return &Result{Request: req}, nil
	}

	if err := h.ledger.Complete(ctx, req.ID, conf.PaymentID); err != nil {
		return &Result{Request: req}, err
	}
	req.Status = domain.CheckoutStatusCompleted
	req.PaymentID = conf.PaymentID
	req.UpdatedAt = h.now().UTC()

	cart.Clear()
	return &Result{Request: req, Cleared: true}, nil
}

func (h *Handoff) matches(req *domain.PaymentRequest, conf *Confirmation) bool {
	return conf.RequestID == req.ID &&
		conf.Amount.Equal(req.Amount) &&
		conf.Currency == req.Currency
}
