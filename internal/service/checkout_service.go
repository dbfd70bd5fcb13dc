package service

import (
	"context"
	"errors"

	"github.com/Johnm75/Tienda/internal/cart"
	"github.com/Johnm75/Tienda/internal/checkout"
	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/Johnm75/Tienda/pkg/logger"
	"go.uber.org/zap"
)

type CheckoutService struct {
	carts   *CartService
	handoff *checkout.Handoff
	log     *zap.Logger
}

func NewCheckoutService(carts *CartService, handoff *checkout.Handoff, log *zap.Logger) *CheckoutService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutService{carts: carts, handoff: handoff, log: log}
}

// Checkout starts a payment for the current cart total. The cart is left as it
// is until the payment surface reports back.
func (s *CheckoutService) Checkout(ctx context.Context, userID, idempotencyKey string) (*checkout.Initiated, error) {
	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	started, err := s.handoff.InitiateCheckout(ctx, checkout.InitiateRequest{
		UserID:         userID,
		Total:          c.Total(),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.log).Info("checkout initiated",
		zap.String("checkout_id", started.Request.ID),
		zap.String("user_id", userID),
		zap.String("amount", started.Request.Amount.String()))
	return started, nil
}

// Complete handles the return from the payment surface. The request's owner is
// taken from the ledger, never from the caller.
func (s *CheckoutService) Complete(ctx context.Context, sig checkout.Signal) (*checkout.Result, error) {
	if sig.RequestID == "" || sig.Token == "" {
		return nil, checkout.ErrInvalidSignal
	}

	req, err := s.handoff.Request(ctx, sig.RequestID)
	if err != nil {
		return nil, err
	}

	var result *checkout.Result
	_, err = s.carts.Update(ctx, req.UserID, func(c *cart.Cart) error {
		var observeErr error
		result, observeErr = s.handoff.ObserveCompletion(ctx, sig, c)
		return observeErr
	})

	log := logger.FromContext(ctx, s.log).With(zap.String("checkout_id", sig.RequestID))
	if err != nil && result != nil && result.Cleared {
		// The ledger already holds COMPLETED; only the cart save failed.
		log.Warn("paid cart save failed, settling", zap.Error(err))
		if settleErr := s.carts.SettlePaid(ctx, req.UserID); settleErr != nil {
			log.Error("paid cart settle failed", zap.Error(settleErr))
		}
		err = nil
	}
	switch {
	case err == nil:
		log.Info("checkout completion observed",
			zap.String("status", result.Request.Status.String()),
			zap.Bool("cart_cleared", result.Cleared))
	case errors.Is(err, checkout.ErrAlreadyObserved):
		log.Warn("repeated completion signal ignored")
	default:
		log.Error("checkout completion failed", zap.Error(err))
	}
	return result, err
}

// Get returns the user's own payment request.
func (s *CheckoutService) Get(ctx context.Context, userID, id string) (*domain.PaymentRequest, error) {
	req, err := s.handoff.Request(ctx, id)
	if errors.Is(err, checkout.ErrRequestNotFound) {
		return nil, ErrCheckoutNotFound
	}
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, ErrCheckoutNotFound
	}
	return req, nil
}
