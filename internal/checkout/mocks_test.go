package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/Johnm75/Tienda/internal/domain"
)

type memLedger struct {
	mu        sync.Mutex
	requests  map[string]*domain.PaymentRequest
	createErr error
}

func newMemLedger() *memLedger {
	return &memLedger{requests: map[string]*domain.PaymentRequest{}}
}

func (m *memLedger) Create(_ context.Context, req *domain.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *memLedger) Get(_ context.Context, id string) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memLedger) GetByIdempotencyKey(_ context.Context, userID, key string) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		if req.UserID == userID && req.IdempotencyKey == key {
			cp := *req
			return &cp, nil
		}
	}
	return nil, ErrRequestNotFound
}

func (m *memLedger) Complete(_ context.Context, id, paymentID string) error {
	return m.finish(id, domain.CheckoutStatusCompleted, paymentID)
}

func (m *memLedger) Fail(_ context.Context, id string) error {
	return m.finish(id, domain.CheckoutStatusFailed, "")
}

func (m *memLedger) finish(id string, to domain.CheckoutStatus, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	if !domain.CanTransitionTo(req.Status, to) {
		return ErrAlreadyObserved
	}
	req.Status = to
	req.PaymentID = paymentID
	return nil
}

type stubVerifier struct {
	conf  *Confirmation
	err   error
	calls int
}

func (s *stubVerifier) Verify(_ context.Context, _, _ string) (*Confirmation, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.conf, nil
}

type stubRedirector struct {
	err error
}

func (s stubRedirector) RedirectURL(req *domain.PaymentRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://pay.example.com/pay?request_id=" + req.ID, nil
}

var errUnavailable = errors.New("payment surface unavailable")
