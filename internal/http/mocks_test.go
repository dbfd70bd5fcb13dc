package http

import (
	"context"
	"errors"
	"sync"

	"github.com/Johnm75/Tienda/internal/cart"
	"github.com/Johnm75/Tienda/internal/catalog"
	"github.com/Johnm75/Tienda/internal/checkout"
	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/Johnm75/Tienda/internal/gate"
	"github.com/Johnm75/Tienda/internal/orders"
	"github.com/Johnm75/Tienda/internal/service"
	"github.com/shopspring/decimal"
)

const testToken = "good-token"

var testUser = domain.UserHandle{UID: "user-1", Email: "ana@example.com"}

type mockAuth struct{}

func (mockAuth) Authenticate(_ context.Context, token string) (domain.UserHandle, error) {
	if token != testToken {
		return domain.UserHandle{}, &domain.AuthError{Op: "authenticate", Err: domain.ErrInvalidToken}
	}
	return testUser, nil
}

var (
	shirt = domain.Product{ID: 1, Name: "Shirt", Price: decimal.RequireFromString("10.00"), Image: domain.LocalImage("shirt")}
	shoes = domain.Product{ID: 2, Name: "Shoes", Price: decimal.RequireFromString("25.5"), Image: domain.RemoteImage("https://cdn.example.com/shoes.png")}
)

type mockCatalog struct {
	err error
}

func (m mockCatalog) List(_ context.Context, page, pageSize int) (*catalog.Page, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &catalog.Page{Products: []domain.Product{shirt, shoes}, Page: page, PageSize: pageSize, Total: 2}, nil
}

func (m mockCatalog) Get(_ context.Context, id int64) (domain.Product, error) {
	switch id {
	case shirt.ID:
		return shirt, nil
	case shoes.ID:
		return shoes, nil
	}
	return domain.Product{}, catalog.ErrProductNotFound
}

// mockCarts keeps carts in memory keyed by user id.
type mockCarts struct {
	mu    sync.Mutex
	carts map[string]*cart.Cart
	err   error
}

func newMockCarts() *mockCarts {
	return &mockCarts{carts: make(map[string]*cart.Cart)}
}

func (m *mockCarts) get(userID string) *cart.Cart {
	c, ok := m.carts[userID]
	if !ok {
		c = cart.New()
		m.carts[userID] = c
	}
	return c
}

func (m *mockCarts) GetCart(_ context.Context, userID string) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return cart.New(m.get(userID).Lines()...), nil
}

func (m *mockCarts) AddItem(ctx context.Context, userID string, productID int64) (*cart.Cart, error) {
	p, err := mockCatalog{}.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c := m.get(userID)
	c.Add(p)
	return cart.New(c.Lines()...), nil
}

func (m *mockCarts) RemoveItem(_ context.Context, userID string, productID int64) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.get(userID)
	if p, ok := c.Find(productID); ok {
		c.Remove(p)
	}
	return cart.New(c.Lines()...), nil
}

func (m *mockCarts) ClearCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return m.err
}

type mockCheckouts struct {
	initiated *checkout.Initiated
	result    *checkout.Result
	request   *domain.PaymentRequest
	err       error

	lastKey    string
	lastSignal checkout.Signal
}

func (m *mockCheckouts) Checkout(_ context.Context, _ string, key string) (*checkout.Initiated, error) {
	m.lastKey = key
	return m.initiated, m.err
}

func (m *mockCheckouts) Complete(_ context.Context, sig checkout.Signal) (*checkout.Result, error) {
	m.lastSignal = sig
	return m.result, m.err
}

func (m *mockCheckouts) Get(_ context.Context, userID, id string) (*domain.PaymentRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.request == nil || m.request.ID != id || m.request.UserID != userID {
		return nil, service.ErrCheckoutNotFound
	}
	return m.request, nil
}

type mockHistory struct {
	purchases []*orders.Purchase
	err       error
}

func (m mockHistory) ListByUser(_ context.Context, userID string) ([]*orders.Purchase, error) {
	return m.purchases, m.err
}

type mockAccounts struct {
	session   *service.Session
	profile   domain.Profile
	err       error
	confirmed bool
	cancelled bool
	loggedOut string
	status    gate.Status
}

func (m *mockAccounts) Register(_ context.Context, in service.RegisterInput) (*service.Session, error) {
	if in.Email == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	return m.session, m.err
}

func (m *mockAccounts) Login(_ context.Context, email, password string) (*service.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	if password != "secret1" {
		return nil, &domain.AuthError{Op: "sign in", Err: domain.ErrInvalidCredentials}
	}
	return m.session, nil
}

func (m *mockAccounts) LoginWithGoogle(_ context.Context, idToken string) (*service.Session, error) {
	if idToken == "" {
		return nil, &domain.ValidationError{Field: "id_token", Reason: "is required"}
	}
	return m.session, m.err
}

func (m *mockAccounts) Logout(_ context.Context, userID string) error {
	m.loggedOut = userID
	return m.err
}

func (m *mockAccounts) Profile(context.Context, string) (domain.Profile, error) {
	return m.profile, m.err
}

func (m *mockAccounts) UpdateProfile(_ context.Context, _ string, in service.ProfileUpdate) (domain.Profile, error) {
	if m.err != nil {
		return domain.Profile{}, m.err
	}
	p := m.profile
	if in.Name != nil {
		p.Name = *in.Name
	}
	return p, nil
}

func (m *mockAccounts) OpenDeletion(string) gate.Status {
	m.status = gate.Status{State: gate.Counting, Remaining: 5, Visible: true}
	return m.status
}

func (m *mockAccounts) DeletionStatus(string) gate.Status { return m.status }

func (m *mockAccounts) CancelDeletion(string) {
	m.cancelled = true
	m.status = gate.Status{State: gate.Hidden, Remaining: 5}
}

func (m *mockAccounts) ConfirmDeletion(context.Context, string) error {
	if m.err != nil {
		return m.err
	}
	if !m.status.Armed {
		return gate.ErrNotArmed
	}
	m.confirmed = true
	return nil
}

var errBoom = errors.New("boom")
