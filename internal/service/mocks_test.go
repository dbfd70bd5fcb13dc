package service

import (
	"context"
	"errors"
	"sync"

	"github.com/Johnm75/Tienda/internal/cache"
	"github.com/Johnm75/Tienda/internal/cart"
	"github.com/Johnm75/Tienda/internal/catalog"
	"github.com/Johnm75/Tienda/internal/checkout"
	"github.com/Johnm75/Tienda/internal/docstore"
	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/Johnm75/Tienda/internal/identity"
	"github.com/Johnm75/Tienda/internal/orders"
	"github.com/shopspring/decimal"
)

type mockCarts struct {
	m     sync.RWMutex
	carts map[string][]byte
	err   error
	gets  int

	// onGet runs once, inside the next Get, after the stored bytes are read.
	onGet func()
	// deleteFails makes that many Delete calls fail before they succeed again.
	deleteFails int
}

func newMockCarts() *mockCarts {
	return &mockCarts{carts: map[string][]byte{}}
}

func (m *mockCarts) Get(_ context.Context, userID string) (*cart.Cart, error) {
	m.m.Lock()
	m.gets++
	if m.err != nil {
		m.m.Unlock()
		return nil, m.err
	}
	data, ok := m.carts[userID]
	hook := m.onGet
	m.onGet = nil
	m.m.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	var c cart.Cart
	if err := c.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *mockCarts) Set(_ context.Context, userID string, c *cart.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	data, err := c.MarshalJSON()
	if err != nil {
		return err
	}
	m.carts[userID] = data
	return nil
}

func (m *mockCarts) Delete(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.deleteFails > 0 {
		m.deleteFails--
		return errors.New("redis timeout")
	}
	delete(m.carts, userID)
	return nil
}

func (m *mockCarts) failDeletes(n int) {
	m.m.Lock()
	defer m.m.Unlock()
	m.deleteFails = n
}

func (m *mockCarts) hookGet(fn func()) {
	m.m.Lock()
	defer m.m.Unlock()
	m.onGet = fn
}

func (m *mockCarts) has(userID string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.carts[userID]
	return ok
}

func (m *mockCarts) setErr(err error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.err = err
}

type mockCatalog struct {
	products map[int64]domain.Product
}

func newMockCatalog(products ...domain.Product) *mockCatalog {
	m := &mockCatalog{products: map[int64]domain.Product{}}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockCatalog) List(context.Context, int, int) (*catalog.Page, error) {
	return nil, errors.New("not used")
}

func (m *mockCatalog) Get(_ context.Context, id int64) (domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

var (
	shirt = domain.Product{ID: 1, Name: "Camisa", Price: decimal.RequireFromString("10.00"), Image: domain.LocalImage("camisa")}
	shoes = domain.Product{ID: 2, Name: "Zapatos", Price: decimal.RequireFromString("25.50"), Image: domain.RemoteImage("https://cdn.test/zapatos.png")}
)

type mockProvider struct {
	mu        sync.Mutex
	users     map[string]domain.UserHandle
	passwords map[string]string
	deleteErr error
	google    domain.UserHandle
	deleted   []string
}

func newMockProvider() *mockProvider {
	return &mockProvider{users: map[string]domain.UserHandle{}, passwords: map[string]string{}}
}

func (m *mockProvider) SignIn(_ context.Context, cred identity.Credential) (domain.UserHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch c := cred.(type) {
	case identity.PasswordCredential:
		u, ok := m.users[c.Email]
		if !ok || m.passwords[c.Email] != c.Password {
			return domain.UserHandle{}, &domain.AuthError{Op: "sign in", Err: domain.ErrInvalidCredentials}
		}
		return u, nil
	case identity.GoogleCredential:
		if c.IDToken != "valid-google-token" {
			return domain.UserHandle{}, &domain.AuthError{Op: "google sign in", Err: domain.ErrInvalidToken}
		}
		return m.google, nil
	}
	return domain.UserHandle{}, errors.New("unsupported")
}

func (m *mockProvider) SignUp(_ context.Context, email, password string) (domain.UserHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return domain.UserHandle{}, &domain.AuthError{Op: "sign up", Err: domain.ErrEmailTaken}
	}
	u := domain.UserHandle{UID: "uid-" + email, Email: email}
	m.users[email] = u
	m.passwords[email] = password
	return u, nil
}

func (m *mockProvider) DeleteUser(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for email, u := range m.users {
		if u.UID == uid {
			delete(m.users, email)
			m.deleted = append(m.deleted, uid)
			return nil
		}
	}
	return &domain.AuthError{Op: "delete user", Err: domain.ErrUserNotFound}
}

func (m *mockProvider) IssueToken(u domain.UserHandle) (string, error) {
	return "token-" + u.UID, nil
}

func (m *mockProvider) Authenticate(_ context.Context, token string) (domain.UserHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if "token-"+u.UID == token {
			return u, nil
		}
	}
	return domain.UserHandle{}, &domain.AuthError{Op: "authenticate", Err: domain.ErrInvalidToken}
}

type mockDocs struct {
	mu        sync.Mutex
	docs      map[string]docstore.Document
	setErr    error
	deleteErr error
	ops       []string
}

func newMockDocs() *mockDocs {
	return &mockDocs{docs: map[string]docstore.Document{}}
}

func docKey(collection, id string) string { return collection + "/" + id }

func notFound(op, collection, id string) error {
	return &domain.StoreError{Op: op, Collection: collection, ID: id, Err: docstore.ErrNotFound}
}

func (m *mockDocs) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docKey(collection, id)]
	if !ok {
		return nil, notFound("get", collection, id)
	}
	out := docstore.Document{}
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

func (m *mockDocs) Set(_ context.Context, collection, id string, fields docstore.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.docs[docKey(collection, id)] = fields
	return nil
}

func (m *mockDocs) Update(_ context.Context, collection, id string, fields docstore.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docKey(collection, id)]
	if !ok {
		return notFound("update", collection, id)
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (m *mockDocs) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, "delete "+docKey(collection, id))
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.docs[docKey(collection, id)]; !ok {
		return notFound("delete", collection, id)
	}
	delete(m.docs, docKey(collection, id))
	return nil
}

func (m *mockDocs) has(collection, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[docKey(collection, id)]
	return ok
}

type memLedger struct {
	mu       sync.Mutex
	requests map[string]*domain.PaymentRequest
}

func newMemLedger() *memLedger {
	return &memLedger{requests: map[string]*domain.PaymentRequest{}}
}

func (m *memLedger) Create(_ context.Context, req *domain.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *memLedger) Get(_ context.Context, id string) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, checkout.ErrRequestNotFound
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
	return nil, checkout.ErrRequestNotFound
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
		return checkout.ErrRequestNotFound
	}
	if !domain.CanTransitionTo(req.Status, to) {
		return checkout.ErrAlreadyObserved
	}
	req.Status = to
	req.PaymentID = paymentID
	return nil
}

// approvingVerifier confirms whatever the ledger holds for the request.
type approvingVerifier struct {
	ledger   *memLedger
	approved bool
	err      error
}

func (v *approvingVerifier) Verify(ctx context.Context, requestID, _ string) (*checkout.Confirmation, error) {
	if v.err != nil {
		return nil, v.err
	}
	req, err := v.ledger.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return &checkout.Confirmation{
		RequestID: req.ID,
		Approved:  v.approved,
		Amount:    req.Amount,
		Currency:  req.Currency,
		PaymentID: "pay-1",
	}, nil
}

type stubRedirector struct{}

func (stubRedirector) RedirectURL(req *domain.PaymentRequest) (string, error) {
	return "https://pay.test/pay?request_id=" + req.ID, nil
}

type mockHistory struct {
	deletedFor []string
}

func (m *mockHistory) Record(context.Context, *orders.Purchase) error { return nil }

func (m *mockHistory) ListByUser(context.Context, string) ([]*orders.Purchase, error) {
	return nil, nil
}

func (m *mockHistory) DeleteByUser(_ context.Context, userID string) error {
	m.deletedFor = append(m.deletedFor, userID)
	return nil
}
