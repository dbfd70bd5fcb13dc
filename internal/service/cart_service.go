package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Johnm75/Tienda/internal/cache"
	"github.com/Johnm75/Tienda/internal/cart"
	"github.com/Johnm75/Tienda/internal/catalog"
	"github.com/Johnm75/Tienda/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CartService owns the session carts. Mutations for one user are serialised
// and always read the cache under the user's lock; only GetCart collapses
// concurrent loads.
type CartService struct {
	carts   cache.SessionCarts
	catalog catalog.Catalog
	log     *zap.Logger
	sfg     singleflight.Group // Prevents cache stampede

	mu    sync.Mutex
	locks map[string]*userLock

	// paid holds users whose cart was paid for but could not be dropped from
	// the cache. Their stored lines are discarded on the next locked access.
	paidMu sync.Mutex
	paid   map[string]struct{}
}

// Delete attempts made by SettlePaid.
const settleAttempts = 3

var settleBackoff = 50 * time.Millisecond

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewCartService(carts cache.SessionCarts, products catalog.Catalog, log *zap.Logger) *CartService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartService{
		carts:   carts,
		catalog: products,
		log:     log,
		locks:   make(map[string]*userLock),
		paid:    make(map[string]struct{}),
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*cart.Cart, error) {
	if s.isPaid(userID) {
		unlock := s.lock(userID)
		defer unlock()
		return s.fetch(ctx, userID)
	}
	return s.load(ctx, userID)
}

func (s *CartService) AddItem(ctx context.Context, userID string, productID int64) (*cart.Cart, error) {
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.Update(ctx, userID, func(c *cart.Cart) error {
		c.Add(p)
		return nil
	})
}

// RemoveItem drops the first line for productID. A product that is not in the
// cart leaves it unchanged.
func (s *CartService) RemoveItem(ctx context.Context, userID string, productID int64) (*cart.Cart, error) {
	return s.Update(ctx, userID, func(c *cart.Cart) error {
		if p, ok := c.Find(productID); ok {
			c.Remove(p)
		}
		return nil
	})
}

func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	unlock := s.lock(userID)
	defer unlock()

	if err := s.carts.Delete(ctx, userID); err != nil {
		logger.FromContext(ctx, s.log).Error("cart delete failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	s.setPaid(userID, false)
	return nil
}

// SettlePaid drops a cart whose payment has been recorded. The cart is marked
// paid first; the mark survives when the cache keeps refusing the delete, so
// its lines are never served or checked out again by this process.
func (s *CartService) SettlePaid(ctx context.Context, userID string) error {
	s.setPaid(userID, true)

	var err error
retry:
	for attempt := 1; attempt <= settleAttempts; attempt++ {
		if err = s.ClearCart(ctx, userID); err == nil {
			return nil
		}
		if attempt == settleAttempts {
			break
		}
		select {
		case <-ctx.Done():
			break retry
		case <-time.After(settleBackoff * time.Duration(attempt)):
		}
	}
	logger.FromContext(ctx, s.log).Warn("paid cart kept in cache, marked for drop",
		zap.String("user_id", userID), zap.Error(err))
	return err
}

// Update loads the user's cart, applies fn and saves the result. Nothing is
// saved when fn fails.
func (s *CartService) Update(ctx context.Context, userID string, fn func(*cart.Cart) error) (*cart.Cart, error) {
	unlock := s.lock(userID)
	defer unlock()

	c, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := fn(c); err != nil {
		return nil, err
	}

	if c.IsEmpty() {
		err = s.carts.Delete(ctx, userID)
	} else {
		err = s.carts.Set(ctx, userID, c)
	}
	if err != nil {
		logger.FromContext(ctx, s.log).Error("cart save failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// load is the read-only path. It returns a private copy; callers sharing a
// singleflight result must not share the cart.
func (s *CartService) load(ctx context.Context, userID string) (*cart.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		return s.get(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	return cart.New(v.(*cart.Cart).Lines()...), nil
}

// fetch reads the cart straight from the cache. The caller holds the user's
// lock, so the result reflects every mutation that finished before it.
func (s *CartService) fetch(ctx context.Context, userID string) (*cart.Cart, error) {
	if s.isPaid(userID) {
		if err := s.carts.Delete(ctx, userID); err != nil {
			logger.FromContext(ctx, s.log).Error("paid cart drop failed", zap.String("user_id", userID), zap.Error(err))
			return nil, fmt.Errorf("drop paid cart: %w", err)
		}
		s.setPaid(userID, false)
		return cart.New(), nil
	}
	return s.get(ctx, userID)
}

func (s *CartService) get(ctx context.Context, userID string) (*cart.Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if errors.Is(err, cache.ErrCacheMiss) {
		return cart.New(), nil
	}
	if err != nil {
		logger.FromContext(ctx, s.log).Error("cart load failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return c, nil
}

func (s *CartService) isPaid(userID string) bool {
	s.paidMu.Lock()
	defer s.paidMu.Unlock()
	_, ok := s.paid[userID]
	return ok
}

func (s *CartService) setPaid(userID string, paid bool) {
	s.paidMu.Lock()
	defer s.paidMu.Unlock()
	if paid {
		s.paid[userID] = struct{}{}
	} else {
		delete(s.paid, userID)
	}
}

func (s *CartService) lock(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}
