package cache

import (
	"context"
	"errors"

	"github.com/Johnm75/Tienda/internal/cart"
)

// SessionCarts keeps one cart per shopping session. Entries expire with the
// session and are never written anywhere else.
type SessionCarts interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
	Set(ctx context.Context, userID string, c *cart.Cart) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
