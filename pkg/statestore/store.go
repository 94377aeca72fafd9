// Package statestore persists the session's JSON documents (the cart and the
// order history) behind a small key-value interface with memory, Redis and SQL
// backends, plus an async writer that keeps persistence off the caller's path.
package statestore

import (
	"context"
	"errors"
)

// Keys used by the session state.
const (
	KeyCart   = "cart"
	KeyOrders = "orders"
)

// ErrNotFound is returned by Load when nothing was stored under the key.
var ErrNotFound = errors.New("state entry not found")

// Store is a durable key-value store of opaque JSON payloads.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}
