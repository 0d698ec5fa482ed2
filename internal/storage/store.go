// Package storage provides the narrow key-value item interface the API
// handlers and workflow consumers persist through.
package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrItemNotFound is returned by Get when no item exists for the key.
var ErrItemNotFound = errors.New("item not found")

// Logical tables. Users are keyed by email; stock holdings by
// "<email>#<symbol>" so one user's portfolio is a single prefix query.
const (
	TableUsers  = "users"
	TableStocks = "stocks"
)

// HoldingKey builds the item key for one user's position in one symbol.
func HoldingKey(email, symbol string) string {
	return email + "#" + symbol
}

// ItemStore is the persistence contract. Implementations must support
// single-item conditional writes (PutIfAbsent); the API layer relies on
// them instead of its own locking.
type ItemStore interface {
	// Get returns the stored value, or ErrItemNotFound.
	Get(ctx context.Context, table, key string) (json.RawMessage, error)
	// Put stores the value, overwriting any existing item.
	Put(ctx context.Context, table, key string, value interface{}) error
	// PutIfAbsent stores the value only when no item exists yet; it
	// reports whether the write happened.
	PutIfAbsent(ctx context.Context, table, key string, value interface{}) (bool, error)
	// Delete removes the item. Deleting a missing item is not an error.
	Delete(ctx context.Context, table, key string) error
	// Query returns all items whose key starts with keyPrefix.
	Query(ctx context.Context, table, keyPrefix string) (map[string]json.RawMessage, error)
}
