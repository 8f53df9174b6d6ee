// Package state persists workbench state (open queries, active tab, last
// route, theme) in a local key/value store.
package state

import (
	"context"
	"errors"
)

// ErrNotOpened is returned when a store is used before Open.
var ErrNotOpened = errors.New("database not opened")

// Store is a key-scoped byte store.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set writes the value for key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
