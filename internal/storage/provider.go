// Package storage defines the content-addressed record store.
package storage

import (
	"context"

	"github.com/starford/othala/internal/models"
)

// Provider is the interface for immutable, content-addressed entry storage.
type Provider interface {
	// Put stores e and returns its content address. Storing identical content twice
	// yields the same address and is not an error.
	Put(ctx context.Context, e models.Entry) (models.Address, error)
	// Get returns the entry at addr, or apperr.ErrNotFound.
	Get(ctx context.Context, addr models.Address) (models.Entry, error)
	// Has reports whether an entry is stored at addr.
	Has(ctx context.Context, addr models.Address) (bool, error)
	// Remove drops the entry at addr. Removing a missing entry is not an error.
	Remove(ctx context.Context, addr models.Address) error
	// Close releases the backend.
	Close() error
}
