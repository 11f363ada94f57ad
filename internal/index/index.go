package index

import (
	"context"

	"github.com/starford/othala/internal/models"
)

// LinkIndex is the mutable edge store layered over immutable entries.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type LinkIndex interface {
	AddLink(ctx context.Context, l models.Link) error
	RemoveLink(ctx context.Context, l models.Link) error
	Links(ctx context.Context, base models.Address, linkType, tag models.LinkMatch) ([]models.Link, error)
	Backlinks(ctx context.Context, target models.Address, linkType, tag models.LinkMatch) ([]models.Link, error)
	Close() error
}

// Verify *DB satisfies LinkIndex at compile time.
var _ LinkIndex = (*DB)(nil)
