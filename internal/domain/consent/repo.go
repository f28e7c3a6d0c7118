package consent

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists consent entries. Implementations keep one current entry
// per (identity, clinic, category); Record replaces any previous decision.
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	// ListByIdentity returns the current entries for every clinic the
	// identity has recorded a decision for.
	ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*Entry, error)
	// Get returns the current entry for one (identity, clinic, category) or
	// nil when no decision was ever recorded.
	Get(ctx context.Context, identityID, clinicID uuid.UUID, category Category) (*Entry, error)
}
