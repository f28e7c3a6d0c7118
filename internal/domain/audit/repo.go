package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists access log entries.
type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	// ListByUser returns the user's access history, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Entry, error)
}
