package passcode

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists passcode requests.
type Repository interface {
	Create(ctx context.Context, req *Request) error
	// LatestPending returns the newest unverified request for a normalized
	// contact, or nil when none exists. Expired requests are still returned
	// so the service can distinguish "expired" from "never asked".
	LatestPending(ctx context.Context, contact string) (*Request, error)
	// CountRecent counts requests since the given time for one requester.
	// Requests are attributed to a device id when the client sent one,
	// otherwise to the request IP.
	CountRecent(ctx context.Context, contact string, deviceID *string, ip string, since time.Time) (int, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error
}
