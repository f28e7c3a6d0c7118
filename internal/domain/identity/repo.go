package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdentityRepository persists cross-clinic patient identities.
type IdentityRepository interface {
	Create(ctx context.Context, ident *PatientIdentity) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientIdentity, error)
	Update(ctx context.Context, ident *PatientIdentity) error
}

// UserRepository persists portal user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *PortalUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*PortalUser, error)
	// GetByPhone and GetByEmail look up by normalized contact and return
	// ErrUserNotFound when no account exists.
	GetByPhone(ctx context.Context, phone string) (*PortalUser, error)
	GetByEmail(ctx context.Context, email string) (*PortalUser, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// LinkRepository persists identity-to-clinic-patient links.
type LinkRepository interface {
	// Upsert inserts the link or, when the (clinic, patient) pair is already
	// linked, refreshes its identity and verification time.
	Upsert(ctx context.Context, link *PatientLink) error
	ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*PatientLink, error)
}
