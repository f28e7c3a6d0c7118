package clinic

import (
	"context"

	"github.com/google/uuid"
)

// DirectoryRepository reads the clinic directory.
type DirectoryRepository interface {
	// ListPortalEnabledByIDs returns the portal-enabled subset of the given
	// clinics. Unknown ids are silently dropped.
	ListPortalEnabledByIDs(ctx context.Context, ids []uuid.UUID) ([]*Clinic, error)
}

// PatientRepository reads clinic-owned patient records for identity matching.
type PatientRepository interface {
	// FindByNormalizedContact returns all patient records in portal-enabled
	// clinics whose normalized stored contact equals the given key.
	FindByNormalizedContact(ctx context.Context, normalized string) ([]*Patient, error)
}
