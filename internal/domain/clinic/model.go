// Package clinic exposes read-only views of the clinic directory and the
// clinic-owned patient stores. The portal core never writes to either; clinic
// tenants own these records and maintain them through their own surfaces.
package clinic

import (
	"time"

	"github.com/google/uuid"
)

// Clinic is a directory entry for one clinic tenant.
type Clinic struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	PortalEnabled bool      `db:"portal_enabled" json:"portal_enabled"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Patient is a clinic-local patient record. ContactNormalized is maintained by
// the clinic-side CRUD and is the join key for cross-clinic identity matching.
type Patient struct {
	ID                uuid.UUID `db:"id" json:"id"`
	ClinicID          uuid.UUID `db:"clinic_id" json:"clinic_id"`
	FullName          *string   `db:"full_name" json:"full_name,omitempty"`
	Contact           *string   `db:"contact" json:"contact,omitempty"`
	ContactNormalized *string   `db:"contact_normalized" json:"contact_normalized,omitempty"`
}
