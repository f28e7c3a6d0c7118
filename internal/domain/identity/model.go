// Package identity owns the portal-side view of who a patient is: the portal
// user account keyed by login contact, the cross-clinic patient identity, and
// the verified links from that identity to clinic-local patient records.
package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrIdentityNotFound is returned when no identity exists for a lookup key.
	ErrIdentityNotFound = errors.New("patient identity not found")
	// ErrUserNotFound is returned when no portal user exists for a lookup key.
	ErrUserNotFound = errors.New("portal user not found")
)

// PatientIdentity is the cross-clinic identity a portal user acts as. One
// identity may link to patient records in many clinics.
type PatientIdentity struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PrimaryPhone *string   `db:"primary_phone" json:"primary_phone,omitempty"`
	Email        *string   `db:"email" json:"email,omitempty"`
	DisplayName  *string   `db:"display_name" json:"display_name,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// PortalUser is a login account. It is keyed by the normalized contact the
// patient authenticates with and always belongs to exactly one identity.
type PortalUser struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	IdentityID  uuid.UUID  `db:"identity_id" json:"identity_id"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// PatientLink is a verified association between an identity and one
// clinic-local patient record. The (clinic, patient) pair is unique; repeat
// verifications refresh the existing link instead of duplicating it.
type PatientLink struct {
	ID              uuid.UUID `db:"id" json:"id"`
	IdentityID      uuid.UUID `db:"identity_id" json:"identity_id"`
	ClinicID        uuid.UUID `db:"clinic_id" json:"clinic_id"`
	ClinicPatientID uuid.UUID `db:"clinic_patient_id" json:"clinic_patient_id"`
	VerifiedAt      time.Time `db:"verified_at" json:"verified_at"`
}
