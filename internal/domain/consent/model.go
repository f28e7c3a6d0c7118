// Package consent tracks per-clinic, per-category sharing decisions for a
// patient identity. The model is opt-out: absence of an entry means data is
// shared, and a revocation for the ALL category dominates any category grant.
package consent

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category identifies a class of shareable data.
type Category string

const (
	CategoryVisits  Category = "visits"
	CategoryLab     Category = "lab"
	CategoryMeds    Category = "meds"
	CategoryBilling Category = "billing"
	// CategoryAll addresses every category at once. A revocation here hides
	// the whole clinic regardless of per-category entries.
	CategoryAll Category = "all"
)

// Status is the recorded decision for one (identity, clinic, category).
type Status string

const (
	StatusGranted Status = "GRANTED"
	StatusRevoked Status = "REVOKED"
)

// ParseCategory validates a category string from an API payload.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryVisits, CategoryLab, CategoryMeds, CategoryBilling, CategoryAll:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown consent category %q", s)
}

// Entry is one recorded consent decision. Later entries for the same
// (identity, clinic, category) replace earlier ones.
type Entry struct {
	ID         uuid.UUID `db:"id" json:"id"`
	IdentityID uuid.UUID `db:"identity_id" json:"identity_id"`
	ClinicID   uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Category   Category  `db:"category" json:"category"`
	Status     Status    `db:"status" json:"status"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}
