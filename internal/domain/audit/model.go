// Package audit records which clinical records a portal user has seen. Writes
// are fire-and-forget: readers never wait on the audit trail, and a full
// queue drops entries rather than slowing a page load.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Resource types recorded in the access log.
const (
	ResourceVisitSummary = "visit_summary"
	ResourceVisitDetail  = "visit_detail"
	ResourceDoctorNote   = "doctor_note"
)

// Entry is one recorded access to a clinical resource.
type Entry struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	ResourceID   uuid.UUID `db:"resource_id" json:"resource_id"`
	ClinicID     uuid.UUID `db:"clinic_id" json:"clinic_id"`
	OccurredAt   time.Time `db:"occurred_at" json:"occurred_at"`
}
