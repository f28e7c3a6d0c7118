package consent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/domain/clinic"
	"github.com/carelink/carelink/internal/domain/identity"
)

// ClinicAccess is the visible slice of one clinic for an identity: the clinic
// name for display plus the clinic-local patient records the identity links to.
type ClinicAccess struct {
	ClinicID   uuid.UUID   `json:"clinic_id"`
	ClinicName string      `json:"clinic_name"`
	PatientIDs []uuid.UUID `json:"patient_ids"`
}

// Service answers visibility questions against the consent ledger. Decisions
// are recomputed from the ledger on every call; nothing is cached, so a
// revocation takes effect on the very next read.
type Service struct {
	entries Repository
	links   identity.LinkRepository
	clinics clinic.DirectoryRepository

	now func() time.Time
}

func NewService(entries Repository, links identity.LinkRepository, clinics clinic.DirectoryRepository) *Service {
	return &Service{
		entries: entries,
		links:   links,
		clinics: clinics,
		now:     time.Now,
	}
}

// SetConsent records a decision, replacing any earlier entry for the same
// (clinic, category).
func (s *Service) SetConsent(ctx context.Context, identityID, clinicID uuid.UUID, category Category, status Status) (*Entry, error) {
	entry := &Entry{
		ID:         uuid.New(),
		IdentityID: identityID,
		ClinicID:   clinicID,
		Category:   category,
		Status:     status,
		RecordedAt: s.now(),
	}
	if err := s.entries.Record(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListConsents returns the identity's current ledger entries.
func (s *Service) ListConsents(ctx context.Context, identityID uuid.UUID) ([]*Entry, error) {
	return s.entries.ListByIdentity(ctx, identityID)
}

// IsVisible reports whether data of the given category from the given clinic
// may be shown to the identity. No entry means visible; an ALL revocation
// hides the category even when the category itself was explicitly granted.
func (s *Service) IsVisible(ctx context.Context, identityID, clinicID uuid.UUID, category Category) (bool, error) {
	all, err := s.entries.Get(ctx, identityID, clinicID, CategoryAll)
	if err != nil {
		return false, err
	}
	if all != nil && all.Status == StatusRevoked {
		return false, nil
	}

	entry, err := s.entries.Get(ctx, identityID, clinicID, category)
	if err != nil {
		return false, err
	}
	if entry != nil && entry.Status == StatusRevoked {
		return false, nil
	}
	return true, nil
}

// ResolveClinicAccess computes, from the identity's verified links and the
// current ledger, which clinics may show data of the given category and which
// clinic-local patient records that covers. Clinics that are no longer
// portal-enabled drop out even when links to them remain.
func (s *Service) ResolveClinicAccess(ctx context.Context, identityID uuid.UUID, category Category) (map[uuid.UUID]*ClinicAccess, error) {
	links, err := s.links.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	if len(links) == 0 {
		return map[uuid.UUID]*ClinicAccess{}, nil
	}

	seen := make(map[uuid.UUID]bool)
	var clinicIDs []uuid.UUID
	for _, l := range links {
		if !seen[l.ClinicID] {
			seen[l.ClinicID] = true
			clinicIDs = append(clinicIDs, l.ClinicID)
		}
	}

	clinics, err := s.clinics.ListPortalEnabledByIDs(ctx, clinicIDs)
	if err != nil {
		return nil, fmt.Errorf("loading clinics: %w", err)
	}

	entries, err := s.entries.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("loading consent entries: %w", err)
	}
	revoked := make(map[uuid.UUID]bool)
	for _, e := range entries {
		if e.Status != StatusRevoked {
			continue
		}
		if e.Category == CategoryAll || e.Category == category {
			revoked[e.ClinicID] = true
		}
	}

	access := make(map[uuid.UUID]*ClinicAccess)
	for _, c := range clinics {
		if revoked[c.ID] {
			continue
		}
		access[c.ID] = &ClinicAccess{ClinicID: c.ID, ClinicName: c.Name}
	}
	for _, l := range links {
		if a, ok := access[l.ClinicID]; ok {
			a.PatientIDs = append(a.PatientIDs, l.ClinicPatientID)
		}
	}
	return access, nil
}
