package identity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/domain/clinic"
	"github.com/carelink/carelink/pkg/contact"
)

// Resolver maintains the mapping from login contacts to cross-clinic patient
// identities. It runs inside the login transaction on every successful
// passcode verification, so a patient's clinic links are refreshed each time
// they prove control of their contact.
type Resolver struct {
	identities IdentityRepository
	users      UserRepository
	links      LinkRepository
	patients   clinic.PatientRepository

	now func() time.Time
}

func NewResolver(identities IdentityRepository, users UserRepository, links LinkRepository, patients clinic.PatientRepository) *Resolver {
	return &Resolver{
		identities: identities,
		users:      users,
		links:      links,
		patients:   patients,
		now:        time.Now,
	}
}

// GetOrCreateUser returns the portal user for a normalized contact, creating
// the user and a fresh patient identity on first login.
func (r *Resolver) GetOrCreateUser(ctx context.Context, normalized string) (*PortalUser, *PatientIdentity, error) {
	viaEmail := contact.IsEmail(normalized)

	var user *PortalUser
	var err error
	if viaEmail {
		user, err = r.users.GetByEmail(ctx, normalized)
	} else {
		user, err = r.users.GetByPhone(ctx, normalized)
	}
	if err == nil {
		ident, err := r.identities.GetByID(ctx, user.IdentityID)
		if err != nil {
			return nil, nil, fmt.Errorf("loading identity for user %s: %w", user.ID, err)
		}
		return user, ident, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, nil, err
	}

	now := r.now()
	ident := &PatientIdentity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	user = &PortalUser{
		ID:         uuid.New(),
		IdentityID: ident.ID,
		CreatedAt:  now,
	}
	if viaEmail {
		ident.Email = &normalized
		user.Email = &normalized
	} else {
		ident.PrimaryPhone = &normalized
		user.Phone = &normalized
	}

	if err := r.identities.Create(ctx, ident); err != nil {
		return nil, nil, err
	}
	if err := r.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}
	return user, ident, nil
}

// Resolve links the identity to every clinic patient record whose normalized
// contact matches the verified login contact. Email logins skip matching;
// only phone numbers are trusted as a cross-clinic join key.
func (r *Resolver) Resolve(ctx context.Context, ident *PatientIdentity, normalized string) error {
	if contact.IsEmail(normalized) {
		return nil
	}

	if ident.PrimaryPhone == nil || *ident.PrimaryPhone == "" {
		ident.PrimaryPhone = &normalized
		ident.UpdatedAt = r.now()
		if err := r.identities.Update(ctx, ident); err != nil {
			return err
		}
	}

	matches, err := r.patients.FindByNormalizedContact(ctx, normalized)
	if err != nil {
		return fmt.Errorf("matching clinic patients: %w", err)
	}
	if len(matches) == 0 {
		return nil
	}

	now := r.now()
	for _, m := range matches {
		link := &PatientLink{
			ID:              uuid.New(),
			IdentityID:      ident.ID,
			ClinicID:        m.ClinicID,
			ClinicPatientID: m.ID,
			VerifiedAt:      now,
		}
		if err := r.links.Upsert(ctx, link); err != nil {
			return err
		}
	}

	// Re-derived on every resolution so clinic-side name corrections
	// propagate; pickDisplayName is deterministic, so this never flaps.
	if name := pickDisplayName(matches); name != "" {
		if ident.DisplayName == nil || *ident.DisplayName != name {
			ident.DisplayName = &name
			ident.UpdatedAt = now
			if err := r.identities.Update(ctx, ident); err != nil {
				return err
			}
		}
	}
	return nil
}

// pickDisplayName chooses a deterministic name from the matched records: the
// first non-empty full name after ordering by (clinic id, patient id).
func pickDisplayName(matches []*clinic.Patient) string {
	sorted := make([]*clinic.Patient, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ClinicID != sorted[j].ClinicID {
			return sorted[i].ClinicID.String() < sorted[j].ClinicID.String()
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	for _, m := range sorted {
		if m.FullName != nil && *m.FullName != "" {
			return *m.FullName
		}
	}
	return ""
}
