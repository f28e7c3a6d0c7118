package passcode

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/clinic"
	"github.com/carelink/carelink/internal/domain/identity"
	"github.com/carelink/carelink/internal/platform/db"
)

type memRequestRepo struct {
	requests []*Request
}

func (m *memRequestRepo) Create(_ context.Context, req *Request) error {
	cp := *req
	m.requests = append(m.requests, &cp)
	return nil
}

func (m *memRequestRepo) LatestPending(_ context.Context, contact string) (*Request, error) {
	var pending []*Request
	for _, r := range m.requests {
		if r.Contact == contact && r.VerifiedAt == nil {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.After(pending[j].CreatedAt) })
	cp := *pending[0]
	return &cp, nil
}

func (m *memRequestRepo) CountRecent(_ context.Context, contact string, deviceID *string, ip string, since time.Time) (int, error) {
	count := 0
	for _, r := range m.requests {
		if r.Contact != contact || r.CreatedAt.Before(since) {
			continue
		}
		if deviceID != nil && *deviceID != "" {
			if r.DeviceID != nil && *r.DeviceID == *deviceID {
				count++
			}
		} else if r.RequestIP == ip {
			count++
		}
	}
	return count, nil
}

func (m *memRequestRepo) IncrementAttempts(_ context.Context, id uuid.UUID) error {
	for _, r := range m.requests {
		if r.ID == id {
			r.Attempts++
		}
	}
	return nil
}

func (m *memRequestRepo) MarkVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	for _, r := range m.requests {
		if r.ID == id {
			t := at
			r.VerifiedAt = &t
		}
	}
	return nil
}

type memIdentityRepo struct {
	identities map[uuid.UUID]*identity.PatientIdentity
}

func (m *memIdentityRepo) Create(_ context.Context, ident *identity.PatientIdentity) error {
	cp := *ident
	m.identities[ident.ID] = &cp
	return nil
}

func (m *memIdentityRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.PatientIdentity, error) {
	ident, ok := m.identities[id]
	if !ok {
		return nil, identity.ErrIdentityNotFound
	}
	cp := *ident
	return &cp, nil
}

func (m *memIdentityRepo) Update(_ context.Context, ident *identity.PatientIdentity) error {
	cp := *ident
	m.identities[ident.ID] = &cp
	return nil
}

type memUserRepo struct {
	users map[uuid.UUID]*identity.PortalUser
}

func (m *memUserRepo) Create(_ context.Context, user *identity.PortalUser) error {
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.PortalUser, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *memUserRepo) GetByPhone(_ context.Context, phone string) (*identity.PortalUser, error) {
	for _, u := range m.users {
		if u.Phone != nil && *u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*identity.PortalUser, error) {
	for _, u := range m.users {
		if u.Email != nil && *u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *memUserRepo) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if u, ok := m.users[id]; ok {
		t := at
		u.LastLoginAt = &t
	}
	return nil
}

type memLinkRepo struct {
	links map[string]*identity.PatientLink
}

func (m *memLinkRepo) Upsert(_ context.Context, link *identity.PatientLink) error {
	key := link.ClinicID.String() + "/" + link.ClinicPatientID.String()
	cp := *link
	m.links[key] = &cp
	return nil
}

func (m *memLinkRepo) ListByIdentity(_ context.Context, identityID uuid.UUID) ([]*identity.PatientLink, error) {
	var out []*identity.PatientLink
	for _, l := range m.links {
		if l.IdentityID == identityID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakePatientRepo struct {
	patients []*clinic.Patient
}

func (f *fakePatientRepo) FindByNormalizedContact(_ context.Context, normalized string) ([]*clinic.Patient, error) {
	var out []*clinic.Patient
	for _, p := range f.patients {
		if p.ContactNormalized != nil && *p.ContactNormalized == normalized {
			out = append(out, p)
		}
	}
	return out, nil
}

type captureDeliverer struct {
	contacts []string
	codes    []string
}

func (d *captureDeliverer) Deliver(_ context.Context, contact, code string) error {
	d.contacts = append(d.contacts, contact)
	d.codes = append(d.codes, code)
	return nil
}

var passthroughRunner = db.RunnerFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})

type fixture struct {
	svc       *Service
	requests  *memRequestRepo
	users     *memUserRepo
	links     *memLinkRepo
	deliverer *captureDeliverer
	clock     *fakeClock
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFixture(bypass string, patients []*clinic.Patient) *fixture {
	requests := &memRequestRepo{}
	users := &memUserRepo{users: make(map[uuid.UUID]*identity.PortalUser)}
	idents := &memIdentityRepo{identities: make(map[uuid.UUID]*identity.PatientIdentity)}
	links := &memLinkRepo{links: make(map[string]*identity.PatientLink)}
	deliverer := &captureDeliverer{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}

	resolver := identity.NewResolver(idents, users, links, &fakePatientRepo{patients: patients})
	svc := NewService(requests, users, resolver, deliverer, passthroughRunner, bypass, zerolog.Nop())
	svc.now = clock.Now

	return &fixture{svc: svc, requests: requests, users: users, links: links, deliverer: deliverer, clock: clock}
}

func TestStart_InvalidContact(t *testing.T) {
	f := newFixture("", nil)
	err := f.svc.Start(context.Background(), StartInput{Contact: "   ", IP: "10.0.0.1"})
	if !errors.Is(err, ErrInvalidContact) {
		t.Errorf("err = %v, want ErrInvalidContact", err)
	}
}

func TestStart_IssuesAndDelivers(t *testing.T) {
	f := newFixture("", nil)
	err := f.svc.Start(context.Background(), StartInput{Contact: " Ana@Example.COM ", IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(f.deliverer.codes) != 1 {
		t.Fatalf("delivered %d codes, want 1", len(f.deliverer.codes))
	}
	if f.deliverer.contacts[0] != "ana@example.com" {
		t.Errorf("delivered to %q, want normalized contact", f.deliverer.contacts[0])
	}
	if len(f.deliverer.codes[0]) != CodeLength {
		t.Errorf("code length = %d, want %d", len(f.deliverer.codes[0]), CodeLength)
	}
	if len(f.requests.requests) != 1 {
		t.Fatalf("stored %d requests, want 1", len(f.requests.requests))
	}
	if f.requests.requests[0].CodeHash == f.deliverer.codes[0] {
		t.Error("code must be stored hashed, not in plaintext")
	}
}

func TestStart_RateLimitsSixthRequest(t *testing.T) {
	f := newFixture("", nil)
	ctx := context.Background()
	in := StartInput{Contact: "+1 555 123 4567", IP: "10.0.0.1"}

	for i := 0; i < RateLimitMax; i++ {
		if err := f.svc.Start(ctx, in); err != nil {
			t.Fatalf("request #%d: %v", i+1, err)
		}
	}
	if err := f.svc.Start(ctx, in); !errors.Is(err, ErrRateLimited) {
		t.Errorf("request #%d err = %v, want ErrRateLimited", RateLimitMax+1, err)
	}
}

func TestStart_RateLimitWindowSlides(t *testing.T) {
	f := newFixture("", nil)
	ctx := context.Background()
	in := StartInput{Contact: "+15551234567", IP: "10.0.0.1"}

	for i := 0; i < RateLimitMax; i++ {
		if err := f.svc.Start(ctx, in); err != nil {
			t.Fatalf("request #%d: %v", i+1, err)
		}
	}
	f.clock.Advance(RateLimitWindow + time.Minute)
	if err := f.svc.Start(ctx, in); err != nil {
		t.Errorf("request after window rollover: %v", err)
	}
}

func TestStart_DeviceIDScopesLimit(t *testing.T) {
	f := newFixture("", nil)
	ctx := context.Background()
	deviceA, deviceB := "device-a", "device-b"

	for i := 0; i < RateLimitMax; i++ {
		if err := f.svc.Start(ctx, StartInput{Contact: "+15551234567", IP: "10.0.0.1", DeviceID: &deviceA}); err != nil {
			t.Fatalf("device A request #%d: %v", i+1, err)
		}
	}
	if err := f.svc.Start(ctx, StartInput{Contact: "+15551234567", IP: "10.0.0.1", DeviceID: &deviceB}); err != nil {
		t.Errorf("device B should have its own budget, got %v", err)
	}
}

func TestVerify_NoPendingCode(t *testing.T) {
	f := newFixture("", nil)
	_, _, err := f.svc.Verify(context.Background(), "+15551234567", "123456")
	if !errors.Is(err, ErrNoPendingCode) {
		t.Errorf("err = %v, want ErrNoPendingCode", err)
	}
}

func TestVerify_WrongCode(t *testing.T) {
	f := newFixture("", nil)
	ctx := context.Background()

	if err := f.svc.Start(ctx, StartInput{Contact: "+15551234567", IP: "10.0.0.1"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	wrong := "000000"
	if wrong == f.deliverer.codes[0] {
		wrong = "000001"
	}
	_, _, err := f.svc.Verify(ctx, "+15551234567", wrong)
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode", err)
	}
	if f.requests.requests[0].Attempts != 1 {
		t.Errorf("attempts = %d, want 1", f.requests.requests[0].Attempts)
	}
}

func TestVerify_ExpiryBeatsCorrectCode(t *testing.T) {
	f := newFixture("", nil)
	ctx := context.Background()

	if err := f.svc.Start(ctx, StartInput{Contact: "+15551234567", IP: "10.0.0.1"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.clock.Advance(CodeTTL + time.Second)

	_, _, err := f.svc.Verify(ctx, "+15551234567", f.deliverer.codes[0])
	if !errors.Is(err, ErrCodeExpired) {
		t.Errorf("err = %v, want ErrCodeExpired even with the correct code", err)
	}
}

func TestVerify_Success(t *testing.T) {
	clinicID := uuid.New()
	name := "Ana Silva"
	contactKey := "+15551234567"
	patient := &clinic.Patient{ID: uuid.New(), ClinicID: clinicID, FullName: &name, ContactNormalized: &contactKey}

	f := newFixture("", []*clinic.Patient{patient})
	ctx := context.Background()

	if err := f.svc.Start(ctx, StartInput{Contact: "+1 (555) 123-4567", IP: "10.0.0.1"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	user, ident, err := f.svc.Verify(ctx, "+1 (555) 123-4567", f.deliverer.codes[0])
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if user.IdentityID != ident.ID {
		t.Errorf("user.IdentityID = %s, want %s", user.IdentityID, ident.ID)
	}
	if f.requests.requests[0].VerifiedAt == nil {
		t.Error("request should be marked verified")
	}

	stored, _ := f.users.GetByID(ctx, user.ID)
	if stored.LastLoginAt == nil {
		t.Error("last login should be stamped")
	}
	links, _ := f.links.ListByIdentity(ctx, ident.ID)
	if len(links) != 1 {
		t.Errorf("resolver linked %d records, want 1", len(links))
	}
}

func TestVerify_SecondLoginSameUser(t *testing.T) {
	f := newFixture("", nil)
	ctx := context.Background()

	if err := f.svc.Start(ctx, StartInput{Contact: "+15551234567", IP: "10.0.0.1"}); err != nil {
		t.Fatalf("Start #1: %v", err)
	}
	first, _, err := f.svc.Verify(ctx, "+15551234567", f.deliverer.codes[0])
	if err != nil {
		t.Fatalf("Verify #1: %v", err)
	}

	if err := f.svc.Start(ctx, StartInput{Contact: "+15551234567", IP: "10.0.0.1"}); err != nil {
		t.Fatalf("Start #2: %v", err)
	}
	second, _, err := f.svc.Verify(ctx, "+15551234567", f.deliverer.codes[1])
	if err != nil {
		t.Fatalf("Verify #2: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second login created a new user: %s != %s", second.ID, first.ID)
	}
}

type failingUserRepo struct {
	*memUserRepo
}

func (f *failingUserRepo) TouchLastLogin(context.Context, uuid.UUID, time.Time) error {
	return errors.New("connection reset by peer")
}

// snapshotRunner gives the in-memory fakes transaction semantics: any state
// mutated inside a failed unit of work is restored.
type snapshotRunner struct {
	requests *memRequestRepo
	users    *memUserRepo
	idents   *memIdentityRepo
	links    *memLinkRepo
}

func (r *snapshotRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	requests := make([]*Request, len(r.requests.requests))
	for i, req := range r.requests.requests {
		cp := *req
		requests[i] = &cp
	}
	users := make(map[uuid.UUID]*identity.PortalUser, len(r.users.users))
	for k, v := range r.users.users {
		cp := *v
		users[k] = &cp
	}
	idents := make(map[uuid.UUID]*identity.PatientIdentity, len(r.idents.identities))
	for k, v := range r.idents.identities {
		cp := *v
		idents[k] = &cp
	}
	links := make(map[string]*identity.PatientLink, len(r.links.links))
	for k, v := range r.links.links {
		cp := *v
		links[k] = &cp
	}

	if err := fn(ctx); err != nil {
		r.requests.requests = requests
		r.users.users = users
		r.idents.identities = idents
		r.links.links = links
		return err
	}
	return nil
}

func TestVerify_FailureInsideLoginUnitRollsBack(t *testing.T) {
	requests := &memRequestRepo{}
	users := &memUserRepo{users: make(map[uuid.UUID]*identity.PortalUser)}
	idents := &memIdentityRepo{identities: make(map[uuid.UUID]*identity.PatientIdentity)}
	links := &memLinkRepo{links: make(map[string]*identity.PatientLink)}
	deliverer := &captureDeliverer{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}

	resolver := identity.NewResolver(idents, users, links, &fakePatientRepo{})
	runner := &snapshotRunner{requests: requests, users: users, idents: idents, links: links}
	svc := NewService(requests, &failingUserRepo{users}, resolver, deliverer, runner, "", zerolog.Nop())
	svc.now = clock.Now
	ctx := context.Background()

	if err := svc.Start(ctx, StartInput{Contact: "+15551234567", IP: "10.0.0.1"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, _, err := svc.Verify(ctx, "+15551234567", deliverer.codes[0])
	if err == nil {
		t.Fatal("expected Verify to fail when the login unit fails")
	}
	for _, sentinel := range []error{ErrInvalidContact, ErrRateLimited, ErrNoPendingCode, ErrCodeExpired, ErrInvalidCode} {
		if errors.Is(err, sentinel) {
			t.Fatalf("err = %v, want a generic internal error, not a login sentinel", err)
		}
	}

	if len(users.users) != 0 {
		t.Errorf("rolled-back login left %d users behind", len(users.users))
	}
	if len(idents.identities) != 0 {
		t.Errorf("rolled-back login left %d identities behind", len(idents.identities))
	}
	if len(links.links) != 0 {
		t.Errorf("rolled-back login left %d links behind", len(links.links))
	}
	if requests.requests[0].VerifiedAt != nil {
		t.Error("request must not stay marked verified after rollback")
	}
}

func TestVerify_BypassCode(t *testing.T) {
	f := newFixture("424242", nil)

	user, _, err := f.svc.Verify(context.Background(), "+15551234567", "424242")
	if err != nil {
		t.Fatalf("Verify with bypass: %v", err)
	}
	if user == nil {
		t.Fatal("expected a logged-in user")
	}
}

func TestVerify_BypassDisabledWhenUnset(t *testing.T) {
	f := newFixture("", nil)

	_, _, err := f.svc.Verify(context.Background(), "+15551234567", "424242")
	if !errors.Is(err, ErrNoPendingCode) {
		t.Errorf("err = %v, want ErrNoPendingCode", err)
	}
}
