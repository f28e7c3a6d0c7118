package passcode

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/carelink/carelink/internal/domain/identity"
	"github.com/carelink/carelink/internal/platform/db"
	"github.com/carelink/carelink/pkg/contact"
)

// Service issues and verifies one-time passcodes. A successful verification
// runs the whole login side effect set (mark code used, get-or-create the
// portal user, refresh clinic links) as one transaction, so a crash mid-login
// never leaves a half-created account.
type Service struct {
	requests  Repository
	users     identity.UserRepository
	resolver  *identity.Resolver
	deliverer Deliverer
	runner    db.Runner

	// bypassCode, when non-empty, is accepted in place of any issued code.
	// Development and staging only; config validation rejects it in
	// production.
	bypassCode string

	logger zerolog.Logger
	now    func() time.Time
}

func NewService(requests Repository, users identity.UserRepository, resolver *identity.Resolver, deliverer Deliverer, runner db.Runner, bypassCode string, logger zerolog.Logger) *Service {
	return &Service{
		requests:   requests,
		users:      users,
		resolver:   resolver,
		deliverer:  deliverer,
		runner:     runner,
		bypassCode: bypassCode,
		logger:     logger,
		now:        time.Now,
	}
}

// StartInput describes one login attempt's first leg.
type StartInput struct {
	Contact  string
	IP       string
	DeviceID *string
}

// Start issues a passcode for the contact and hands it to the deliverer. The
// requester (device id when present, request IP otherwise) is limited to
// RateLimitMax codes per sliding RateLimitWindow.
func (s *Service) Start(ctx context.Context, in StartInput) error {
	if len(strings.TrimSpace(in.Contact)) < 3 {
		return ErrInvalidContact
	}
	normalized := contact.Normalize(in.Contact)
	if normalized == "" {
		return ErrInvalidContact
	}

	now := s.now()
	count, err := s.requests.CountRecent(ctx, normalized, in.DeviceID, in.IP, now.Add(-RateLimitWindow))
	if err != nil {
		return fmt.Errorf("checking rate limit: %w", err)
	}
	if count >= RateLimitMax {
		s.logger.Warn().
			Str("contact", normalized).
			Str("ip", in.IP).
			Msg("passcode request rate limited")
		return ErrRateLimited
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generating passcode: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing passcode: %w", err)
	}

	req := &Request{
		ID:        uuid.New(),
		Contact:   normalized,
		CodeHash:  string(hash),
		RequestIP: in.IP,
		DeviceID:  in.DeviceID,
		CreatedAt: now,
		ExpiresAt: now.Add(CodeTTL),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return fmt.Errorf("storing passcode request: %w", err)
	}

	if err := s.deliverer.Deliver(ctx, normalized, code); err != nil {
		return fmt.Errorf("delivering passcode: %w", err)
	}
	return nil
}

// Verify exchanges a correct, unexpired code for the logged-in portal user and
// identity. The configured bypass code, when set, is accepted unconditionally.
func (s *Service) Verify(ctx context.Context, rawContact, code string) (*identity.PortalUser, *identity.PatientIdentity, error) {
	normalized := contact.Normalize(rawContact)
	if normalized == "" {
		return nil, nil, ErrInvalidContact
	}

	now := s.now()
	var req *Request
	if s.bypassCode == "" || code != s.bypassCode {
		var err error
		req, err = s.requests.LatestPending(ctx, normalized)
		if err != nil {
			return nil, nil, fmt.Errorf("loading pending passcode: %w", err)
		}
		if req == nil {
			return nil, nil, ErrNoPendingCode
		}
		if now.After(req.ExpiresAt) {
			return nil, nil, ErrCodeExpired
		}
		if bcrypt.CompareHashAndPassword([]byte(req.CodeHash), []byte(code)) != nil {
			if err := s.requests.IncrementAttempts(ctx, req.ID); err != nil {
				s.logger.Error().Err(err).Str("request_id", req.ID.String()).Msg("failed to record passcode attempt")
			}
			return nil, nil, ErrInvalidCode
		}
	}

	var user *identity.PortalUser
	var ident *identity.PatientIdentity
	err := s.runner.InTx(ctx, func(txCtx context.Context) error {
		if req != nil {
			if err := s.requests.MarkVerified(txCtx, req.ID, now); err != nil {
				return err
			}
		}
		var err error
		user, ident, err = s.resolver.GetOrCreateUser(txCtx, normalized)
		if err != nil {
			return err
		}
		if err := s.resolver.Resolve(txCtx, ident, normalized); err != nil {
			return err
		}
		return s.users.TouchLastLogin(txCtx, user.ID, now)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("finalizing login: %w", err)
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("identity_id", ident.ID.String()).
		Msg("passcode verified, session established")
	return user, ident, nil
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}
