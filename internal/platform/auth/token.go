// Package auth mints and verifies the patient session credential pair: a
// short-lived access token and a long-lived refresh token, both HMAC-SHA256
// signed JWTs bound to the portal user and their global patient identity.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "patient_access"
	TokenTypeRefresh = "patient_refresh"

	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 30 * 24 * time.Hour
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// PatientClaims are the claims carried by both session tokens. Subject is the
// portal user id; IdentityID is the global patient identity the login resolved
// to.
type PatientClaims struct {
	jwt.RegisteredClaims
	IdentityID string `json:"identity_id"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	TokenType  string `json:"token_type"`
}

// TokenPair is the credential pair minted at login.
type TokenPair struct {
	AccessToken   string
	RefreshToken  string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// Issuer signs and verifies patient session tokens.
type Issuer struct {
	key []byte
	now func() time.Time
}

func NewIssuer(signingKey []byte) *Issuer {
	return &Issuer{key: signingKey, now: time.Now}
}

// Issue mints the access/refresh pair for a verified login.
func (i *Issuer) Issue(userID, identityID uuid.UUID, phone, email string) (*TokenPair, error) {
	now := i.now()
	accessExp := now.Add(AccessTokenTTL)
	refreshExp := now.Add(RefreshTokenTTL)

	access, err := i.sign(userID, identityID, phone, email, TokenTypeAccess, now, accessExp)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := i.sign(userID, identityID, phone, email, TokenTypeRefresh, now, refreshExp)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:   access,
		RefreshToken:  refresh,
		AccessExpiry:  accessExp,
		RefreshExpiry: refreshExp,
	}, nil
}

func (i *Issuer) sign(userID, identityID uuid.UUID, phone, email, tokenType string, iat, exp time.Time) (string, error) {
	claims := &PatientClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		IdentityID: identityID.String(),
		Phone:      phone,
		Email:      email,
		TokenType:  tokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
}

// Verify parses a token, checks its signature and expiry, and requires the
// expected token type plus non-empty subject and identity fields.
func (i *Issuer) Verify(tokenStr, wantType string) (*PatientClaims, error) {
	claims := &PatientClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" || claims.IdentityID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserID parses the subject claim.
func (c *PatientClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Identity parses the identity claim.
func (c *PatientClaims) Identity() (uuid.UUID, error) {
	return uuid.Parse(c.IdentityID)
}
