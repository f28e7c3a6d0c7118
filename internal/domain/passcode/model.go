// Package passcode implements the one-time-passcode login flow: issuing
// short-lived codes to a verified contact and exchanging a correct code for a
// portal session.
package passcode

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// CodeTTL is how long an issued passcode stays valid.
	CodeTTL = 5 * time.Minute
	// RateLimitWindow and RateLimitMax bound how many codes one requester may
	// ask for: the sixth request inside a sliding hour is rejected.
	RateLimitWindow = time.Hour
	RateLimitMax    = 5
	// CodeLength is the number of digits in an issued code.
	CodeLength = 6
)

var (
	ErrInvalidContact = errors.New("contact is not a usable email or phone number")
	ErrRateLimited    = errors.New("too many passcode requests")
	ErrNoPendingCode  = errors.New("no pending passcode for contact")
	ErrCodeExpired    = errors.New("passcode has expired")
	ErrInvalidCode    = errors.New("passcode does not match")
)

// Request is one issued passcode. Only the bcrypt hash of the code is stored;
// the plaintext exists solely in the delivery message.
type Request struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Contact    string     `db:"contact" json:"contact"`
	CodeHash   string     `db:"code_hash" json:"-"`
	RequestIP  string     `db:"request_ip" json:"request_ip"`
	DeviceID   *string    `db:"device_id" json:"device_id,omitempty"`
	Attempts   int        `db:"attempts" json:"attempts"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	VerifiedAt *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}
