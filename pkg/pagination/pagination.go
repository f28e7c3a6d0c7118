// Package pagination provides cursor-based pagination helpers: page-size
// clamping and an opaque cursor codec. Cursors encode the last-seen row id of
// the previous page; clients must treat them as opaque tokens.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// ErrInvalidCursor is returned when a cursor token cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params holds cursor pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Cursor string // raw token as supplied by the client; empty means first page
}

// FromContext extracts pagination parameters from the echo context. The limit
// is clamped to [1, MaxLimit] and defaults to DefaultLimit.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return Params{
		Limit:  ClampLimit(limit),
		Cursor: c.QueryParam("cursor"),
	}
}

// ClampLimit normalizes a requested page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// EncodeCursor wraps a row id into an opaque token.
func EncodeCursor(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte("v1:" + id.String()))
}

// DecodeCursor unwraps an opaque token back into a row id. An empty token is
// not an error; it decodes to uuid.Nil, meaning "start from the beginning".
func DecodeCursor(token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return uuid.Nil, ErrInvalidCursor
	}
	const prefix = "v1:"
	s := string(raw)
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return uuid.Nil, ErrInvalidCursor
	}
	id, err := uuid.Parse(s[len(prefix):])
	if err != nil {
		return uuid.Nil, ErrInvalidCursor
	}
	return id, nil
}
