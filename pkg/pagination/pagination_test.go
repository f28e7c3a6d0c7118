package pagination

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestClampLimit(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{1, 1},
		{20, 20},
		{50, 50},
		{51, MaxLimit},
		{1000, MaxLimit},
	}
	for _, tc := range cases {
		if got := ClampLimit(tc.in); got != tc.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	id := uuid.New()
	token := EncodeCursor(id)

	got, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if got != id {
		t.Errorf("round trip = %s, want %s", got, id)
	}
}

func TestDecodeCursor_Empty(t *testing.T) {
	id, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("empty cursor should not error, got %v", err)
	}
	if id != uuid.Nil {
		t.Errorf("empty cursor = %s, want nil uuid", id)
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, token := range []string{"not-base64!!!", "YWJj", "djE6bm90LWEtdXVpZA"} {
		if _, err := DecodeCursor(token); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("DecodeCursor(%q) err = %v, want ErrInvalidCursor", token, err)
		}
	}
}

func TestFromContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=7&cursor=abc", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	p := FromContext(c)
	if p.Limit != 7 {
		t.Errorf("Limit = %d, want 7", p.Limit)
	}
	if p.Cursor != "abc" {
		t.Errorf("Cursor = %q, want %q", p.Cursor, "abc")
	}
}

func TestFromContext_Defaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	p := FromContext(c)
	if p.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", p.Limit, DefaultLimit)
	}
	if p.Cursor != "" {
		t.Errorf("Cursor = %q, want empty", p.Cursor)
	}
}
