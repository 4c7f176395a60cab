package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestDecodeJSONStrict(t *testing.T) {
	t.Parallel()

	type req struct {
		Message string `json:"message"`
	}
	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"message":"2 ceviches"}`, false},
		{"trailing whitespace", "{\"message\":\"hola\"}\n  ", false},
		{"unknown field", `{"message":"hola","x":1}`, true},
		{"trailing value", `{"message":"hola"}{"message":"otra"}`, true},
		{"trailing brace", `{"message":"hola"}}`, true},
		{"empty", ``, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var v req
			err := DecodeJSONStrict(strings.NewReader(tc.body), &v)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestCustomErrorMatching(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("handler: %w", ErrSessionNotFound.Wrap(errors.New("redis: nil")))
	if !errors.Is(wrapped, ErrSessionNotFound) {
		t.Fatal("wrapped error should match by code")
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Fatal("different codes must not match")
	}
	if ce := AsCustomError(wrapped); ce.Status != http.StatusNotFound {
		t.Fatalf("status = %d", ce.Status)
	}
	if ce := AsCustomError(NewValidationError("bad")); ce.Code != ErrCodeInvalidRequest {
		t.Fatalf("validation error code = %s", ce.Code)
	}
	if ce := AsCustomError(errors.New("boom")); ce.Code != ErrCodeInternalError {
		t.Fatalf("plain error code = %s", ce.Code)
	}
}

func TestUUIDHelpers(t *testing.T) {
	t.Parallel()

	id := GenerateUUID()
	if !IsValidUUID(id) || IsValidUUID("abc") {
		t.Fatal("unexpected UUID validation")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("ceviche", 20); got != "ceviche" {
		t.Fatalf("short = %q", got)
	}
	if got := Truncate("ceviche de pescado", 7); !strings.HasPrefix(got, "ceviche") || len(got) >= len("ceviche de pescado") {
		t.Fatalf("long = %q", got)
	}
}
