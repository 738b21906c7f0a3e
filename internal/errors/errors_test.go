package errors

import (
	"errors"
	"fmt"
	"testing"
)

// TestErrorFormatting verifies the code and message render in Error().
func TestErrorFormatting(t *testing.T) {
	err := New(CodeAuthInvalidToken, "token is not a valid API key")
	want := "auth.invalid_token: token is not a valid API key"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	cause := errors.New("dial tcp: connection refused")
	wrapped := Wrap(CodeStorageOpenFailed, "open database", cause)
	want = "storage.open_failed: open database (dial tcp: connection refused)"
	if wrapped.Error() != want {
		t.Errorf("expected %q, got %q", want, wrapped.Error())
	}
}

// TestUnwrap verifies errors.Is sees through the coded wrapper.
func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(CodeDeliveryFailed, "push failed", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should find the wrapped cause")
	}
}

// TestGetCode verifies code extraction, including through fmt.Errorf
// wrapping and the unknown fallback.
func TestGetCode(t *testing.T) {
	if got := GetCode(nil); got != "" {
		t.Errorf("nil error should have empty code, got %q", got)
	}

	coded := New(CodeDeliveryGone, "connection conn-1 is gone")
	if got := GetCode(coded); got != CodeDeliveryGone {
		t.Errorf("expected %s, got %s", CodeDeliveryGone, got)
	}

	layered := fmt.Errorf("dispatch: %w", coded)
	if got := GetCode(layered); got != CodeDeliveryGone {
		t.Errorf("expected %s through fmt wrapping, got %s", CodeDeliveryGone, got)
	}

	plain := errors.New("plain error")
	if got := GetCode(plain); got != CodeUnknown {
		t.Errorf("expected %s for plain error, got %s", CodeUnknown, got)
	}
}

// TestToCodeAndMessage verifies the HTTP-response extraction path.
func TestToCodeAndMessage(t *testing.T) {
	code, message := ToCodeAndMessage(MissingToken())
	if code != CodeAuthMissingToken {
		t.Errorf("expected %s, got %s", CodeAuthMissingToken, code)
	}
	if message != "no auth token supplied" {
		t.Errorf("unexpected message: %q", message)
	}

	code, message = ToCodeAndMessage(errors.New("something broke"))
	if code != CodeUnknown {
		t.Errorf("expected %s, got %s", CodeUnknown, code)
	}
	if message != "something broke" {
		t.Errorf("unexpected message: %q", message)
	}
}

// TestIsCode verifies code matching on nil, coded, and plain errors.
func TestIsCode(t *testing.T) {
	if IsCode(nil, CodeInternal) {
		t.Errorf("nil error matches no code")
	}
	if !IsCode(CommandNotAllowed("reboot"), CodeCommandNotAllowed) {
		t.Errorf("constructor error should match its code")
	}
	if IsCode(CommandNotAllowed("reboot"), CodeAuthInvalidToken) {
		t.Errorf("codes must not cross-match")
	}
}

// TestConstructors verifies the common constructors carry the right codes.
func TestConstructors(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{MissingToken(), CodeAuthMissingToken},
		{InvalidToken(), CodeAuthInvalidToken},
		{AuthBackendFault(errors.New("down")), CodeAuthBackendFault},
		{CommandNotAllowed("reboot"), CodeCommandNotAllowed},
		{DeliveryGone("conn-1"), CodeDeliveryGone},
		{Internal("boom", nil), CodeInternal},
	}
	for _, tc := range cases {
		if got := GetCode(tc.err); got != tc.code {
			t.Errorf("expected %s, got %s (%v)", tc.code, got, tc.err)
		}
	}
}
