package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, Internal},
		{"coded", New(ElementNotFound, "no such element"), ElementNotFound},
		{"wrapped coded", fmt.Errorf("step 3: %w", New(Timeout, "gave up")), Timeout},
		{"plain", errors.New("boom"), Internal},
		{"empty code", &Error{Message: "no code"}, Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessageOf_HidesUntypedErrors(t *testing.T) {
	raw := errors.New("dial tcp 127.0.0.1:9222: connection refused")
	if got := MessageOf(raw); got != "internal error" {
		t.Errorf("MessageOf(raw) = %q, want %q", got, "internal error")
	}

	coded := New(Navigation, "expected /register, still on /login")
	if got := MessageOf(coded); got != "expected /register, still on /login" {
		t.Errorf("MessageOf(coded) = %q", got)
	}
}

func TestError_SelectorAndElapsedInMessage(t *testing.T) {
	err := Expired(Timeout, "text=Hello, alice", 5*time.Second, nil)
	msg := err.Error()
	if !strings.Contains(msg, "text=Hello, alice") {
		t.Errorf("message should name the predicate, got %q", msg)
	}
	if !strings.Contains(msg, "5s") {
		t.Errorf("message should carry the elapsed wait, got %q", msg)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("locator resolution failed")
	err := Wrap(ElementNotFound, "no match for #username", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{InvalidConfig, 2},
		{Launch, 2},
		{Timeout, 1},
		{ElementNotFound, 1},
		{ValidationMismatch, 1},
		{Internal, 1},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.code); got != tt.want {
			t.Errorf("ExitCode(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
