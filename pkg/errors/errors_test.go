package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidConfig, "bad value: %d", 42)

	if err.Code != ErrCodeInvalidConfig {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeInvalidConfig)
	}
	if err.Message != "bad value: 42" {
		t.Errorf("Message = %q, want %q", err.Message, "bad value: 42")
	}
	if err.Cause != nil {
		t.Errorf("Cause = %v, want nil", err.Cause)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeNetwork, cause, "failed to fetch %s", "https://registry.npmjs.org")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the cause")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"matching code", New(ErrCodeNotMCP, "filtered"), ErrCodeNotMCP, true},
		{"different code", New(ErrCodeNotMCP, "filtered"), ErrCodeNetwork, false},
		{"wrapped in fmt", fmt.Errorf("outer: %w", New(ErrCodeTimeout, "slow")), ErrCodeTimeout, true},
		{"plain error", stderrors.New("plain"), ErrCodeInternal, false},
		{"nil-adjacent", fmt.Errorf("no code"), ErrCodeNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeRegistryNotFound, "gone")); got != ErrCodeRegistryNotFound {
		t.Errorf("GetCode = %q, want %q", got, ErrCodeRegistryNotFound)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := Wrap(ErrCodeInstallFailed, stderrors.New("exit 1"), "npm install failed")
	if got := UserMessage(err); got != "npm install failed" {
		t.Errorf("UserMessage = %q, want %q", got, "npm install failed")
	}
	plain := stderrors.New("plain failure")
	if got := UserMessage(plain); got != "plain failure" {
		t.Errorf("UserMessage = %q, want %q", got, "plain failure")
	}
}

func TestRateLimitedError(t *testing.T) {
	err := &RateLimitedError{RetryAfter: 30}
	if err.Error() != "rate limited: retry after 30 seconds" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Code() != ErrCodeRateLimited {
		t.Errorf("Code() = %q, want %q", err.Code(), ErrCodeRateLimited)
	}

	none := &RateLimitedError{}
	if none.Error() != "rate limited" {
		t.Errorf("Error() = %q, want %q", none.Error(), "rate limited")
	}
}
