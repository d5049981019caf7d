package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindConfig, "load", "failed to load config",
				errors.New("file not found")),
			contains: []string{"[config:load]", "failed to load config", "file not found"},
		},
		{
			name:     "error without cause",
			err:      New(KindValidation, "validate", "unsupported file type"),
			contains: []string{"[validation:validate]", "unsupported file type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(KindUpstream, "test", "wrapped", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Unwrap should return the original error")
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(KindTransport, "noop", "nothing failed", nil); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}
}

func TestWrapKeepsTypedError(t *testing.T) {
	inner := New(KindCache, "get", "miss")
	outer := Wrap(KindTransport, "fetch", "outer", inner)
	if outer.Kind != KindCache {
		t.Fatalf("Wrap re-typed error: got kind %s, want %s", outer.Kind, KindCache)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{
			name:     "typed error",
			err:      New(KindUpstream, "analyze", "call failed"),
			expected: KindUpstream,
		},
		{
			name:     "wrapped typed error",
			err:      Wrap(KindCache, "get", "lookup failed", errors.New("boom")),
			expected: KindCache,
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: KindUnknown,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.expected {
				t.Errorf("KindOf() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestIsKind(t *testing.T) {
	err := New(KindValidation, "validate", "too large")
	if !IsKind(err, KindValidation) {
		t.Error("expected validation kind match")
	}
	if IsKind(err, KindUpstream) {
		t.Error("unexpected upstream kind match")
	}
}
