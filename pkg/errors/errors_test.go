package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidCoordinate, "bad coordinate: %s", "value")

	if err.Code != ErrCodeInvalidCoordinate {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidCoordinate)
	}

	if err.Message != "bad coordinate: value" {
		t.Errorf("Message = %v, want %v", err.Message, "bad coordinate: value")
	}

	expected := "INVALID_COORDINATE: bad coordinate: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeNetwork, cause, "failed to fetch")

	if err.Code != ErrCodeNetwork {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNetwork)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeArtifactNotFound, "test"),
			code:     ErrCodeArtifactNotFound,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeNetwork,
			expected: false,
		},
		{
			name:     "outer code decides",
			err:      Wrap(ErrCodeResolve, New(ErrCodeArtifactNotFound, "inner"), "outer"),
			code:     ErrCodeResolve,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("context: %w", New(ErrCodeInvariant, "inner")),
			code:     ErrCodeInvariant,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHas(t *testing.T) {
	err := Wrap(ErrCodeResolve, fmt.Errorf("fetch: %w", New(ErrCodeArtifactNotFound, "missing")), "resolve g:a:1")

	if !Has(err, ErrCodeResolve) {
		t.Error("Has(outer) = false, want true")
	}
	if !Has(err, ErrCodeArtifactNotFound) {
		t.Error("Has(inner) = false, want true")
	}
	if Has(err, ErrCodeNetwork) {
		t.Error("Has(absent) = true, want false")
	}
	if Has(nil, ErrCodeResolve) {
		t.Error("Has(nil) = true, want false")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidMetadata, "test"),
			expected: ErrCodeInvalidMetadata,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "nested Error",
			err:      Wrap(ErrCodeResolve, New(ErrCodeArtifactNotFound, "g:a:1 not found"), "resolve failed"),
			expected: "resolve failed: g:a:1 not found",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidCoordinate,
		ErrCodeInvalidMetadata,
		ErrCodeInvalidConfig,
		ErrCodeInvalidFormat,
		ErrCodeInvalidGraph,
		ErrCodeInvalidPath,
		ErrCodeNotFound,
		ErrCodeArtifactNotFound,
		ErrCodeFileNotFound,
		ErrCodeNetwork,
		ErrCodeTimeout,
		ErrCodeResolve,
		ErrCodeNodeLimit,
		ErrCodeInvariant,
		ErrCodeCancelled,
		ErrCodeUnresolved,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain error", fmt.Errorf("boom"), ExitFailure},
		{"bad coordinate", New(ErrCodeInvalidCoordinate, "bad"), ExitUsage},
		{"missing artifact", New(ErrCodeArtifactNotFound, "missing"), ExitNotFound},
		{"network", Wrap(ErrCodeNetwork, fmt.Errorf("reset"), "GET"), ExitNetwork},
		{"invariant", New(ErrCodeInvariant, "cycle"), ExitResolve},
		{"outermost decides", Wrap(ErrCodeInternal, New(ErrCodeNetwork, "x"), "y"), ExitFailure},
		{"wrapped with %w", fmt.Errorf("resolve: %w", New(ErrCodeFileNotFound, "x")), ExitNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}
