package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeObjectNotFound, "objects not found: %s", "Cube")

	if err.Code != ErrCodeObjectNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeObjectNotFound)
	}

	if err.Message != "objects not found: Cube" {
		t.Errorf("Message = %v, want %v", err.Message, "objects not found: Cube")
	}

	expected := "OBJECT_NOT_FOUND: objects not found: Cube"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("bake primitive failed")
	err := Wrap(ErrCodeBakeFailed, cause, "bake albedo")

	if err.Code != ErrCodeBakeFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeBakeFailed)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
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
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeBakeFailed,
			expected: false,
		},
		{
			name:     "wrapped error outer code",
			err:      Wrap(ErrCodeBakeFailed, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeBakeFailed,
			expected: true,
		},
		{
			name:     "wrapped error inner code",
			err:      Wrap(ErrCodeBakeFailed, New(ErrCodeRestoreFailed, "inner"), "outer"),
			code:     ErrCodeRestoreFailed,
			expected: true,
		},
		{
			name: "joined errors",
			err: errors.Join(
				New(ErrCodeBakeFailed, "bake"),
				New(ErrCodeRestoreFailed, "restore"),
			),
			code:     ErrCodeRestoreFailed,
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

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeMissingMaterial, "test"),
			expected: ErrCodeMissingMaterial,
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
