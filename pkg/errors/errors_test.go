package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeTopology, "no supports in %s", "bridge")

	if err.Code != ErrCodeTopology {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeTopology)
	}

	if err.Message != "no supports in bridge" {
		t.Errorf("Message = %v, want %v", err.Message, "no supports in bridge")
	}

	expected := "TOPOLOGY: no supports in bridge"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeNetwork, cause, "failed to reach proxy")

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
			err:      New(ErrCodeParameter, "test"),
			code:     ErrCodeParameter,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeParameter, "test"),
			code:     ErrCodeNetwork,
			expected: false,
		},
		{
			name:     "outer code only",
			err:      Wrap(ErrCodeOptimization, New(ErrCodeParameter, "inner"), "outer"),
			code:     ErrCodeParameter,
			expected: false,
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
	inner := New(ErrCodeParameter, "force parameter on trail edge 3")
	err := Wrap(ErrCodeOptimization, inner, "setup")

	if !Has(err, ErrCodeOptimization) {
		t.Error("Has(err, OPTIMIZATION) = false, want true")
	}
	if !Has(err, ErrCodeParameter) {
		t.Error("Has(err, PARAMETER) = false, want true")
	}
	if Has(err, ErrCodeTopology) {
		t.Error("Has(err, TOPOLOGY) = true, want false")
	}
	if Has(nil, ErrCodeParameter) {
		t.Error("Has(nil) = true, want false")
	}
	if Has(errors.New("plain"), ErrCodeParameter) {
		t.Error("Has(plain) = true, want false")
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
			err:      New(ErrCodeTopology, "test"),
			expected: ErrCodeTopology,
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
