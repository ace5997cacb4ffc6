package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateFilename validates a topology or form filename for safety.
// It ensures the filename is a simple basename without path components
// and carries one of the supported extensions.
func ValidateFilename(filename string, exts ...string) error {
	if filename == "" {
		return New(ErrCodeInvalidPath, "filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidPath, "filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidPath, "filename cannot be a hidden file")
	}

	if len(exts) == 0 {
		return nil
	}
	for _, ext := range exts {
		if strings.HasSuffix(strings.ToLower(filename), ext) {
			return nil
		}
	}
	return New(ErrCodeInvalidFormat, "unsupported file extension: %q (want one of %s)", filename, strings.Join(exts, ", "))
}

// ValidatePath validates a file path for safety.
// It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidateTolerance checks that a convergence tolerance is a finite positive number.
func ValidateTolerance(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return New(ErrCodeInvalidInput, "%s must be a finite positive number, got %v", name, v)
	}
	return nil
}

// ValidateIterations checks that an iteration cap is strictly positive.
func ValidateIterations(name string, n int) error {
	if n <= 0 {
		return New(ErrCodeInvalidInput, "%s must be greater than zero, got %d", name, n)
	}
	return nil
}
