package cyphr

import (
	"errors"
	"fmt"
)

// Error types represent different categories of errors

// ValidationError represents a configuration or parameter validation error
type ValidationError struct {
	Field   string // The field or parameter that failed validation
	Value   any    // The invalid value
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// EntropyError reports a failure to read the secure random source. It keeps
// the underlying read error and matches ErrEntropyUnavailable with errors.Is.
type EntropyError struct {
	Operation string // "generate key", "generate nonce", "generate salt"
	Err       error  // Underlying error from the random source
}

func (e *EntropyError) Error() string {
	return fmt.Sprintf("entropy error: %s: %v", e.Operation, e.Err)
}

func (e *EntropyError) Unwrap() error {
	return e.Err
}

func (e *EntropyError) Is(target error) bool {
	return target == ErrEntropyUnavailable
}

// EncryptionError represents an encryption or decryption failure
type EncryptionError struct {
	Operation string // "encrypt" or "decrypt"
	Path      string // File path, if applicable
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

func (e *EncryptionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error: %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Operation, e.Message)
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// IOError represents a file system I/O error
type IOError struct {
	Operation string // "read", "write", "open", "close", etc.
	Path      string // File path
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("io error: %s %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("io error: %s: %s", e.Operation, e.Message)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Common sentinel errors
var (
	// ErrEntropyUnavailable indicates the secure random source could not be
	// read. Fatal to the operation; retrying is the caller's decision.
	ErrEntropyUnavailable = errors.New("entropy unavailable - secure random source could not be read")

	// ErrStaleGeneration indicates a wrapped secret belongs to a retired
	// protection key generation. This is the expected failure after Refresh,
	// not a sign of corruption.
	ErrStaleGeneration = errors.New("stale generation - secret was wrapped under a retired protection key")

	// ErrAuthFailed indicates ciphertext failed integrity verification.
	ErrAuthFailed = errors.New("authentication failed - data may be corrupted or tampered")

	ErrInvalidKey        = errors.New("invalid encryption key")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrUnsupportedCipher = errors.New("unsupported cipher suite")
	ErrNoPrivateKey      = errors.New("key holds no private half - decryption not possible")
	ErrNilStore          = errors.New("session key store cannot be nil")
)

// Helper functions for creating structured errors

// NewValidationError creates a new validation error
func NewValidationError(field string, value any, message string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

func newEntropyError(operation string, err error) error {
	return &EntropyError{
		Operation: operation,
		Err:       err,
	}
}

// NewEncryptionError creates a new encryption error
func NewEncryptionError(operation, path string, err error) error {
	return &EncryptionError{
		Operation: operation,
		Path:      path,
		Message:   err.Error(),
		Err:       err,
	}
}

// NewIOError creates a new I/O error
func NewIOError(operation, path string, err error) error {
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   err.Error(),
		Err:       err,
	}
}

// Error checking helpers

// IsEntropyUnavailable checks if an error was caused by a failed read of the
// secure random source.
func IsEntropyUnavailable(err error) bool {
	return errors.Is(err, ErrEntropyUnavailable)
}

// IsStaleGeneration checks if an error indicates a secret wrapped under a
// retired protection key generation.
func IsStaleGeneration(err error) bool {
	return errors.Is(err, ErrStaleGeneration)
}

// IsAuthFailed checks if an error indicates failed integrity verification.
func IsAuthFailed(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsIOError checks if an error is an I/O error
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}
