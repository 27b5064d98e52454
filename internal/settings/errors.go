package settings

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to tell them apart.
var (
	ErrDuplicateKey = errors.New("already exists")
	ErrNotFound     = errors.New("not found")
	ErrInvalidValue = errors.New("invalid value")
)

// ValidationError reports a value rejected for a setting. It matches ErrInvalidValue.
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid value for setting %s", e.Key)
	}
	return fmt.Sprintf("invalid value for setting %s: %s", e.Key, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidValue) match
func (e *ValidationError) Unwrap() error {
	return ErrInvalidValue
}

// IsDuplicateKey reports whether err is a duplicate identifier error
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsNotFound reports whether err is a missing identifier error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidValue reports whether err is a rejected value error
func IsInvalidValue(err error) bool {
	return errors.Is(err, ErrInvalidValue)
}
