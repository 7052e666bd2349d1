package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorKind returns the machine-readable taxonomy tag for an error. Upstream
// provider failures map to "upstream", malformed requests to "validation".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrInvalidInput):
		return "validation"
	case IsKind(err, ErrDocumentNotFound):
		return "not_found"
	case IsKind(err, ErrUnauthorized):
		return "unauthorized"
	case IsKind(err, ErrTemporary):
		return "upstream"
	default:
		return "internal"
	}
}
