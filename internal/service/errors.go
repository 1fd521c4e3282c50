package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/nanotrace/certification-backend/internal/repository"
)

// Error kinds. Every error returned by this package that a caller can act on
// wraps exactly one of these; classify with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrAuthentication    = errors.New("authentication failed")
	ErrAuthorization     = errors.New("not authorized")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrAuthentication)
	ErrStorageDisabled    = errors.New("safety data sheet storage is disabled")
)

// ThrottledError is returned by Authenticate while the login abuse guard holds
// a cooldown for the email or client address.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many failed login attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *ThrottledError) Unwrap() error { return ErrAuthentication }

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// mapRepositoryError converts repository sentinels to error kinds. Anything
// else is a persistence failure and passes through untouched.
func mapRepositoryError(err error, subject string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, subject)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %s already exists", ErrConflict, subject)
	case errors.Is(err, repository.ErrNotPending):
		return fmt.Errorf("%w: %s is no longer pending", ErrInvalidTransition, subject)
	default:
		return err
	}
}

// outcomeOf labels an error for metrics.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "bad_request"
	case errors.Is(err, ErrAuthentication):
		return "unauthenticated"
	case errors.Is(err, ErrAuthorization):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
