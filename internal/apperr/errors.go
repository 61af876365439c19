// Package apperr defines the error taxonomy shared by the link services and
// the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is an application error identified by its code
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap attaches a cause to a copy of the sentinel
func (e *Error) Wrap(err error) *Error {
	return &Error{
		Kind:      e.Kind,
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Err:       err,
	}
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrInvalidURL        = newError(KindValidation, "INVALID_URL", "url must be an absolute http or https url")
	ErrInvalidAlias      = newError(KindValidation, "INVALID_ALIAS_FORMAT", "invalid alias format or length")
	ErrInvalidExpiration = newError(KindValidation, "INVALID_EXPIRATION", "expiration date must be in the future")
	ErrAlreadyExpired    = newError(KindValidation, "ALREADY_EXPIRED", "link has already expired")

	ErrAliasTaken         = newError(KindConflict, "ALIAS_TAKEN", "alias already taken")
	ErrCodeSpaceExhausted = newError(KindConflict, "CODE_SPACE_EXHAUSTED", "failed to generate unique short code")
	ErrDuplicateCode      = &Error{
		Kind:      KindConflict,
		Code:      "DUPLICATE_CODE",
		Message:   "short code was taken concurrently, retry the request",
		Retryable: true,
	}

	ErrNotFound = newError(KindNotFound, "NOT_FOUND", "link not found")
	ErrExpired  = newError(KindNotFound, "EXPIRED", "link has expired")

	ErrStoreUnavailable = &Error{
		Kind:      KindUnavailable,
		Code:      "STORE_UNAVAILABLE",
		Message:   "link store unavailable",
		Retryable: true,
	}
)

// KindOf returns the kind of the first *Error in the chain, or KindInternal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As returns the first *Error in the chain
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}
