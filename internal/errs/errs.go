// Package errs contains sentinel errors shared by the storage, service and
// HTTP layers, and the rule error type that carries a user-facing message.
package errs

import (
	"errors"
	"fmt"
)

// Infrastructure and access sentinels.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., title or email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the actor may not touch the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates the caller has to slow down.
	ErrRateLimited = errors.New("rate limited")

	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
)

// Loan and availability rule violations.
var (
	ErrNoCopiesAvailable         = errors.New("no copies available")
	ErrDuplicateOpenLoan         = errors.New("duplicate open loan")
	ErrAlreadyReturned           = errors.New("loan already returned")
	ErrLoanStillOpen             = errors.New("loan still open")
	ErrAllCopiesAlreadyAvailable = errors.New("all copies already available")
	ErrDataInconsistency         = errors.New("data inconsistency")
)

// RuleError is an expected, recoverable failure. Error returns the sentence
// shown to the user; errors.Is matches Kind.
type RuleError struct {
	Kind    error
	Message string
}

func (e *RuleError) Error() string { return e.Message }

func (e *RuleError) Unwrap() error { return e.Kind }

// Rule builds a RuleError of the given kind with a formatted message.
func Rule(kind error, format string, args ...any) error {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Message returns the text that may be shown to a user for err.
// Non-rule errors are never exposed verbatim.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var re *RuleError
	if errors.As(err, &re) {
		return re.Message
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "Not found."
	case errors.Is(err, ErrUnauthorized):
		return "Please login or register first to get an account."
	case errors.Is(err, ErrRateLimited):
		return "Too many attempts, try again later."
	}
	return "Something went wrong, please try again."
}

// IsRule reports whether err is an expected business outcome.
func IsRule(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}
