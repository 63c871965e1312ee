package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent backup failures independent of any adapter.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Authentication Errors.

	// ErrBadCredentials indicates the API rejected the supplied credentials.
	// The backup falls back to anonymous access when it sees this.
	ErrBadCredentials = errors.New("bad credentials")

	// ErrImplicitTokenUnauthorized indicates a token was given as the login
	// argument but the resolved account is not authorized with it.
	ErrImplicitTokenUnauthorized = errors.New("implicit token did not authorize the account")

	// Rate Limit Errors.

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrRetriesExhausted indicates a throttled call failed on every attempt.
	ErrRetriesExhausted = errors.New("failed too many times")

	// Mirror Errors.

	// ErrPathClaimed indicates two entities resolved to the same local mirror
	// directory within one run.
	ErrPathClaimed = errors.New("local path already claimed in this run")
)

// IntegrityError reports a downloaded file whose size differs from the size
// announced by the API. It always aborts the run.
type IntegrityError struct {
	Path     string
	Expected int64
	Actual   int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: expected %d bytes, got %d", e.Path, e.Expected, e.Actual)
}

// IsIntegrity reports whether err is or wraps an IntegrityError.
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
