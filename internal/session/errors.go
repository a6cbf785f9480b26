// AngelaMos | 2026
// errors.go

package session

import (
	"errors"
	"fmt"
)

// StatusUnreachable marks an AuthError caused by the transport rather than
// by the server rejecting the credentials.
const StatusUnreachable = 0

const defaultLoginFailure = "Login failed"

// AuthError is returned by Login for credential rejection or transport failure.
type AuthError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode == StatusUnreachable {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Unreachable() bool {
	return e.StatusCode == StatusUnreachable
}

// ValidationError reports credentials rejected before any request was sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrStorageCorrupt marks a persisted session that cannot be decoded. Restore
// absorbs it; it never reaches callers.
var ErrStorageCorrupt = errors.New("persisted session corrupt")

func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	ok := errors.As(err, &authErr)
	return authErr, ok
}
