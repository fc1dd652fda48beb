package session

import (
	"fmt"

	"github.com/go-playground/errors/v5"
)

// AuthError is a failed login: either the backend rejected the credentials
// (non-2xx) or the response carried no usable token. No session is created
// when Login returns an AuthError.
type AuthError struct {
	Reason string

	// StatusCode is the HTTP status of the rejection, or 0 when the response
	// was a 2xx that carried no token.
	StatusCode int

	err error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed (%d): %s", e.StatusCode, e.Reason)
	}

	return "authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.err
}

// IsAuthError reports whether err is (or wraps) an *AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError

	return errors.As(err, &authErr)
}
