// credentials/errors.go
package credentials

import (
	"errors"
	"fmt"
)

// ErrAuthentication matches every *AuthenticationError with errors.Is.
var ErrAuthentication = errors.New("fidelis authentication failed")

// AuthenticationError reports a failed call to the authenticate endpoint.
type AuthenticationError struct {
	URL string
	// StatusCode is zero when no response was received.
	StatusCode int
	Err        error
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication against %s failed with status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("authentication against %s failed: %v", e.URL, e.Err)
}

// Is reports whether target is ErrAuthentication.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// Unwrap returns the underlying cause.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}
