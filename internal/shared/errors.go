package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned for an unknown login or a wrong
	// password; callers never learn which.
	ErrInvalidCredentials = errors.New("invalid login or password")
	// ErrCSRFTokenMissing occurs when the session has no CSRF token yet.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when the submitted token differs from the session's.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
