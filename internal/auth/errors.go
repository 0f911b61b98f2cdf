package auth

import "errors"

var (
	// ErrNotFound is returned when a login identifier matches no account.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when a password check fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned when a request carries no usable credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenReused flags a refresh token that no longer matches the stored
	// slot for its user. It unwraps to ErrUnauthorized so callers that only
	// distinguish authorized/unauthorized keep working.
	ErrTokenReused = &reuseError{}
)

type reuseError struct{}

func (*reuseError) Error() string { return "refresh token reused or superseded" }

func (*reuseError) Unwrap() error { return ErrUnauthorized }
