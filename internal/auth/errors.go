package apierr

import "errors"

var (
	// ErrTokenExpired is returned when a token is well-formed and correctly signed but past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned for any token that cannot be trusted: bad signature, wrong algorithm,
	// garbage payload or missing claims.
	ErrTokenMalformed = errors.New("invalid token")
	// ErrInvalidCredentials is returned when a user provides incorrect authentication credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when attempting to register an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned when a user record is not found in the database.
	ErrUserNotFound = errors.New("user not found")
	// ErrInactiveUser is returned when a user exists but its status is not active.
	ErrInactiveUser = errors.New("user is not active")
	// ErrInvalidRefreshToken is returned when a refresh token is invalid, expired or its owner is no longer active.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrForbidden is returned when the caller's role is not allowed to perform the operation.
	ErrForbidden = errors.New("access denied")
	// ErrNotFound is returned when a domain record (request, page, notification) does not exist
	// or is not visible to the caller.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness or state constraint.
	ErrConflict = errors.New("conflicting record")
)
