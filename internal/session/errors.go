package session

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountExists is returned when signing up with a registered email
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is returned by account stores for unknown emails
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidToken is returned for malformed, unsigned or expired tokens
	ErrInvalidToken = errors.New("invalid session token")
	// ErrSessionRevoked is returned for tokens whose session was signed out
	ErrSessionRevoked = errors.New("session revoked")
	// ErrWeakPassword is returned for passwords shorter than MinPasswordLength
	ErrWeakPassword = errors.New("password too short")
	// ErrInvalidEmail is returned for malformed email addresses
	ErrInvalidEmail = errors.New("invalid email address")
)
