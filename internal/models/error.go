package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login flow errors
	ErrRateLimitExceeded = errors.New("too many attempts")

	// MFA flow errors
	ErrMFAMethodNotFound    = errors.New("mfa method not found")
	ErrMFAChallengeNotFound = errors.New("mfa challenge not found")
	ErrMFAChallengeExpired  = errors.New("mfa challenge expired")
	ErrMFAAttemptsExhausted = errors.New("mfa attempts exhausted")
	ErrMFAInvalidCode       = errors.New("invalid mfa code")
	ErrMFAMethodNotVerified = errors.New("mfa method not verified")
)
