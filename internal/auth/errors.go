package auth

import "errors"

// Validation errors map to 400, authentication errors to 401 and
// ErrNoFingerprints to 404. Anything else a Service returns is internal.
var (
	ErrMissingFields      = errors.New("auth: required fields missing")
	ErrMissingCredentials = errors.New("auth: email and password required")
	ErrMissingFingerprint = errors.New("auth: fingerprint required")
	ErrAccountExists      = errors.New("auth: account already exists")

	ErrInvalidSession      = errors.New("auth: invalid session")
	ErrInvalidCredentials  = errors.New("auth: invalid credentials")
	ErrFingerprintMismatch = errors.New("auth: fingerprint mismatch")

	ErrNoFingerprints = errors.New("auth: no fingerprints enrolled")
)
