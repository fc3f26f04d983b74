package auth

import "errors"

var (
	// ErrUnauthenticated covers every bearer-token failure: missing, malformed,
	// badly signed, expired or revoked. The HTTP layer maps it to 401 without
	// distinguishing the cause.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrForbidden means the token was valid but role or ownership checks failed.
	ErrForbidden = errors.New("auth: forbidden")

	// ErrTokenInvalid is returned for verification/reset tokens that are
	// unknown, of the wrong purpose, expired or already used. A single error
	// so callers cannot enumerate token state.
	ErrTokenInvalid = errors.New("auth: token invalid")

	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")

	// ErrEmailNotVerified is a login rejection for PENDING accounts. Kept
	// distinct from ErrUnauthenticated so the frontend can offer the
	// resend-verification flow.
	ErrEmailNotVerified = errors.New("auth: email not verified")

	// ErrAccountDisabled is a login rejection for INACTIVE/SUSPENDED accounts.
	ErrAccountDisabled = errors.New("auth: account disabled")

	// ErrAlreadyVerified rejects verification flows on non-PENDING accounts.
	ErrAlreadyVerified = errors.New("auth: already verified")

	// ErrAlreadyRequested rate-limits re-issuance while a valid token of the
	// same purpose is still outstanding.
	ErrAlreadyRequested = errors.New("auth: already requested")
)
