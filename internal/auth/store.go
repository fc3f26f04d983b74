package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the identity core.
type Store interface {
	Users(ctx context.Context) UserStore
	PurposeTokens(ctx context.Context) PurposeTokenStore
}

// UserStore manages identity records.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// PurposeTokenStore manages single-use verification/reset tokens.
type PurposeTokenStore interface {
	Create(ctx context.Context, tok *PurposeToken) error
	FindByHash(ctx context.Context, tokenHash string) (*PurposeToken, error)

	// MarkUsed flips the used flag if and only if it is still false. It
	// returns ErrTokenInvalid when the row is missing or already used, so
	// concurrent consumers of the same token cannot both succeed.
	MarkUsed(ctx context.Context, id string) error

	// MarkAllUsed implements the supersede rule: every outstanding unused
	// token of (user, purpose) becomes used.
	MarkAllUsed(ctx context.Context, userID string, purpose Purpose) error

	HasValid(ctx context.Context, userID string, purpose Purpose, now time.Time) (bool, error)

	// DeleteExpired removes rows past their expiry regardless of the used
	// flag and returns how many were deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
