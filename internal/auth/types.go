package auth

import "time"

// Account status lifecycle: registration creates PENDING accounts, e-mail
// verification promotes them to ACTIVE, administrators may park them as
// INACTIVE or SUSPENDED.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// User is an identity record. PasswordHash is bcrypt; Department is empty
// for ADMIN accounts.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	Department   Department
	Phone        string
	CIN          string
	Status       Status
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Purpose types a single-use verification token.
type Purpose string

const (
	PurposeEmailVerification Purpose = "EMAIL_VERIFICATION"
	PurposePasswordReset     Purpose = "PASSWORD_RESET"
)

// PurposeToken is a persisted single-use token bound to a user. Only the
// sha256 of the raw value is stored; the raw value travels once, inside the
// e-mail link.
type PurposeToken struct {
	ID        string
	UserID    string
	Purpose   Purpose
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Usable reports whether the token can still be consumed at the given instant.
func (t *PurposeToken) Usable(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
