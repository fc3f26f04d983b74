package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"eamauth.org/internal/audit"
	"eamauth.org/internal/ids"
	"eamauth.org/internal/obs"
)

// Mailer is the outbound e-mail collaborator. Failures surface as service
// errors; the core never retries.
type Mailer interface {
	SendVerification(ctx context.Context, to, rawToken string) error
	SendPasswordReset(ctx context.Context, to, rawToken string) error
}

// Service drives registration, login, logout and the verification/reset
// flows. It owns no HTTP concerns; the httpapi package maps its sentinel
// errors onto status codes.
type Service struct {
	store    Store
	issuer   *Issuer
	revoked  *Revocations
	purposes *PurposeTokens
	mailer   Mailer
	now      func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
			s.purposes.WithPurposeClock(fn)
		}
	}
}

// WithMailer sets the outbound e-mail collaborator.
func WithMailer(m Mailer) ServiceOption {
	return func(s *Service) { s.mailer = m }
}

// NewService wires the identity core together.
func NewService(store Store, issuer *Issuer, revoked *Revocations, opts ...ServiceOption) (*Service, error) {
	if store == nil || issuer == nil || revoked == nil {
		return nil, ErrInvalidInput
	}
	s := &Service{
		store:    store,
		issuer:   issuer,
		revoked:  revoked,
		purposes: NewPurposeTokens(store),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PurposeTokens exposes the verification/reset token component.
func (s *Service) PurposeTokens() *PurposeTokens { return s.purposes }

// Issuer exposes the access-token issuer.
func (s *Service) Issuer() *Issuer { return s.issuer }

// Revocations exposes the revocation registry.
func (s *Service) Revocations() *Revocations { return s.revoked }

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email      string
	Password   string
	Role       string
	Department string
	Phone      string
	CIN        string
}

// Register creates a PENDING identity and sends the verification e-mail.
// Duplicate e-mails are rejected with ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}
	role := RoleTechnicien
	if strings.TrimSpace(in.Role) != "" {
		var err error
		if role, err = ParseRole(in.Role); err != nil {
			return nil, err
		}
	}
	department, err := ParseDepartment(in.Department)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	users := s.store.Users(ctx)
	exists, err := users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyExists
	}

	now := s.now().UTC()
	u := &User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Department:   department,
		Phone:        strings.TrimSpace(in.Phone),
		CIN:          strings.TrimSpace(in.CIN),
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, u); err != nil {
		return nil, err
	}
	_ = audit.LogEvent(ctx, "auth.user.registered", map[string]any{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    string(u.Role),
	})
	return u, nil
}

func (s *Service) sendVerification(ctx context.Context, u *User) error {
	raw, _, err := s.purposes.Issue(ctx, u.ID, PurposeEmailVerification)
	if err != nil {
		return err
	}
	if s.mailer == nil {
		return nil
	}
	return s.mailer.SendVerification(ctx, u.Email, raw)
}

// Login validates credentials and mints an access token. Unknown e-mail and
// wrong password are indistinguishable; account state produces distinct
// sentinel errors.
func (s *Service) Login(ctx context.Context, email, password string) (string, *Claims, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", nil, ErrUnauthenticated
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil, ErrUnauthenticated
		}
		return "", nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return "", nil, ErrUnauthenticated
	}
	switch user.Status {
	case StatusPending:
		return "", nil, ErrEmailNotVerified
	case StatusInactive, StatusSuspended:
		return "", nil, ErrAccountDisabled
	}

	token, claims, err := s.issuer.Issue(user.Email, user.Role, user.Department)
	if err != nil {
		return "", nil, err
	}
	if err := s.store.Users(ctx).TouchLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		return "", nil, err
	}
	obs.TokenIssued()
	_ = audit.LogEvent(ctx, "auth.token.issued", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
		"jti":     claims.ID,
		"exp":     claims.ExpiresAt.Time.Format(time.RFC3339),
	})
	return token, claims, nil
}

// Authenticate verifies a bearer token end to end: signature, expiry and
// revocation. Every failure is ErrUnauthenticated.
func (s *Service) Authenticate(token string) (*Claims, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		obs.AuthnRejected("invalid")
		return nil, ErrUnauthenticated
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		obs.AuthnRejected("expired")
		return nil, ErrUnauthenticated
	}
	if s.revoked.IsRevoked(claims.ID) {
		obs.AuthnRejected("revoked")
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// Logout revokes the presented token's jti until its natural expiry. An
// unverifiable token yields ErrUnauthenticated.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return ErrUnauthenticated
	}
	s.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	_ = audit.LogEvent(ctx, "auth.token.revoked", map[string]any{
		"subject": claims.Subject,
		"jti":     claims.ID,
	})
	return nil
}

// VerifyEmail consumes an EMAIL_VERIFICATION token and activates the account.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) error {
	userID, err := s.purposes.Consume(ctx, rawToken, PurposeEmailVerification)
	if err != nil {
		return err
	}
	user, err := s.store.Users(ctx).Find(ctx, userID)
	if err != nil {
		return err
	}
	if user.Status != StatusPending {
		return ErrAlreadyVerified
	}
	if err := s.store.Users(ctx).UpdateStatus(ctx, user.ID, StatusActive); err != nil {
		return err
	}
	_ = audit.LogEvent(ctx, "auth.email.verified", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return nil
}

// ResendVerification re-issues the verification e-mail for PENDING accounts,
// refusing while a previous token is still valid.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Status != StatusPending {
		return ErrAlreadyVerified
	}
	outstanding, err := s.purposes.HasOutstandingValid(ctx, user.ID, PurposeEmailVerification)
	if err != nil {
		return err
	}
	if outstanding {
		return ErrAlreadyRequested
	}
	return s.sendVerification(ctx, user)
}

// RequestPasswordReset issues a PASSWORD_RESET token and mails the link.
// Callers must not reveal whether the e-mail exists; the HTTP layer responds
// generically regardless of the outcome here.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	raw, _, err := s.purposes.Issue(ctx, user.ID, PurposePasswordReset)
	if err != nil {
		return err
	}
	if s.mailer == nil {
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, raw); err != nil {
		return err
	}
	_ = audit.LogEvent(ctx, "auth.reset.requested", map[string]any{
		"user_id": user.ID,
	})
	return nil
}

// PeekPasswordReset validates a reset token without consuming it. Used by the
// redirect step; final consumption happens in ResetPassword.
func (s *Service) PeekPasswordReset(ctx context.Context, rawToken string) error {
	_, err := s.purposes.Peek(ctx, rawToken, PurposePasswordReset)
	return err
}

// ResetPassword consumes a reset token and replaces the password hash.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	userID, err := s.purposes.Consume(ctx, rawToken, PurposePasswordReset)
	if err != nil {
		return err
	}
	if err := s.store.Users(ctx).UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	_ = audit.LogEvent(ctx, "auth.password.reset", map[string]any{
		"user_id": userID,
	})
	return nil
}

// FindBySubject resolves the identity record behind a token subject.
func (s *Service) FindBySubject(ctx context.Context, subject string) (*User, error) {
	return s.store.Users(ctx).FindByEmail(ctx, strings.TrimSpace(strings.ToLower(subject)))
}
