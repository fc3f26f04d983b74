package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultAccessTTL = 24 * time.Hour

// Issuer mints and verifies HS256 access tokens. It is stateless: issuing a
// token touches no storage, and verification needs only the signing secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// IssuerOption configures Issuer behavior.
type IssuerOption func(*Issuer)

// WithIssuerName sets the "iss" claim embedded in minted tokens.
func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = strings.TrimSpace(name)
	}
}

// WithAccessTTL overrides the default 24h access-token lifetime.
func WithAccessTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithIssuerClock overrides the time source (useful for tests).
func WithIssuerClock(fn func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewIssuer constructs an Issuer signing with the given secret.
func NewIssuer(secret string, opts ...IssuerOption) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrInvalidInput
	}
	i := &Issuer{
		secret: []byte(secret),
		ttl:    defaultAccessTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue mints a signed token for the subject with a fresh jti. The returned
// claims mirror exactly what was signed.
func (i *Issuer) Issue(subject string, role Role, department Department) (string, *Claims, error) {
	subject = strings.TrimSpace(strings.ToLower(subject))
	if subject == "" {
		return "", nil, ErrInvalidInput
	}
	if _, err := ParseRole(string(role)); err != nil {
		return "", nil, err
	}

	now := i.now().UTC()
	claims := &Claims{
		Role:       role,
		Department: department,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify parses and validates a token. It fails closed: any decoding error,
// signature mismatch, algorithm substitution or missing claim yields
// ErrUnauthenticated and never a partially trusted claim set.
func (i *Issuer) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthenticated
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, ErrUnauthenticated
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrUnauthenticated
	}
	if err := i.validateClaims(claims); err != nil {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

func (i *Issuer) validateClaims(claims *Claims) error {
	if strings.TrimSpace(claims.Subject) == "" {
		return ErrUnauthenticated
	}
	if claims.ID == "" {
		return ErrUnauthenticated
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return ErrUnauthenticated
	}
	if i.issuer != "" && claims.Issuer != "" && !strings.EqualFold(claims.Issuer, i.issuer) {
		return ErrUnauthenticated
	}
	if _, err := ParseRole(string(claims.Role)); err != nil {
		return ErrUnauthenticated
	}
	if _, err := ParseDepartment(string(claims.Department)); err != nil {
		return ErrUnauthenticated
	}
	return nil
}

// IsExpired reports whether the token's exp has passed. Parse failures count
// as expired.
func (i *Issuer) IsExpired(token string) bool {
	claims, err := i.Verify(token)
	if err != nil {
		return true
	}
	return !i.now().Before(claims.ExpiresAt.Time)
}

// Subject projects the "sub" claim from a verified token.
func (i *Issuer) Subject(token string) (string, error) {
	claims, err := i.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// RoleOf projects the role claim from a verified token.
func (i *Issuer) RoleOf(token string) (Role, error) {
	claims, err := i.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Role, nil
}

// DepartmentOf projects the department claim from a verified token.
func (i *Issuer) DepartmentOf(token string) (Department, error) {
	claims, err := i.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Department, nil
}

// JTI projects the unique token id from a verified token.
func (i *Issuer) JTI(token string) (string, error) {
	claims, err := i.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.ID, nil
}
