package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the coarse access level carried in every token.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleChefOp     Role = "CHEFOP"
	RoleChefTech   Role = "CHEFTECH"
	RoleTechnicien Role = "TECHNICIEN"
)

// ParseRole normalizes and validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleChefOp, RoleChefTech, RoleTechnicien:
		return r, nil
	default:
		return "", ErrInvalidInput
	}
}

// IsChef reports whether the role is a department-lead role. Chef roles may
// bypass assignment checks inside their own department.
func (r Role) IsChef() bool {
	return r == RoleChefOp || r == RoleChefTech
}

// Department scopes users and work items. Empty for ADMIN accounts, which
// are not department-bound.
type Department string

const (
	DepartmentMaintenance Department = "MAINTENANCE"
	DepartmentProduction  Department = "PRODUCTION"
	DepartmentLogistique  Department = "LOGISTIQUE"
	DepartmentQualite     Department = "QUALITE"
)

// ParseDepartment validates a department name. The empty string is accepted
// and means "no department".
func ParseDepartment(s string) (Department, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	switch d := Department(s); d {
	case DepartmentMaintenance, DepartmentProduction, DepartmentLogistique, DepartmentQualite:
		return d, nil
	default:
		return "", ErrInvalidInput
	}
}

// Claims is the verified claim set carried inside an access token. Subject is
// the user's email, ID the unique token identifier (jti) used as revocation key.
type Claims struct {
	Role       Role       `json:"role"`
	Department Department `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// ExpiresIn returns the remaining lifetime at the given instant, zero or
// negative once expired.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}
