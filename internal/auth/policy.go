package auth

// OwnershipRule relates the caller's identity to the target entity beyond
// role membership.
type OwnershipRule int

const (
	// OwnershipNone requires role membership only.
	OwnershipNone OwnershipRule = iota
	// OwnershipDepartment requires the caller's department to match the
	// target's. ADMIN bypasses.
	OwnershipDepartment
	// OwnershipSelf requires the target identity to be the caller.
	OwnershipSelf
	// OwnershipAssigned requires the target's assignee to be the caller.
	// ADMIN and chef roles in the target's department bypass.
	OwnershipAssigned
)

// Policy is the statically declared access requirement of one operation.
type Policy struct {
	Roles     []Role
	Ownership OwnershipRule
}

// Allows reports whether the role is in the policy's required set.
func (p Policy) Allows(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Target describes the entity an operation acts on, as read by the owning
// service. Fields irrelevant to the policy's ownership rule may stay empty.
type Target struct {
	// UserID is the identity id of the target for self-scoped operations.
	UserID string
	// Department is the department owning the work item.
	Department Department
	// AssignedTo is the identity id a work item is assigned to.
	AssignedTo string
}

// Authorize evaluates a policy against verified claims and an optional
// target. callerID is the caller's identity id (resolved from the subject by
// the owning service). Returns nil when allowed, ErrForbidden otherwise; it
// never consults storage and has no side effects.
func Authorize(claims *Claims, callerID string, policy Policy, target Target) error {
	if claims == nil {
		return ErrUnauthenticated
	}
	if !policy.Allows(claims.Role) {
		return ErrForbidden
	}

	switch policy.Ownership {
	case OwnershipNone:
		return nil

	case OwnershipDepartment:
		if claims.Role == RoleAdmin {
			return nil
		}
		if claims.Department == "" || target.Department == "" {
			return ErrForbidden
		}
		if claims.Department != target.Department {
			return ErrForbidden
		}
		return nil

	case OwnershipSelf:
		if callerID == "" || target.UserID != callerID {
			return ErrForbidden
		}
		return nil

	case OwnershipAssigned:
		if claims.Role == RoleAdmin {
			return nil
		}
		if claims.Role.IsChef() && claims.Department != "" && claims.Department == target.Department {
			return nil
		}
		if callerID == "" || target.AssignedTo != callerID {
			return ErrForbidden
		}
		return nil

	default:
		// Unknown rule: fail closed.
		return ErrForbidden
	}
}
