package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"eamauth.org/internal/audit"
	"eamauth.org/internal/auth"
	"eamauth.org/internal/obs"
)

type authzCheckRequest struct {
	Roles     []string `json:"roles"`
	Ownership string   `json:"ownership,omitempty"`
	Target    struct {
		UserID     string `json:"user_id,omitempty"`
		Department string `json:"department,omitempty"`
		AssignedTo string `json:"assigned_to,omitempty"`
	} `json:"target"`
}

type authzCheckResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

var ownershipNames = map[string]auth.OwnershipRule{
	"":                 auth.OwnershipNone,
	"NONE":             auth.OwnershipNone,
	"DEPARTMENT_MATCH": auth.OwnershipDepartment,
	"SELF_ONLY":        auth.OwnershipSelf,
	"ASSIGNED_ONLY":    auth.OwnershipAssigned,
}

// handleAuthzCheck evaluates a declared policy for the calling identity. Fleet
// services use it to guard operations whose ownership data they hold.
func (a *API) handleAuthzCheck(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing credentials")
		return
	}

	var req authzCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Roles) == 0 {
		writeError(w, r, http.StatusBadRequest, "roles are required")
		return
	}

	policy := auth.Policy{}
	for _, raw := range req.Roles {
		role, err := auth.ParseRole(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "unknown role: "+raw)
			return
		}
		policy.Roles = append(policy.Roles, role)
	}
	rule, ok := ownershipNames[strings.ToUpper(strings.TrimSpace(req.Ownership))]
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unknown ownership rule: "+req.Ownership)
		return
	}
	policy.Ownership = rule

	department, err := auth.ParseDepartment(req.Target.Department)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown department: "+req.Target.Department)
		return
	}
	target := auth.Target{
		UserID:     strings.TrimSpace(req.Target.UserID),
		Department: department,
		AssignedTo: strings.TrimSpace(req.Target.AssignedTo),
	}

	callerID := ""
	if rule == auth.OwnershipSelf || rule == auth.OwnershipAssigned {
		caller, err := a.svc.FindBySubject(r.Context(), claims.Subject)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		callerID = caller.ID
	}

	if err := auth.Authorize(claims, callerID, policy, target); err != nil {
		if !errors.Is(err, auth.ErrForbidden) {
			handleAuthError(w, r, err)
			return
		}
		obs.AuthzRejected()
		_ = audit.LogEvent(r.Context(), "authz.denied", map[string]any{
			"subject":   claims.Subject,
			"role":      string(claims.Role),
			"ownership": strings.ToUpper(strings.TrimSpace(req.Ownership)),
		})
		writeJSON(w, http.StatusOK, authzCheckResponse{Allowed: false, Reason: "forbidden"})
		return
	}

	writeJSON(w, http.StatusOK, authzCheckResponse{Allowed: true})
}
