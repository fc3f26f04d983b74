package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"eamauth.org/internal/auth"
)

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
	Phone      string `json:"phone,omitempty"`
	CIN        string `json:"cin,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expires_at"`
	User      userView `json:"user"`
}

type userView struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Status     string `json:"status"`
	LastLogin  string `json:"last_login,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func viewOf(u *auth.User) userView {
	v := userView{
		ID:         u.ID,
		Email:      u.Email,
		Role:       string(u.Role),
		Department: string(u.Department),
		Phone:      u.Phone,
		Status:     string(u.Status),
		CreatedAt:  u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if u.LastLogin != nil {
		v.LastLogin = u.LastLogin.UTC().Format(time.RFC3339)
	}
	return v
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := a.svc.Register(r.Context(), auth.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		Department: req.Department,
		Phone:      req.Phone,
		CIN:        req.CIN,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    viewOf(u),
		"message": "verification e-mail sent",
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, claims, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	user, err := a.svc.FindBySubject(r.Context(), claims.Subject)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
		User:      viewOf(user),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := a.svc.Logout(r.Context(), token); err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing credentials")
		return
	}
	user, err := a.svc.FindBySubject(r.Context(), subject)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(user))
}

func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, r, http.StatusBadRequest, "token is required")
		return
	}
	if err := a.svc.VerifyEmail(r.Context(), token); err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "e-mail verified, account is active"})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (a *API) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.ResendVerification(r.Context(), req.Email); err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "verification e-mail sent"})
}

// handleForgotPassword always answers 202 with a generic message, so the
// endpoint cannot be used to probe which e-mails exist.
func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	_ = a.svc.RequestPasswordReset(r.Context(), req.Email)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message": "if the e-mail is registered, a reset link has been sent",
	})
}

// handleResetRedirect is the browser landing for reset links. A valid token
// redirects to the frontend reset form with the token intact; anything else
// redirects back to the forgot-password page with an error flag. The token
// is not consumed here.
func (a *API) handleResetRedirect(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))

	base, err := url.Parse(a.frontendBaseURL)
	if err != nil || a.frontendBaseURL == "" {
		writeError(w, r, http.StatusInternalServerError, "redirect target not configured")
		return
	}

	var target *url.URL
	q := url.Values{}
	if token == "" || a.svc.PeekPasswordReset(r.Context(), token) != nil {
		target = base.JoinPath("forgot-password")
		q.Set("error", "invalid_token")
	} else {
		target = base.JoinPath("reset-password")
		q.Set("token", token)
	}
	target.RawQuery = q.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}

type resetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (a *API) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, r, http.StatusBadRequest, "token is required")
		return
	}
	if err := a.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "password updated"})
}
