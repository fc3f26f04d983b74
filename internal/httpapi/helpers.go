package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"eamauth.org/internal/auth"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleAuthError maps the identity core's sentinel errors onto HTTP status
// codes. Anything unrecognized is an internal error; details stay in logs.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrTokenInvalid):
		writeError(w, r, http.StatusBadRequest, "invalid or expired token")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrEmailNotVerified):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":  "email not verified",
			"action": "verify_email",
		})
	case errors.Is(err, auth.ErrAccountDisabled):
		writeError(w, r, http.StatusForbidden, "account disabled")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "email already registered")
	case errors.Is(err, auth.ErrAlreadyVerified):
		writeError(w, r, http.StatusConflict, "account already verified")
	case errors.Is(err, auth.ErrAlreadyRequested):
		writeError(w, r, http.StatusConflict, "a valid token was already issued")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
