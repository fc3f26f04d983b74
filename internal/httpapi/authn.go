package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"eamauth.org/internal/audit"
	"eamauth.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth requires a verified bearer token. On success the claims and the
// raw token are attached to the request context and the subject becomes the
// audit actor.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.svc.Authenticate(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := auth.ContextWithClaims(r.Context(), claims)
		ctx = auth.ContextWithToken(ctx, token)
		ctx = audit.WithActor(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
