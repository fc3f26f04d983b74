// Package httpapi exposes the identity core over HTTP. It owns routing,
// request decoding, status-code mapping and the cross-cutting middleware;
// all domain decisions live in internal/auth.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"eamauth.org/api/spec"
	"eamauth.org/internal/auth"
	"eamauth.org/internal/config"
	"eamauth.org/internal/obs"
)

// ReadyProbe reports whether downstream dependencies are reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	router     chi.Router
	svc        *auth.Service
	readyProbe ReadyProbe
	version    string

	// frontendBaseURL is where browser-facing redirects (reset links) land.
	frontendBaseURL string
}

// New wires the router. Rate limits apply to the credential-accepting
// endpoints only; everything else is bounded by body-size limits.
func New(svc *auth.Service, rp ReadyProbe, cfg *config.Config, version string) *API {
	a := &API{
		router:          chi.NewRouter(),
		svc:             svc,
		readyProbe:      rp,
		version:         version,
		frontendBaseURL: cfg.Server.FrontendBaseURL,
	}

	r := a.router
	r.Use(RequestID)
	r.Use(Logging)
	r.Use(SecurityHeaders)
	r.Use(MaxBodyBytes(1 << 20))

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Get("/v1/info", a.handleInfo)
	r.Get("/openapi.yaml", a.handleOpenAPISpec)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	loginLimit := RateLimit(cfg.Rate.Login.Limit, cfg.Rate.Login.Window.Std())
	forgotLimit := RateLimit(cfg.Rate.Forgot.Limit, cfg.Rate.Forgot.Window.Std())

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", a.handleRegister)
		r.With(loginLimit).Post("/login", a.handleLogin)
		r.Get("/verify", a.handleVerifyEmail)
		r.With(forgotLimit).Post("/resend-verification", a.handleResendVerification)
		r.With(forgotLimit).Post("/forgot-password", a.handleForgotPassword)
		r.Get("/reset-password", a.handleResetRedirect)
		r.Post("/reset-password-confirm", a.handleResetConfirm)

		r.Group(func(r chi.Router) {
			r.Use(a.withAuth)
			r.Post("/logout", a.handleLogout)
			r.Get("/me", a.handleMe)
		})
	})

	r.Route("/v1/authz", func(r chi.Router) {
		r.Use(a.withAuth)
		r.Post("/check", a.handleAuthzCheck)
	})

	return a
}

// Handler returns the instrumented root handler.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.router)
}

// --- health/info handlers ---

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "eamauth",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "eamauth",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
