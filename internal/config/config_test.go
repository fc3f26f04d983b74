package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EAMAUTH_JWT_SECRET", "s3cret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.JWT.Issuer != "eamauth" {
		t.Fatalf("Issuer = %q", cfg.JWT.Issuer)
	}
	if cfg.JWT.AccessTTL.Std() != 24*time.Hour {
		t.Fatalf("AccessTTL = %v", cfg.JWT.AccessTTL)
	}
	if cfg.Tokens.SweepInterval.Std() != time.Hour {
		t.Fatalf("SweepInterval = %v", cfg.Tokens.SweepInterval)
	}
	if cfg.Rate.Login.Limit != 10 || cfg.Rate.Login.Window.Std() != time.Minute {
		t.Fatalf("login rate = %d/%v", cfg.Rate.Login.Limit, cfg.Rate.Login.Window)
	}
	if cfg.SMTP.Port != 587 || cfg.SMTP.TLS != "auto" {
		t.Fatalf("smtp = %d/%q", cfg.SMTP.Port, cfg.SMTP.TLS)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("EAMAUTH_JWT_SECRET", "")
	if _, err := Load(""); err == nil {
		t.Fatal("Load accepted empty jwt secret")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("EAMAUTH_JWT_SECRET", "s3cret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
server:
  addr: ":9090"
  frontend_base_url: "https://eam.example.com"
jwt:
  issuer: custom-issuer
  access_ttl: 2h
tokens:
  sweep_interval: 30m
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.FrontendBaseURL != "https://eam.example.com" {
		t.Fatalf("FrontendBaseURL = %q", cfg.Server.FrontendBaseURL)
	}
	if cfg.JWT.Issuer != "custom-issuer" || cfg.JWT.AccessTTL.Std() != 2*time.Hour {
		t.Fatalf("jwt = %q/%v", cfg.JWT.Issuer, cfg.JWT.AccessTTL)
	}
	if cfg.Tokens.SweepInterval.Std() != 30*time.Minute {
		t.Fatalf("SweepInterval = %v", cfg.Tokens.SweepInterval)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("EAMAUTH_JWT_SECRET", "s3cret")
	t.Setenv("EAMAUTH_ADDR", ":7070")
	t.Setenv("EAMAUTH_JWT_ACCESS_TTL", "45m")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("Addr = %q, env should win", cfg.Server.Addr)
	}
	if cfg.JWT.AccessTTL.Std() != 45*time.Minute {
		t.Fatalf("AccessTTL = %v", cfg.JWT.AccessTTL)
	}
}
