// Package config loads service configuration from an optional YAML file with
// environment-variable overrides. A .env file, when present, is folded into
// the environment first.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration unmarshals YAML values like "45m" or "24h" into a time.Duration.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q", value.Value)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
		// FrontendBaseURL is where reset-password redirects land.
		FrontendBaseURL string `yaml:"frontend_base_url"`
		// PublicBaseURL is this service's own address used in e-mail links.
		PublicBaseURL string `yaml:"public_base_url"`
	} `yaml:"server"`

	Storage struct {
		DSN string `yaml:"dsn"`
	} `yaml:"storage"`

	JWT struct {
		Secret    string   `yaml:"secret"`
		Issuer    string   `yaml:"issuer"`
		AccessTTL Duration `yaml:"access_ttl"`
	} `yaml:"jwt"`

	Tokens struct {
		SweepInterval Duration `yaml:"sweep_interval"`
	} `yaml:"tokens"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Rate struct {
		Login struct {
			Limit  int      `yaml:"limit"`
			Window Duration `yaml:"window"`
		} `yaml:"login"`
		Forgot struct {
			Limit  int      `yaml:"limit"`
			Window Duration `yaml:"window"`
		} `yaml:"forgot"`
	} `yaml:"rate"`
}

// Load reads the YAML file at path (optional: pass "" to use environment
// only), applies environment overrides and defaults, and validates.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	applyEnv(&c)
	applyDefaults(&c)

	if c.JWT.Secret == "" {
		return nil, errors.New("config: jwt secret is required (EAMAUTH_JWT_SECRET)")
	}
	return &c, nil
}

func applyEnv(c *Config) {
	setString(&c.Server.Addr, "EAMAUTH_ADDR")
	setString(&c.Server.FrontendBaseURL, "EAMAUTH_FRONTEND_BASE_URL")
	setString(&c.Server.PublicBaseURL, "EAMAUTH_PUBLIC_BASE_URL")
	setString(&c.Storage.DSN, "EAMAUTH_PG_DSN")
	setString(&c.JWT.Secret, "EAMAUTH_JWT_SECRET")
	setString(&c.JWT.Issuer, "EAMAUTH_JWT_ISSUER")
	setDuration(&c.JWT.AccessTTL, "EAMAUTH_JWT_ACCESS_TTL")
	setDuration(&c.Tokens.SweepInterval, "EAMAUTH_TOKEN_SWEEP_INTERVAL")
	setString(&c.SMTP.Host, "EAMAUTH_SMTP_HOST")
	setInt(&c.SMTP.Port, "EAMAUTH_SMTP_PORT")
	setString(&c.SMTP.Username, "EAMAUTH_SMTP_USER")
	setString(&c.SMTP.Password, "EAMAUTH_SMTP_PASS")
	setString(&c.SMTP.From, "EAMAUTH_SMTP_FROM")
	setString(&c.SMTP.TLS, "EAMAUTH_SMTP_TLS")
}

func applyDefaults(c *Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = "http://localhost:8080"
	}
	if c.Server.FrontendBaseURL == "" {
		c.Server.FrontendBaseURL = "http://localhost:3000"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "eamauth"
	}
	if c.JWT.AccessTTL <= 0 {
		c.JWT.AccessTTL = Duration(24 * time.Hour)
	}
	if c.Tokens.SweepInterval <= 0 {
		c.Tokens.SweepInterval = Duration(time.Hour)
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window <= 0 {
		c.Rate.Login.Window = Duration(time.Minute)
	}
	if c.Rate.Forgot.Limit == 0 {
		c.Rate.Forgot.Limit = 5
	}
	if c.Rate.Forgot.Window <= 0 {
		c.Rate.Forgot.Window = Duration(10 * time.Minute)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}
