package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	EnvJWTSecret    = "PORTAL_JWT_SECRET"
	EnvDBPath       = "PORTAL_DB_PATH"
	EnvEnv          = "PORTAL_ENV"
	EnvSMTPPassword = "PORTAL_SMTP_PASSWORD"

	minProductionSecretLen = 32
)

// Load reads an optional .env file, then the YAML file at path (unknown keys are errors),
// applies environment overrides and defaults, and validates the result.
func Load(path string) (*Portal, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse is Load without file access.
func Parse(data []byte) (*Portal, error) {
	var cfg Portal
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (cfg *Portal) applyEnv() {
	if v := os.Getenv(EnvJWTSecret); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv(EnvEnv); v != "" {
		cfg.Server.Env = v
	}
	if v := os.Getenv(EnvSMTPPassword); v != "" {
		cfg.Mail.Password = v
	}
}

// ApplyDefaults fills every omitted setting.
func (cfg *Portal) ApplyDefaults() {
	s := &cfg.Server
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.Env == "" {
		s.Env = EnvProduction
	}
	setDuration(&s.ReadTimeout, 15*time.Second)
	setDuration(&s.WriteTimeout, 15*time.Second)
	setDuration(&s.IdleTimeout, 60*time.Second)
	setDuration(&s.ShutdownTimeout, 15*time.Second)

	if cfg.Database.Path == "" {
		cfg.Database.Path = "./portal.db"
	}

	a := &cfg.Auth
	if a.Issuer == "" {
		a.Issuer = "portal"
	}
	setDuration(&a.AccessTokenTTL, 24*time.Hour)
	setDuration(&a.RefreshTokenTTL, 7*24*time.Hour)
	if a.BcryptCost == 0 {
		a.BcryptCost = 12
	}
	if a.Password.MinLength == 0 {
		a.Password.MinLength = 8
	}

	ss := &cfg.Session
	if ss.BaseURL == "" {
		ss.BaseURL = fmt.Sprintf("http://localhost:%d", s.Port)
	}
	setDuration(&ss.SettleDelay, time.Second)
	setDuration(&ss.RenewInterval, 30*time.Minute)
	setDuration(&ss.RenewJitter, 5*time.Second)
	setDuration(&ss.RequestTimeout, 10*time.Second)

	if cfg.Mail.SMTPPort == 0 {
		cfg.Mail.SMTPPort = 587
	}
	if cfg.Mail.TLSPolicy == "" {
		cfg.Mail.TLSPolicy = "mandatory"
	}

	m := &cfg.Middleware
	if m.RateLimit.RequestsPerSecond == 0 {
		m.RateLimit.RequestsPerSecond = 10
	}
	if m.RateLimit.Burst == 0 {
		m.RateLimit.Burst = 20
	}
	if m.AuthRateLimit.RequestsPerSecond == 0 {
		m.AuthRateLimit.RequestsPerSecond = 1
	}
	if m.AuthRateLimit.Burst == 0 {
		m.AuthRateLimit.Burst = 5
	}
	if len(m.CORS.AllowedMethods) == 0 {
		m.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	}
	if len(m.CORS.AllowedHeaders) == 0 {
		m.CORS.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}

	j := &cfg.Jobs
	if j.RetentionSchedule == "" {
		j.RetentionSchedule = "@daily"
	}
	setDuration(&j.AuditRetention, 90*24*time.Hour)
	setDuration(&j.NotificationRetention, 90*24*time.Hour)

	setDuration(&cfg.HealthCheck.Interval, 30*time.Second)
	setDuration(&cfg.HealthCheck.Timeout, 2*time.Second)
}

func setDuration(d *time.Duration, v time.Duration) {
	if *d == 0 {
		*d = v
	}
}

func (cfg *Portal) Validate() error {
	var errs []error

	switch cfg.Server.Env {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("server.env must be %q or %q, got %q", EnvDevelopment, EnvProduction, cfg.Server.Env))
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", cfg.Server.Port))
	}

	if tls := cfg.Server.TLS; tls != nil && tls.Enabled {
		switch {
		case tls.ACME && len(tls.Domains) == 0:
			errs = append(errs, errors.New("server.tls.acme requires domains"))
		case !tls.ACME && (tls.CertFile == "" || tls.KeyFile == ""):
			errs = append(errs, errors.New("server.tls requires cert_file and key_file, or acme"))
		}
	}

	secret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if secret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	} else if cfg.Server.Env == EnvProduction && len(secret) < minProductionSecretLen {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d bytes in production", minProductionSecretLen))
	}

	if cfg.Auth.RefreshTokenTTL <= cfg.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("auth.refresh_token_ttl must be longer than auth.access_token_ttl"))
	}

	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost out of range: %d", cfg.Auth.BcryptCost))
	}

	if cfg.Mail.Enabled && (cfg.Mail.SMTPHost == "" || cfg.Mail.From == "") {
		errs = append(errs, errors.New("mail requires smtp_host and from when enabled"))
	}

	return errors.Join(errs...)
}
