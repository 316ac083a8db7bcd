// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

// Package config loads runtime configuration from the environment.
package config

import (
	"context"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"github.com/sethvargo/go-envconfig"
)

// Email delivery modes.
const (
	EmailModeConsole = "console"
	EmailModeSMTP    = "smtp"
)

// Config holds runtime configuration for ExamReg.
type Config struct {
	Addr         string `env:"ADDR,default=:8080"`
	MetricsAddr  string `env:"METRICS_ADDR,default=127.0.0.1:9100"`
	DatabaseURL  string `env:"DATABASE_URL,required"`
	BaseURL      string `env:"BASE_URL,default=http://localhost:8080"`
	CookieSecure bool   `env:"COOKIE_SECURE,default=false"`
	EmailMode    string `env:"EMAIL_MODE,default=console"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASS"`
	FromEmail    string `env:"FROM_EMAIL"`
	LogFormat    string `env:"LOG_FORMAT,default=json"`
}

// LoadDotenv loads a .env file if one exists next to the working
// directory. Missing files are not an error; the environment wins on
// conflicts.
func LoadDotenv() {
	_ = godotenv.Load() //nolint:errcheck // .env is optional
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	cfg.EmailMode = strings.ToLower(cfg.EmailMode)
	if cfg.EmailMode != EmailModeConsole && cfg.EmailMode != EmailModeSMTP {
		return Config{}, oops.Code("CONFIG_INVALID").
			With("email_mode", cfg.EmailMode).
			Errorf("EMAIL_MODE must be %q or %q", EmailModeConsole, EmailModeSMTP)
	}

	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.SMTPUser
	}

	return cfg, nil
}

// SMTPComplete reports whether every setting needed for relay mode is
// present. When it is false the serve command falls back to console
// delivery with a logged warning, matching the behavior users expect
// in development.
func (c Config) SMTPComplete() bool {
	return c.SMTPHost != "" && c.SMTPPort != 0 && c.SMTPUser != "" && c.SMTPPassword != "" && c.FromEmail != ""
}
