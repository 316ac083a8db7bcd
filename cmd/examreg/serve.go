// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/examreg/examreg/internal/auth"
	authpg "github.com/examreg/examreg/internal/auth/postgres"
	"github.com/examreg/examreg/internal/config"
	"github.com/examreg/examreg/internal/logging"
	"github.com/examreg/examreg/internal/mail"
	"github.com/examreg/examreg/internal/observability"
	"github.com/examreg/examreg/internal/store"
	"github.com/examreg/examreg/internal/web"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ExamReg web server",
		Long: `Start the web server hosting signup, login, and password
reset, plus a separate metrics/health endpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logging.SetDefault("examreg", version, cfg.LogFormat)
	logger := slog.Default()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer pool.Close()

	students := authpg.NewStudentRepository(pool)
	resets := authpg.NewPasswordResetRepository(pool)
	sessions := authpg.NewWebSessionRepository(pool)
	hasher := auth.NewBcryptHasher()

	authSvc, err := auth.NewService(students, sessions, hasher)
	if err != nil {
		return err
	}
	resetSvc, err := auth.NewPasswordResetService(students, resets, hasher)
	if err != nil {
		return err
	}

	mailer, emailMode := buildMailer(cfg, logger)

	obsServer := observability.NewServer(cfg.MetricsAddr, func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	})

	handlers := web.NewHandlers(web.HandlersConfig{
		Auth:         authSvc,
		Resets:       resetSvc,
		Mailer:       mailer,
		Metrics:      obsServer.Metrics(),
		Logger:       logger,
		BaseURL:      cfg.BaseURL,
		CookieSecure: cfg.CookieSecure,
		DevResetLink: emailMode == config.EmailModeConsole,
	})
	webServer := web.NewServer(cfg.Addr, handlers.Routes())

	obsErrCh, err := obsServer.Start()
	if err != nil {
		return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
	}
	webErrCh, err := webServer.Start()
	if err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		//nolint:errcheck // already failing, best effort cleanup
		obsServer.Stop(stopCtx)
		return oops.Code("WEB_START_FAILED").Wrap(err)
	}

	logger.Info("examreg started",
		"addr", webServer.Addr(),
		"metrics_addr", obsServer.Addr(),
		"email_mode", emailMode,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err = <-webErrCh:
		if err != nil {
			logger.Error("web server failed", "error", err)
		}
	case err = <-obsErrCh:
		if err != nil {
			logger.Error("observability server failed", "error", err)
		}
	case <-ctx.Done():
		logger.Info("context canceled")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if stopErr := webServer.Stop(stopCtx); stopErr != nil {
		logger.Error("web server shutdown failed", "error", stopErr)
	}
	if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
		logger.Error("observability server shutdown failed", "error", stopErr)
	}

	logger.Info("examreg stopped")
	return err
}

// buildMailer selects the outbound email transport. SMTP mode falls
// back to console delivery when the relay settings are incomplete, so
// a half-configured deployment still surfaces reset links in the log.
func buildMailer(cfg config.Config, logger *slog.Logger) (mail.Mailer, string) {
	if cfg.EmailMode == config.EmailModeSMTP {
		if cfg.SMTPComplete() {
			return mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromEmail), config.EmailModeSMTP
		}
		logger.Warn("SMTP settings incomplete, falling back to console email")
	}
	return mail.NewConsoleMailer(), config.EmailModeConsole
}
