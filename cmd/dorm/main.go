package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"dorm/internal/auth"
	"dorm/internal/backend"
	"dorm/internal/cli"
	"dorm/internal/config"
	apphttp "dorm/internal/http"
	applog "dorm/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	result, err := backend.NewFactory(logger).CreateBackend(startupCtx, backendConfig)
	cancelStartup()
	if err != nil {
		logger.Error("Failed to create backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	authenticator, err := auth.NewAuthenticator(cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		logger.Error("Failed to initialize authenticator", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}
	sessions, err := auth.NewSessions([]byte(cfg.SessionSecret), cfg.SessionTTL)
	if err != nil {
		logger.Error("Failed to initialize sessions", applog.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Roster:   result.Roster,
		Reports:  result.Reports,
		Auth:     authenticator,
		Sessions: sessions,
		Checks:   result.Checks,
		Logger:   logger,
	}, apphttp.Options{
		SecureCookies: cfg.SecureCookies,
		RateLimit:     cfg.RateLimit,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	var g errgroup.Group
	g.Go(func() error {
		logger.Info("Starting dorm server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp", cfg.AMQPURL != "",
			"redis", cfg.RedisAddr != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		_ = result.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
