package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"racevault/internal/auth"
	"racevault/internal/backend"
	"racevault/internal/cli"
	"racevault/internal/config"
	"racevault/internal/core"
	apphttp "racevault/internal/http"
	"racevault/internal/log"
	"racevault/internal/metrics"
	"racevault/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	m := metrics.New()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger, m).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	tracker := services.NewTracker(result.Gateway, result.Objects, result.Publisher, m, logger, services.TrackerConfig{
		Bucket:         cfg.ReceiptsBucket,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	var receiptOrigin string
	if cfg.DataBackend == config.BackendSupabase {
		receiptOrigin = cfg.SupabaseURL
	}
	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		ReadTimeout:        cfg.ReadTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		ReceiptOrigin:      receiptOrigin,
		Files:              result.Files,
	}, tracker, resolverFor(cfg, logger), result.Gateway, m, logger)
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting racevault server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"auth_mode", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			exitCode = 1
		}
	}

	cli.RunCleanup(logger, 30*time.Second, func(ctx context.Context) error {
		var errs []error
		errs = append(errs, srv.Shutdown(ctx))
		if result.Cleanup != nil {
			errs = append(errs, result.Cleanup())
		}
		return errors.Join(errs...)
	})
	os.Exit(exitCode)
}

// resolverFor picks how requests are attributed to a user.
func resolverFor(cfg *config.Config, logger *log.Logger) auth.Resolver {
	if cfg.AuthMode == config.AuthJWT {
		logger.Info("Bearer token authentication enabled")
		return auth.Bearer{Tokens: auth.NewTokenService(cfg.JWTSecret)}
	}
	user := cfg.DefaultUser()
	logger.Warn("Running without authentication, all requests act as the default user", log.FieldUserID, user)
	return auth.Placeholder{Principal: core.Principal{UserID: user}}
}
