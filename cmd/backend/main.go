package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectivity-probe/internal/config"
	"connectivity-probe/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	bootLog := server.NewLogger(os.Stderr, "info", "text")

	cfg, err := config.Load(".env")
	if err != nil {
		bootLog.Error().Err(err).Msg("config_invalid")
		return 1
	}
	logger := server.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	hostname, err := os.Hostname()
	if err != nil {
		logger.Warn().Err(err).Msg("hostname_unavailable")
		hostname = "unknown"
	}

	store, err := server.NewMinioStore(server.StoreConfig{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		logger.Error().Err(err).Msg("storage_client_failed")
		return 1
	}

	proxies, err := server.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Error().Err(err).Msg("config_invalid")
		return 1
	}

	build := server.BuildInfo{Version: cfg.Version, Commit: cfg.Commit}
	srv := server.New(server.Config{
		Addr:               cfg.Addr,
		Hostname:           hostname,
		Build:              build,
		DefaultBucket:      cfg.DefaultBucket,
		DefaultDriver:      cfg.DBDriver,
		UploadTimeout:      cfg.UploadTimeout,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ExposeErrors:       cfg.ExposeErrors,
		TrustedProxies:     proxies,
		Logger:             logger,
		Checker:            server.NewSQLChecker(cfg.DBTestTimeout),
		Store:              store,
	})

	if cfg.ExposeErrors {
		logger.Warn().Msg("SFD_EXPOSE_ERRORS is on: backend error text is shown to visitors")
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("version", build.Version).
			Str("commit", build.Commit).
			Str("hostname", hostname).
			Msg("starting")
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting_down")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown_error")
			return 1
		}
		logger.Info().Msg("shutdown_complete")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server_error")
			return 1
		}
	}
	return 0
}
