// Package main provides the neuroserve API server entrypoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/neuroserve/neuroserve/internal/api"
	"github.com/neuroserve/neuroserve/internal/cache"
	"github.com/neuroserve/neuroserve/internal/config"
	"github.com/neuroserve/neuroserve/internal/observability"
	"github.com/neuroserve/neuroserve/internal/ocr"
	"github.com/neuroserve/neuroserve/internal/pdf"
	"github.com/neuroserve/neuroserve/internal/registry"
	"github.com/neuroserve/neuroserve/internal/services"
	"github.com/neuroserve/neuroserve/internal/storage"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		stop()
		logger.Fatal().Err(err).Msg("Server error")
	}
	logger.Info().Msg("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Driver).
		Str("ocr", ocr.New().Name()).
		Msg("Starting neuroserve API")

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := storage.Migrate(ctx, db, cfg.Database.Driver)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		logger.Info().Strs("versions", applied).Msg("Applied migrations")
	}

	resultCache, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer resultCache.Close()

	files := storage.NewLocalStorage(cfg.Uploads)

	reg := registry.New(
		registry.WithLogger(logger),
		registry.WithCache(resultCache, cfg.Cache.TTL),
		registry.WithTaskTimeout(cfg.Services.TaskTimeout),
	)
	err = services.Register(reg, cfg, services.Deps{
		Storage: files,
		Opener:  pdf.NewOpener(),
		OCR:     ocr.New(),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("register services: %w", err)
	}
	if err := reg.LoadAll(ctx); err != nil {
		// Services retry loading on first use.
		logger.Warn().Err(err).Msg("Some services failed to load")
	}

	router := api.NewRouter(api.Deps{
		Logger:   logger,
		Registry: reg,
		Files:    files,
		Uploads:  storage.NewUploadRepository(db),
		DB:       db,
		Cache:    resultCache,
		Server:   cfg.Server,
		Auth:     cfg.Auth,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Int("services", reg.Len()).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
			return srv.Close()
		}
		return nil
	})

	return g.Wait()
}
