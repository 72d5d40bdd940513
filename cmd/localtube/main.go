// Package main is the entry point for the localtube server: a
// single-tenant, local-first video-sharing core that keeps all state on
// the end device.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/localtube/localtube/internal/blobstore"
	"github.com/localtube/localtube/internal/config"
	"github.com/localtube/localtube/internal/handler"
	"github.com/localtube/localtube/internal/playback"
	"github.com/localtube/localtube/internal/snapshot"
	"github.com/localtube/localtube/internal/store"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	logger := newLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("git_commit", GitCommit).
		Msg("starting localtube")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, err := snapshot.New(ctx, cfg.Snapshot, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open snapshot store")
	}
	defer snapshots.Close()

	blobs, err := blobstore.New(cfg.Blobs, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open blob store")
	}

	st, err := store.New(ctx, snapshots, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize store")
	}

	engine := playback.NewEngine(blobs, st, playback.Config{
		ControlsHideDelay: cfg.Playback.ControlsHideDelay,
		ResolveTimeout:    cfg.Playback.ResolveTimeout,
		StagingDir:        cfg.Blobs.StagingDir,
	}, logger)
	defer engine.Close()

	var metrics *handler.Metrics
	if cfg.Metrics.Enabled {
		metrics = handler.NewMetrics()
	}

	api := handler.NewAPI(handler.APIConfig{
		Store:         st,
		Blobs:         blobs,
		Playback:      engine,
		Metrics:       metrics,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		MetricsPath:   cfg.Metrics.Path,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown incomplete")
	}
}

// newLogger builds the root logger from config.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	logger := log.Logger
	if cfg.Format == "console" {
		logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level)
}
