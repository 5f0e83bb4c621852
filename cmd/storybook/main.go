// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the storybook server.
// It loads configuration, connects to services, sets up routing, starts the
// purge scheduler, and runs the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storybook/internal/assets"
	"storybook/internal/cache"
	"storybook/internal/config"
	"storybook/internal/database"
	"storybook/internal/handlers"
	"storybook/internal/middleware"
	"storybook/internal/router"
	"storybook/internal/storage"
	"storybook/internal/store"
	"storybook/internal/uploads"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON elsewhere.
	var logHandler slog.Handler
	if cfg.IsDev() {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(logHandler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"storage", cfg.StorageRoot,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed the demo template (no-op if templates already exist).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	templateStore := store.NewTemplateStore(db)
	storyStore := store.NewStoryStore(db)
	mappingStore := store.NewAssetMappingStore(db)

	resolverOpts := []assets.Option{
		assets.WithLogger(slog.Default()),
		assets.WithMappings(mappingStore),
	}

	// Valkey caches directory-scan hits. Resolution works without it.
	if cfg.ValkeyHost != "" {
		valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Warn("valkey unavailable, resolution cache disabled", "error", err)
		} else {
			defer valkeyClient.Close()
			resolverOpts = append(resolverOpts,
				assets.WithCache(cache.NewResolutionCache(valkeyClient, cache.DefaultResolutionTTL, slog.Default())))
		}
	}

	// Storage directories are created once here.
	dirs := cfg.AssetDirs()
	resolver, err := assets.NewResolver(dirs, resolverOpts...)
	if err != nil {
		slog.Error("failed to prepare storage directories", "error", err)
		os.Exit(1)
	}

	// Object storage for finished books (optional).
	var publisher handlers.Publisher
	storageClient, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.S3PublicURL,
	)
	switch {
	case err != nil:
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	case storageClient != nil:
		publisher = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", storageClient.Bucket())
	default:
		slog.Warn("s3 storage not configured, books are served locally only")
	}

	api := handlers.NewAPI(handlers.Deps{
		Templates:      templateStore,
		Stories:        storyStore,
		Resolver:       resolver,
		Uploader:       uploads.NewSaver(dirs.RecentUploads, cfg.MaxUploadBytes(), mappingStore),
		Publisher:      publisher,
		PublicBaseURL:  cfg.PublicBaseURL,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		PurgeMaxAge:    cfg.PurgeMaxAgeDays,
	})

	// Story generation is budgeted per client and template, apart from uploads.
	uploadLimiter := middleware.NewRateLimiter(middleware.Budget{
		Name:   "uploads",
		Limit:  cfg.UploadRateLimit,
		Window: cfg.RateLimitWindow,
	})
	defer uploadLimiter.Stop()
	storyLimiter := middleware.NewRateLimiter(middleware.Budget{
		Name:   "stories",
		Limit:  cfg.StoryRateLimit,
		Window: cfg.RateLimitWindow,
		Key:    middleware.ClientAndJSONField("templateId"),
	})
	defer storyLimiter.Stop()

	r := router.New(api, dirs, router.Limits{Uploads: uploadLimiter, Stories: storyLimiter})

	// Background purge of stale recent uploads.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go assets.NewPurger(resolver, cfg.PurgeInterval, cfg.PurgeMaxAgeDays).Run(ctx)

	// WriteTimeout must accommodate story generation, which renders every
	// page of a book.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
