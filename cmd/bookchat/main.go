// Package main is the entry point for the book chat relay server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bookchat/config"
	"bookchat/internal/books"
	"bookchat/internal/logging"
	"bookchat/internal/ratelimit"
	"bookchat/internal/relay"
	"bookchat/internal/server"
	"bookchat/internal/tools"
	"bookchat/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Optional .env for local development; env vars win either way
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log.Level)

	slog.Info("starting bookchat",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	// Rate-limit store: shared Redis when configured, per-process otherwise
	var store ratelimit.Store
	if cfg.Redis.URL != "" {
		redisStore, err := ratelimit.NewRedisStore(cfg.Redis.URL, ratelimit.DefaultRedisTTL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		store = redisStore
		slog.Info("rate limiter using redis store")
	} else {
		store = ratelimit.NewMemoryStore()
		slog.Info("rate limiter using in-memory store")
	}
	defer func() {
		_ = store.Close() //nolint:errcheck
	}()

	limiter := ratelimit.New(store, ratelimit.Config{
		MinDelay: cfg.RateLimit.MinDelay,
		Window:   cfg.RateLimit.Window,
		Ceiling:  cfg.RateLimit.Ceiling,
	})

	if cfg.Books.APIKey == "" {
		slog.Warn("GOOGLE_BOOKS_API_KEY not set - book tools will fail until configured")
	}
	catalog := books.New(cfg.Books.APIKey)

	registry := tools.NewRegistry(
		tools.NewSearchBooksTool(catalog),
		tools.NewBookDetailsTool(catalog),
	)

	modelRelay, err := relay.New(relay.Config{
		APIKey:  cfg.OpenRouter.APIKey,
		BaseURL: cfg.OpenRouter.BaseURL,
		Model:   cfg.OpenRouter.Model,
		Timeout: cfg.Server.RequestTimeout,
	}, registry)
	if err != nil {
		slog.Error("failed to initialize model relay", "error", err)
		os.Exit(1)
	}
	slog.Info("model relay configured", "model", modelRelay.Model())

	// Security check: warn if no master key is configured
	if cfg.Server.MasterKey == "" {
		slog.Warn("MASTER_KEY not set - server accepts unauthenticated requests")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	handler := server.NewHandler(limiter, modelRelay, catalog)
	srv := server.New(handler, &server.Config{
		MasterKey:      cfg.Server.MasterKey,
		MetricsEnabled: cfg.Server.MetricsEnabled,
	})

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slog.Info("starting server", "address", addr)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}
