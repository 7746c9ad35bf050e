package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/handsomefox/media-tracker/internal/auth"
	"github.com/handsomefox/media-tracker/internal/config"
	"github.com/handsomefox/media-tracker/internal/handlers"
	"github.com/handsomefox/media-tracker/internal/jikan"
	"github.com/handsomefox/media-tracker/internal/logger"
	"github.com/handsomefox/media-tracker/internal/respcache"
	"github.com/handsomefox/media-tracker/internal/store"
	"github.com/handsomefox/media-tracker/internal/tmdb"
	"github.com/handsomefox/media-tracker/internal/tracker"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, ctx.log)
		},
	}
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open db: %w", err)
			}
			ctx.log.Info("Schema is up to date", slog.String("path", cfg.Database.Path))
			return st.Close()
		},
	}
}

func tokenService(cfg *config.Config) auth.TokenService {
	return auth.TokenService{
		Secret: []byte(cfg.Auth.JWTSecret),
		Issuer: cfg.Auth.Issuer,
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("Failed to close DB", logger.Error(err))
		}
	}()

	svc := tracker.New(tracker.Options{
		Store: st,
		Anime: jikan.New(jikan.Options{
			BaseURL:           cfg.Jikan.BaseURL,
			Timeout:           cfg.Server.HTTPTimeout,
			RequestsPerSecond: cfg.Jikan.RatePerSecond,
			Burst:             cfg.Jikan.Burst,
		}),
		Screen: tmdb.New(tmdb.Options{
			BaseURL:   cfg.TMDB.BaseURL,
			APIKey:    cfg.TMDB.APIKey,
			ReadToken: cfg.TMDB.ReadToken,
			Timeout:   cfg.Server.HTTPTimeout,
		}),
		Cache:     respcache.New(cfg.Cache.TTL),
		ImageBase: cfg.TMDB.ImageBase,
		Logger:    log,
	})

	app, err := handlers.New(&handlers.Config{
		Service:     svc,
		Tokens:      tokenService(cfg),
		Health:      st,
		Logger:      log,
		Env:         cfg.Env,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening", slog.String("addr", server.Addr), slog.String("env", string(cfg.Env)))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
