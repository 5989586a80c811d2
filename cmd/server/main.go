package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/erauner12/groceries/internal/config"
	"github.com/erauner12/groceries/internal/db"
	"github.com/erauner12/groceries/internal/events"
	"github.com/erauner12/groceries/internal/httpapi"
	"github.com/erauner12/groceries/internal/repo"
)

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.LoadServerFromEnvironment()
	var noSeed bool

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Reference server for the shared grocery list",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noSeed {
				cfg.Seed = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			setupLogging(cfg.Env)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := run(ctx, cfg); err != nil {
				log.Error().Err(err).Msg("server failed")
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address")
	cmd.Flags().StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "postgres connection string (in-memory storage when empty)")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "do not seed default categories")
	return cmd
}

func setupLogging(environment string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "groceries-server").Logger()

	// Pretty logging for local dev
	if environment == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

func openRepository(ctx context.Context, cfg *config.ServerConfig) (repo.Repository, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, using in-memory storage")
		return repo.NewMemory(), func() {}, nil
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repo.NewPostgres(pool), pool.Close, nil
}

func rateLimitFromEnv() httpapi.RateLimitInfo {
	perMinute, err := strconv.Atoi(env("GROCERIES_RATE_LIMIT", "0"))
	if err != nil || perMinute <= 0 {
		return httpapi.RateLimitInfo{}
	}
	burst := perMinute / 5
	if burst < 1 {
		burst = 1
	}
	return httpapi.RateLimitInfo{WindowSeconds: 60, MaxRequests: perMinute, Burst: burst}
}

func run(ctx context.Context, cfg *config.ServerConfig) error {
	store, closeStore, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Seed {
		n, err := store.SeedCategories(ctx)
		if err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		if n > 0 {
			log.Info().Int("count", n).Msg("seeded default categories")
		}
	}

	hub := events.NewHub()
	srv := &httpapi.Server{
		Repo:            store,
		Hub:             hub,
		RateLimitConfig: rateLimitFromEnv(),
	}

	httpServer := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     srv.Routes(),
		ReadTimeout: 15 * time.Second,
		// Push streams clear their own write deadline.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	// Open push streams would otherwise hold Shutdown until its timeout.
	httpServer.RegisterOnShutdown(hub.Close)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
	return nil
}
