package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/slr/slrgo/internal/api"
	"github.com/slr/slrgo/internal/cpf"
	"github.com/slr/slrgo/internal/metrics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the prediction HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			authCfg, err := loadAuthConfig(logger)
			if err != nil {
				return err
			}
			cfg := loadServeConfig(logger)

			store := cpf.NewStore()
			cache := cpf.NewCache(cfg.CacheDir, cfg.MaxFiles)

			// Attempt to load cached CPF data on startup.
			data, ts, err := cache.LoadLatest()
			if err != nil {
				logger.Info("no CPF cache found, starting without ephemeris data", "error", err)
			} else {
				targets, err := cpf.ParseBytes(data, logger)
				if err != nil {
					logger.Warn("failed to parse cached CPF data", "error", err)
				} else {
					store.Set(&cpf.Dataset{
						Source:    "cache",
						FetchedAt: ts,
						Targets:   targets,
					})
					metrics.SetEphemerisTargets(len(targets))
					logger.Info("loaded CPF data from cache",
						"targets", len(targets), "cached_at", ts.Format(time.RFC3339))
				}
			}

			eng := newEngine(logger, cfg.Workers)
			deps := api.Deps{
				TimeScale:  eng.ts,
				Store:      store,
				Generator:  eng.gen,
				Cache:      cache,
				TrustProxy: cfg.TrustProxy,
			}
			if cfg.EnableFetch {
				deps.Fetcher = cpf.NewFetcher(cfg.ArchiveURL)
			}

			srv := api.NewServer(cfg.Addr, logger, authCfg, deps)

			// Graceful shutdown on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Background goroutine to update the ephemeris age gauge.
			go func() {
				ticker := time.NewTicker(10 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						age := store.AgeSeconds()
						if age >= 0 {
							metrics.SetEphemerisAge(age)
						}
					case <-ctx.Done():
						return
					}
				}
			}()

			go func() {
				logger.Info("starting server",
					"addr", cfg.Addr,
					"auth_enabled", authCfg.Enabled,
					"fetch_enabled", cfg.EnableFetch,
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server listen error", "error", err)
					os.Exit(1)
				}
			}()

			<-ctx.Done()
			logger.Info("shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", "error", err)
				return err
			}

			logger.Info("server stopped")
			return nil
		},
	}
}
