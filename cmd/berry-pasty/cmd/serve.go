package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GZTimeWalker/berry-pasty/cfg"
	"github.com/GZTimeWalker/berry-pasty/metrics"
	"github.com/GZTimeWalker/berry-pasty/svc/api"
	"github.com/GZTimeWalker/berry-pasty/svc/cache"
	"github.com/GZTimeWalker/berry-pasty/svc/db"
	"github.com/GZTimeWalker/berry-pasty/svc/lim"
	"github.com/GZTimeWalker/berry-pasty/svc/svc"
	"github.com/GZTimeWalker/berry-pasty/svc/util"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the berry-pasty HTTP API server. All settings come from the
environment; in development and test a .env file is loaded first.

Example:
  berry-pasty serve
  PORT=9000 berry-pasty serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadEnv()
		c, err := cfg.Load()
		if err != nil {
			util.Error().Err(err).Msg("failed to load configuration")
			return err
		}
		if err := cfg.Validate(c); err != nil {
			util.Error().Err(err).Msg("invalid configuration")
			return err
		}
		defer c.Wipe()
		if dbPath != "" {
			c.DatabasePath = dbPath
		}
		util.InitLog(c.LogLevel, c.Environment == "development")
		util.Info().Msg("starting berry-pasty API")
		metrics.Init()

		kv, err := db.OpenKV(c.DatabasePath)
		if err != nil {
			util.Error().Err(err).Msg("failed to open store")
			return err
		}
		defer kv.Close()
		util.Info().Str("path", c.DatabasePath).Msg("store opened")
		store := db.NewStore(kv)

		lruCache, err := cache.NewLRU(c.LRUCacheSize)
		if err != nil {
			util.Error().Err(err).Msg("failed to create LRU cache")
			return err
		}
		util.Info().Int("size", c.LRUCacheSize).Msg("LRU cache initialized")

		pastySvc := svc.NewPasty(store, lruCache, c)
		util.Info().Int("workers", c.WorkerPoolSize).Msg("pasty service initialized")

		limiter := lim.New(c.RateLimit.RPM, c.RateLimit.Burst, c.TrustedProxies)
		util.Info().
			Int("rpm", c.RateLimit.RPM).
			Int("burst", c.RateLimit.Burst).
			Strs("trusted_proxies", c.TrustedProxies).
			Msg("rate limiter initialized")

		server := api.NewServer(c, pastySvc, limiter, kv)

		quitSampler := make(chan struct{})
		go db.StartMetricsSampler(kv, c.StoreMetricsInterval, quitSampler)

		util.Info().Str("port", c.Port).Str("environment", c.Environment).Msg("server starting")
		go func() {
			if err := server.Start(); err != nil {
				util.Fatal().Err(err).Msg("server failed")
			}
		}()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		util.Info().Msg("shutting down gracefully...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			util.Error().Err(err).Msg("server shutdown error")
		}
		close(quitSampler)
		limiter.Stop()
		pastySvc.Shutdown()
		util.Info().Msg("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// loadEnv loads a .env file only in non-production environments.
func loadEnv() {
	env := os.Getenv("ENVIRONMENT")
	if env == "" || env == "development" || env == "test" {
		if err := godotenv.Load(); err != nil {
			util.Debug().Msg("no .env file found")
		}
	}
}
