package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/me/schedkit/internal/catalog"
	"github.com/me/schedkit/internal/config"
	"github.com/me/schedkit/internal/logging"
	"github.com/me/schedkit/internal/server"
	"github.com/me/schedkit/internal/store"
	flag "github.com/spf13/pflag"
)

func main() {
	cfg := config.DefaultServerConfig()
	limits := config.DefaultAnalysisConfig()

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, pretty)")
	flag.StringVar(&cfg.HealthLogLevel, "health-log-level", cfg.HealthLogLevel, "Level of health check request logs")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Database path (default ~/.schedkit/results.db)")
	flag.BoolVar(&cfg.Cache, "cache", cfg.Cache, "Cache results in the database")
	flag.IntVar(&cfg.MaxConcurrent, "max-concurrent", cfg.MaxConcurrent, "Analyses running at once (0: unlimited)")
	flag.StringVar(&cfg.APIKeysFile, "api-keys", cfg.APIKeysFile, "JSON file of API keys for the compute endpoints (also SCHEDKIT_API_KEYS)")
	flag.IntVar(&limits.MaxPoints, "max-points", limits.MaxPoints, "Time points a bounded analysis may evaluate (0: algorithm default)")
	flag.IntVar(&limits.MaxPeriods, "max-periods", limits.MaxPeriods, "Candidate periods a designer may try")
	noStore := flag.Bool("no-store", false, "Run without a database (no cache, no history)")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")

	flag.Parse()

	if *debug {
		cfg.LogLevel = "debug"
	}

	logger, err := logging.New(cfg.Logging(), os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	var serverOpts []server.Option

	if !*noStore {
		// Resolve database path.
		dbPath := cfg.DBPath
		if dbPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
				os.Exit(1)
			}
			dir := filepath.Join(home, ".schedkit")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", dir, err)
				os.Exit(1)
			}
			dbPath = filepath.Join(dir, "results.db")
		}

		// Open store and run migrations.
		st, err := store.NewSQLiteStore(dbPath, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		if err := st.Migrate(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
			os.Exit(1)
		}
		logger.Info("database ready", "path", dbPath, "cache", cfg.Cache)
		serverOpts = append(serverOpts, server.WithStore(st))
	}

	// Configure API key authentication.
	keys, err := server.LoadAPIKeys(cfg.APIKeysFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load api keys: %v\n", err)
		os.Exit(1)
	}
	if keys.Enabled() {
		serverOpts = append(serverOpts, server.WithAPIKeys(keys))
		logger.Info("api key authentication enabled", "keys", len(keys.Keys))
	} else {
		logger.Warn("no api keys configured; compute endpoints are open")
	}

	cat := catalog.New(logger, limits.CatalogOptions())
	logger.Info("catalog ready", "algorithms", len(cat.List()))

	srv := server.New(cfg, cat, logger, serverOpts...)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "max_concurrent", cfg.MaxConcurrent)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
