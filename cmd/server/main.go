package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/JonMunkholm/courierbill/internal/billing"
	"github.com/JonMunkholm/courierbill/internal/config"
	"github.com/JonMunkholm/courierbill/internal/logging"
	"github.com/JonMunkholm/courierbill/internal/rates"
	"github.com/JonMunkholm/courierbill/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// warmTimeout bounds the initial load of all rate tables.
const warmTimeout = 30 * time.Second

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"rates_file", cfg.Rates.File,
		"rates_refresh", cfg.Rates.RefreshSchedule,
	)

	ctx := context.Background()

	var source rates.Source
	if cfg.Rates.File != "" {
		source = rates.NewFileStore(cfg.Rates.File)
		slog.Info("serving rates from file", "path", cfg.Rates.File)
	} else {
		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		source = rates.NewPgStore(pool)
	}

	// Without a refresh schedule every upload reads its rate table afresh.
	var cache *rates.Cache
	if cfg.Rates.RefreshSchedule != "" {
		cache = rates.NewCache(source)
		warm(ctx, cache)
		if err := cache.Start(cfg.Rates.RefreshSchedule); err != nil {
			slog.Error("failed to schedule rate refresh", "error", err)
			os.Exit(1)
		}
		source = cache
	}

	service := billing.NewService(source, billing.Options{
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		Timeout:       cfg.Upload.Timeout,
	})

	couriers := billing.Couriers()
	keys := make([]string, len(couriers))
	for i, c := range couriers {
		keys[i] = c.Key
	}
	slog.Info("couriers registered", "count", len(couriers), "keys", keys)

	server := web.NewServer(service, cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	slog.Info("server starting", "addr", cfg.Server.Addr())
	err = serve(server, service, sigCh, cfg.Server.ShutdownTimeout, func() {
		if cache != nil {
			cache.Stop()
		}
	})
	if err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

type httpServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

type jobTracker interface {
	Active() int
	WaitForDrain(ctx context.Context) error
}

// serve runs srv until a signal arrives on stop, then waits for in-flight
// billing jobs, shuts srv down and calls cleanup. It returns only once all
// of that has finished, or with Start's error if the server fails first.
func serve(srv httpServer, jobs jobTracker, stop <-chan os.Signal, timeout time.Duration, cleanup func()) error {
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Wait for running billing jobs to complete (with timeout)
	if active := jobs.Active(); active > 0 {
		slog.Info("waiting for billing jobs to complete", "active", active)
		if err := jobs.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("billing jobs did not complete in time", "error", err)
		} else {
			slog.Info("all billing jobs completed")
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// connect opens and verifies the rate database pool.
func connect(ctx context.Context, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbCfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(dbCfg.MaxConns)
	poolConfig.MinConns = int32(dbCfg.MinConns)
	poolConfig.MaxConnLifetime = dbCfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = dbCfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(dbCfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// warm loads every courier's rate table so the first uploads are not slowed
// down. Failures are logged; the table is retried on first use.
func warm(ctx context.Context, cache *rates.Cache) {
	ctx, cancel := context.WithTimeout(ctx, warmTimeout)
	defer cancel()

	for _, spec := range billing.RateTables() {
		if _, err := cache.Load(ctx, spec); err != nil {
			slog.Warn("rate table not loaded", "table", spec.Name, "error", err)
		}
	}
}
