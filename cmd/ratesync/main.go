// Command ratesync loads courier rate tables from a YAML rate file into
// PostgreSQL, creating the tables when they do not exist.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/courierbill/internal/admin"
	"github.com/JonMunkholm/courierbill/internal/billing"
	"github.com/JonMunkholm/courierbill/internal/config"
	"github.com/JonMunkholm/courierbill/internal/logging"
	"github.com/JonMunkholm/courierbill/internal/rates"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("rate sync failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	path := flag.String("file", cfg.Rates.File, "YAML rate file to load")
	flag.Parse()

	if *path == "" {
		return fmt.Errorf("no rate file: pass -file or set RATES_FILE")
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	file, err := rates.ReadFile(*path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	syncer := &admin.RateSync{DB: pool}
	written, err := syncer.Sync(ctx, file, billing.RateTables())
	if err != nil {
		return err
	}

	var total int64
	for _, n := range written {
		total += n
	}
	slog.Info("rate sync complete", "file", *path, "tables", len(written), "rows", total)
	return nil
}
