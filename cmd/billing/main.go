// Command billing uploads a shipment workbook to the billing server and
// saves the priced workbook it returns.
//
//	billing -file shipments.xlsx -courier franch -out ./billing
//
// Without -courier an interactive picker lists the configured couriers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/courierbill/internal/application"
	"github.com/JonMunkholm/courierbill/internal/client"
	"github.com/JonMunkholm/courierbill/internal/config"
	"github.com/JonMunkholm/courierbill/internal/logging"
	"github.com/JonMunkholm/courierbill/internal/objectstore"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes one submission. Its outcome is always printed as a status
// line on stdout; configuration problems go to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}

	fs := flag.NewFlagSet("billing", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		filePath = fs.String("file", "", "shipment workbook to upload (.xlsx)")
		courier  = fs.String("courier", "", "courier identifier; prompts when empty")
		outDir   = fs.String("out", cfg.OutputDir, "directory for the priced workbook")
		endpoint = fs.String("endpoint", cfg.Endpoint, "billing server base URL")
		archive  = fs.Bool("archive", cfg.Archive.Enabled, "also archive the result in object storage")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.OutputDir = *outDir
	cfg.Endpoint = *endpoint
	cfg.Archive.Enabled = *archive
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}

	logging.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	if *courier == "" {
		picked, err := application.PickCourier(cfg.Couriers)
		if err != nil {
			if !errors.Is(err, application.ErrCancelled) {
				fmt.Fprintln(stderr, err)
			}
			return err
		}
		*courier = picked
	}

	sink, err := buildSink(ctx, cfg, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}

	controller := &client.Controller{
		Transport: &client.HTTPTransport{Endpoint: cfg.Endpoint, APIKey: cfg.APIKey},
		Sink:      sink,
		Display:   client.NewConsoleDisplay(stdout),
	}

	sel, err := selection(*filePath, *courier)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}

	err = controller.Submit(ctx, sel)
	if err != nil {
		slog.Debug("submission failed", "courier", *courier, "error", err)
	}
	return err
}

// selection reads the chosen file. An empty path means nothing was chosen.
func selection(path, courier string) (client.Selection, error) {
	sel := client.Selection{Courier: courier}
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read %s: %w", path, err)
	}
	sel.File = &client.File{Name: filepath.Base(path), Data: data}
	return sel, nil
}

func buildSink(ctx context.Context, cfg *config.ClientConfig, stdout io.Writer) (client.Sink, error) {
	dir := &client.DirSink{
		Dir:   cfg.OutputDir,
		Saved: func(path string) { fmt.Fprintf(stdout, "saved %s\n", path) },
	}
	if !cfg.Archive.Enabled {
		return dir, nil
	}

	store, err := objectstore.New(objectstore.Config{
		Endpoint:  cfg.Archive.Endpoint,
		Bucket:    cfg.Archive.Bucket,
		UseSSL:    cfg.Archive.UseSSL,
		AccessKey: cfg.Archive.AccessKey,
		SecretKey: cfg.Archive.SecretKey,
		Timeout:   cfg.Archive.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return client.MultiSink{dir, &client.ObjectSink{Store: store}}, nil
}
