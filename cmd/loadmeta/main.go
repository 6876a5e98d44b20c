// Command loadmeta downloads the NOAA station history and inventory
// files, derives per-year quality grades, and loads everything into the
// metadata database used by isdd and isdfetch.
//
// Usage:
//
//	loadmeta -db postgres://localhost:5432/isd
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/isd-ingest/internal/adapter/noaa"
	"github.com/couchcryptid/isd-ingest/internal/adapter/postgres"
	"github.com/couchcryptid/isd-ingest/internal/fetch"
	"github.com/couchcryptid/isd-ingest/internal/station"
)

const (
	historyPath   = "/pub/data/noaa/isd-history.csv"
	inventoryPath = "/pub/data/noaa/isd-inventory.csv"
)

func main() {
	var (
		dsn     = flag.String("db", envOr("DATABASE_URL", "postgres://localhost:5432/isd?sslmode=disable"), "metadata database URL")
		baseURL = flag.String("base-url", "", "NOAA archive base URL")
		dataDir = flag.String("data-dir", "", "local archive mirror; takes precedence over -base-url")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	var transport fetch.Transport
	if *dataDir != "" {
		transport = noaa.NewDirTransport(*dataDir)
	} else {
		transport = noaa.NewHTTPTransport(*baseURL, nil)
	}

	store, err := postgres.New(ctx, *dsn)
	if err != nil {
		fatal(logger, "connect to metadata store", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		fatal(logger, "ensure schema", err)
	}

	logger.Info("downloading station history", "path", historyPath)
	stations, err := loadHistory(ctx, transport)
	if err != nil {
		fatal(logger, "load station history", err)
	}
	if err := store.UpsertStations(ctx, stations); err != nil {
		fatal(logger, "store stations", err)
	}
	logger.Info("stations loaded", "count", len(stations))

	known := make(map[string]bool, len(stations))
	for _, st := range stations {
		known[st.USAFID] = true
	}

	logger.Info("downloading file inventory", "path", inventoryPath)
	counts, err := loadInventory(ctx, transport, known)
	if err != nil {
		fatal(logger, "load file inventory", err)
	}
	if err := store.UpsertFileCounts(ctx, counts); err != nil {
		fatal(logger, "store file counts", err)
	}
	logger.Info("file counts loaded", "count", len(counts))
}

func loadHistory(ctx context.Context, transport fetch.Transport) ([]station.Station, error) {
	rc, err := transport.Open(ctx, historyPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return station.ParseHistory(rc)
}

func loadInventory(ctx context.Context, transport fetch.Transport, known map[string]bool) ([]station.FileCount, error) {
	rc, err := transport.Open(ctx, inventoryPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return station.ParseInventory(rc, func(usafID string) bool { return known[usafID] }, time.Now().UTC())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
