// Command isdd runs the ISD ingest daemon: it periodically fetches new
// observations for the configured stations from the NOAA archive and
// publishes them to Kafka, while serving health, metrics, and station
// lookup endpoints over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/isd-ingest/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/isd-ingest/internal/adapter/kafka"
	"github.com/couchcryptid/isd-ingest/internal/adapter/noaa"
	"github.com/couchcryptid/isd-ingest/internal/adapter/postgres"
	"github.com/couchcryptid/isd-ingest/internal/config"
	"github.com/couchcryptid/isd-ingest/internal/fetch"
	"github.com/couchcryptid/isd-ingest/internal/observability"
	"github.com/couchcryptid/isd-ingest/internal/pipeline"
	"github.com/couchcryptid/isd-ingest/internal/station"
)

// directory joins the metadata store and the resolver into the HTTP
// server's station lookup surface.
type directory struct {
	*postgres.Store
	*station.Resolver
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to metadata store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	resolver := station.NewResolver(store, logger).WithGuessCounter(metrics.MetadataGuesses)

	var transport fetch.Transport
	if cfg.DataDir != "" {
		transport = noaa.NewDirTransport(cfg.DataDir)
		logger.Info("reading archive files from local mirror", "dir", cfg.DataDir)
	} else {
		transport = noaa.NewHTTPTransport(cfg.NOAABaseURL, nil)
	}

	fetcher := fetch.New(resolver, transport, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	syncer := pipeline.New(fetcher, writer, logger, metrics,
		clockwork.NewRealClock(), cfg.Stations, cfg.SyncInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, syncer, &directory{store, resolver}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start sync loop.
	go func() {
		if err := syncer.Run(ctx); err != nil {
			logger.Error("sync loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
