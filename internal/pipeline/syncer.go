// Package pipeline runs the periodic sync loop that keeps the sink
// topic current with each watched station's newest observations.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/isd-ingest/internal/isd"
	"github.com/couchcryptid/isd-ingest/internal/observability"
)

// RecordFetcher retrieves a station's decoded records for a set of years.
type RecordFetcher interface {
	FetchRecords(ctx context.Context, usafID string, years []int) ([]isd.Record, error)
}

// RecordPublisher writes decoded records to the sink.
type RecordPublisher interface {
	PublishRecords(ctx context.Context, records []isd.Record) error
}

// Syncer re-fetches the current year's file for each watched station on
// an interval and publishes only the observations newer than the last
// published one. Archive files for a year grow in place, so each pass
// re-reads the file and trims against a per-station watermark.
type Syncer struct {
	fetcher   RecordFetcher
	publisher RecordPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock

	stations []string
	interval time.Duration

	ready      atomic.Bool
	watermarks map[string]time.Time
}

// New creates a Syncer over the given stations.
func New(
	fetcher RecordFetcher,
	publisher RecordPublisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	stations []string,
	interval time.Duration,
) *Syncer {
	return &Syncer{
		fetcher:    fetcher,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
		clock:      clock,
		stations:   stations,
		interval:   interval,
		watermarks: make(map[string]time.Time, len(stations)),
	}
}

// CheckReadiness returns nil once the first sync pass has completed.
func (s *Syncer) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("initial sync has not completed yet")
	}
	return nil
}

// Run executes the sync loop until the context is cancelled. The first
// pass starts immediately; later passes follow the ticker.
func (s *Syncer) Run(ctx context.Context) error {
	s.logger.Info("sync loop started",
		slog.Int("stations", len(s.stations)),
		slog.Duration("interval", s.interval),
	)
	s.metrics.SyncRunning.Set(1)
	defer s.metrics.SyncRunning.Set(0)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.syncAll(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync loop stopping", slog.Any("reason", ctx.Err()))
			return nil
		case <-ticker.Chan():
			s.syncAll(ctx)
		}
	}
}

// syncAll runs one pass over every station. A failing station is logged
// and skipped; the next tick retries it.
func (s *Syncer) syncAll(ctx context.Context) {
	start := s.clock.Now()
	for _, usafID := range s.stations {
		if ctx.Err() != nil {
			return
		}
		if err := s.syncStation(ctx, usafID); err != nil {
			s.metrics.Fetches.WithLabelValues("error").Inc()
			var ferr *isd.FormatError
			if errors.As(err, &ferr) {
				s.metrics.ParseErrors.Inc()
			}
			s.logger.Error("station sync failed",
				slog.String("usaf_id", usafID),
				slog.Any("error", err),
			)
			continue
		}
		s.metrics.Fetches.WithLabelValues("success").Inc()
	}
	s.metrics.SyncDuration.Observe(s.clock.Since(start).Seconds())
	s.ready.Store(true)
}

func (s *Syncer) syncStation(ctx context.Context, usafID string) error {
	year := s.clock.Now().UTC().Year()

	fetchStart := s.clock.Now()
	records, err := s.fetcher.FetchRecords(ctx, usafID, []int{year})
	if err != nil {
		return err
	}
	s.metrics.FetchDuration.Observe(s.clock.Since(fetchStart).Seconds())
	s.metrics.RecordsParsed.Add(float64(len(records)))

	fresh := afterWatermark(records, s.watermarks[usafID])
	if len(fresh) == 0 {
		s.logger.Debug("station up to date", slog.String("usaf_id", usafID))
		return nil
	}

	if err := s.publisher.PublishRecords(ctx, fresh); err != nil {
		return err
	}
	s.metrics.RecordsPublished.Add(float64(len(fresh)))

	last := fresh[len(fresh)-1].Control.Timestamp
	s.watermarks[usafID] = last
	s.logger.Info("station synced",
		slog.String("usaf_id", usafID),
		slog.Int("published", len(fresh)),
		slog.Time("watermark", last),
	)
	return nil
}

// afterWatermark keeps the records strictly newer than mark. Records
// arrive sorted, so this is a suffix.
func afterWatermark(records []isd.Record, mark time.Time) []isd.Record {
	for i, rec := range records {
		if rec.Control.Timestamp.After(mark) {
			return records[i:]
		}
	}
	return nil
}
