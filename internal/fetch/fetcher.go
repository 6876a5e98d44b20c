// Package fetch orchestrates the retrieval and decoding of station data
// files: it resolves filenames through the station inventory, streams
// each file through a transport, parses every line, and assembles the
// results into records or a rolled-up table.
package fetch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/couchcryptid/isd-ingest/internal/isd"
)

// Transport opens one archive file as a plain-text stream, transparently
// decompressing by filename suffix.
type Transport interface {
	Open(ctx context.Context, filename string) (io.ReadCloser, error)
}

// Resolver maps a station-year to its archive filenames.
type Resolver interface {
	Filenames(ctx context.Context, usafID string, year int) ([]string, error)
}

type Fetcher struct {
	resolver  Resolver
	transport Transport
	logger    *slog.Logger
}

func New(resolver Resolver, transport Transport, logger *slog.Logger) *Fetcher {
	return &Fetcher{resolver: resolver, transport: transport, logger: logger}
}

// FetchRecords retrieves and parses every data file for the station and
// years, returning records ordered by observation time. Any transport
// or parse failure aborts the whole fetch; a parse failure carries the
// filename and line number it happened on.
func (f *Fetcher) FetchRecords(ctx context.Context, usafID string, years []int) ([]isd.Record, error) {
	var records []isd.Record
	for _, year := range years {
		names, err := f.resolver.Filenames(ctx, usafID, year)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			recs, err := f.fetchFile(ctx, name)
			if err != nil {
				return nil, err
			}
			records = append(records, recs...)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Control.Timestamp.Before(records[j].Control.Timestamp)
	})
	return records, nil
}

func (f *Fetcher) fetchFile(ctx context.Context, filename string) ([]isd.Record, error) {
	rc, err := f.transport.Open(ctx, filename)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	f.logger.Debug("parsing data file", slog.String("filename", filename))

	var records []isd.Record
	scanner := bufio.NewScanner(rc)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if len(text) == 0 {
			continue
		}
		rec, err := isd.ParseLine(text)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filename, line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return records, nil
}
