// Command isdfetch fetches observations for one station and prints them
// as CSV, optionally rolled up onto a regular period grid.
//
// Usage:
//
//	isdfetch -station 720534 -years 2021,2022 \
//	  -fields air_temperature,dew_point -drop-quality-codes \
//	  -period h -rollup starting -tz US/Mountain
//
// Station metadata comes from the database loaded by loadmeta. With
// -data-dir, archive files are read from a local mirror instead of the
// NOAA HTTP server.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/isd-ingest/internal/adapter/noaa"
	"github.com/couchcryptid/isd-ingest/internal/adapter/postgres"
	"github.com/couchcryptid/isd-ingest/internal/fetch"
	"github.com/couchcryptid/isd-ingest/internal/station"
	"github.com/couchcryptid/isd-ingest/internal/timeseries"
)

func main() {
	var (
		stationID        = flag.String("station", "", "USAF station identifier (required)")
		years            = flag.String("years", "", "comma-separated years to fetch (required)")
		fields           = flag.String("fields", "", "comma-separated observation groups to include; empty means all")
		exclude          = flag.String("exclude", "", "comma-separated observation groups to drop")
		period           = flag.String("period", "", "rollup period, e.g. h or 15min; empty keeps observation times")
		rollup           = flag.String("rollup", "", "rollup policy: starting, ending, midpoint or instant")
		noUpsample       = flag.Bool("no-upsample", false, "bucket raw samples without minute-level upsampling")
		includeControl   = flag.Bool("include-control", false, "include control section columns")
		dropQualityCodes = flag.Bool("drop-quality-codes", false, "drop quality code columns")
		tempScale        = flag.String("temp-scale", "", "keep only one temperature scale, C or F")
		tz               = flag.String("tz", "", "display timezone, e.g. US/Mountain; default UTC")
		dsn              = flag.String("db", envOr("DATABASE_URL", "postgres://localhost:5432/isd?sslmode=disable"), "metadata database URL")
		baseURL          = flag.String("base-url", "", "NOAA archive base URL")
		dataDir          = flag.String("data-dir", "", "local archive mirror; takes precedence over -base-url")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *stationID == "" || *years == "" {
		flag.Usage()
		os.Exit(2)
	}
	yearList, err := parseYears(*years)
	if err != nil {
		fatal(logger, "invalid -years", err)
	}

	ctx := context.Background()

	store, err := postgres.New(ctx, *dsn)
	if err != nil {
		fatal(logger, "connect to metadata store", err)
	}
	defer store.Close()

	var transport fetch.Transport
	if *dataDir != "" {
		transport = noaa.NewDirTransport(*dataDir)
	} else {
		transport = noaa.NewHTTPTransport(*baseURL, nil)
	}

	resolver := station.NewResolver(store, logger)
	fetcher := fetch.New(resolver, transport, logger)

	table, err := fetcher.FetchTable(ctx, *stationID, yearList, fetch.TableOptions{
		Fields:           splitList(*fields),
		Exclude:          splitList(*exclude),
		Period:           *period,
		Policy:           timeseries.Policy(*rollup),
		NoUpsample:       *noUpsample,
		IncludeControl:   *includeControl,
		DropQualityCodes: *dropQualityCodes,
		TempScale:        *tempScale,
		Timezone:         *tz,
	})
	if err != nil {
		fatal(logger, "fetch failed", err)
	}

	if err := writeCSV(os.Stdout, table); err != nil {
		fatal(logger, "write output", err)
	}
}

func writeCSV(f *os.File, table timeseries.Table) error {
	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"timestamp"}, table.ColumnNames()...)); err != nil {
		return err
	}

	row := make([]string, 1+len(table.Cols))
	for i := 0; i < table.Len(); i++ {
		row[0] = table.Index[i].Format(time.RFC3339)
		for j, c := range table.Cols {
			if c.IsNumeric() {
				row[j+1] = formatFloat(c.Floats[i])
			} else {
				row[j+1] = c.Strings[i]
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// formatFloat renders missing values as empty cells.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseYears(s string) ([]int, error) {
	var out []int
	for _, tok := range splitList(s) {
		y, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("year %q: %w", tok, err)
		}
		out = append(out, y)
	}
	return out, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
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
