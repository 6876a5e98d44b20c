// Package station models ISD weather stations and the per-year file
// inventory used to locate their data files on the NOAA archive.
package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotFound is returned by Inventory implementations when a station
// has no metadata record.
var ErrNotFound = errors.New("station not found")

// Quality grades a station-year by observation density.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Station is one weather station as described by the NOAA history file.
// A station keeps its USAF identifier for life but may move between
// WBAN identifiers; RecentWBANID is the one its newest files carry.
type Station struct {
	USAFID       string   `json:"usaf_id"`
	WBANIDs      []string `json:"wban_ids"`
	RecentWBANID string   `json:"recent_wban_id"`
	Name         string   `json:"name"`
	ICAOCode     string   `json:"icao_code,omitempty"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Elevation    *float64 `json:"elevation,omitempty"`
	State        string   `json:"state,omitempty"`
}

// FileCount summarizes one station-year data file: observation counts
// per month plus the derived quality grade.
type FileCount struct {
	USAFID      string  `json:"usaf_id"`
	WBANID      string  `json:"wban_id"`
	Year        int     `json:"year"`
	MonthCounts [12]int `json:"month_counts"`
	Count       int     `json:"count"`
	NZeroMonths int     `json:"n_zero_months"`
	Quality     Quality `json:"quality"`
}

// Inventory is the station metadata store. Implementations return
// ErrNotFound (possibly wrapped) when the station is unknown. A zero
// year asks for all years.
type Inventory interface {
	Station(ctx context.Context, usafID string) (Station, error)
	FileCounts(ctx context.Context, usafID string, year int) ([]FileCount, error)
}

// Filename returns the archive path of one station-year data file.
func Filename(usafID, wbanID string, year int) string {
	return fmt.Sprintf("/pub/data/noaa/%d/%s-%s-%d.gz", year, usafID, wbanID, year)
}

// GuessCounter counts filename guesses. Satisfied by a Prometheus
// counter.
type GuessCounter interface {
	Inc()
}

// Resolver answers filename and quality questions about stations on top
// of an Inventory.
type Resolver struct {
	inv     Inventory
	logger  *slog.Logger
	guesses GuessCounter
}

func NewResolver(inv Inventory, logger *slog.Logger) *Resolver {
	return &Resolver{inv: inv, logger: logger}
}

// WithGuessCounter reports each best-guess filename fallback to c.
func (r *Resolver) WithGuessCounter(c GuessCounter) *Resolver {
	r.guesses = c
	return r
}

// Filenames returns the data file paths for one station-year. When the
// inventory has no record for the year, it falls back to a single
// best-guess path built from the most recent WBAN identifier and warns,
// since the guessed file may not exist on the archive.
func (r *Resolver) Filenames(ctx context.Context, usafID string, year int) ([]string, error) {
	counts, err := r.inv.FileCounts(ctx, usafID, year)
	if err != nil {
		return nil, err
	}

	if len(counts) == 0 {
		st, err := r.inv.Station(ctx, usafID)
		if err != nil {
			return nil, err
		}
		guess := Filename(usafID, st.RecentWBANID, year)
		if r.guesses != nil {
			r.guesses.Inc()
		}
		r.logger.Warn("no inventory record for station year, guessing filename",
			slog.String("usaf_id", usafID),
			slog.Int("year", year),
			slog.String("filename", guess),
		)
		return []string{guess}, nil
	}

	names := make([]string, len(counts))
	for i, fc := range counts {
		names[i] = Filename(usafID, fc.WBANID, fc.Year)
	}
	return names, nil
}

// QualityReport returns the per-year observation counts and quality
// grades for a station. A zero year covers all known years.
func (r *Resolver) QualityReport(ctx context.Context, usafID string, year int) ([]FileCount, error) {
	return r.inv.FileCounts(ctx, usafID, year)
}
