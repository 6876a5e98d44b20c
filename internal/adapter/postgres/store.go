// Package postgres stores station metadata and per-year file counts,
// backing the station.Inventory interface.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/isd-ingest/internal/station"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the metadata tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stations (
			usaf_id        TEXT PRIMARY KEY,
			wban_ids       TEXT NOT NULL,
			recent_wban_id TEXT NOT NULL,
			name           TEXT NOT NULL,
			icao_code      TEXT,
			latitude       DOUBLE PRECISION NOT NULL,
			longitude      DOUBLE PRECISION NOT NULL,
			elevation      DOUBLE PRECISION,
			state          TEXT
		);
		CREATE TABLE IF NOT EXISTS filecounts (
			usaf_id       TEXT NOT NULL REFERENCES stations (usaf_id),
			wban_id       TEXT NOT NULL,
			year          INTEGER NOT NULL,
			month_counts  INTEGER[] NOT NULL,
			count         INTEGER NOT NULL,
			n_zero_months INTEGER NOT NULL,
			quality       TEXT NOT NULL,
			PRIMARY KEY (usaf_id, wban_id, year)
		);
		CREATE INDEX IF NOT EXISTS filecounts_usaf_year ON filecounts (usaf_id, year);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) UpsertStations(ctx context.Context, stations []station.Station) error {
	batch := &pgx.Batch{}
	for _, st := range stations {
		batch.Queue(
			`INSERT INTO stations (usaf_id, wban_ids, recent_wban_id, name, icao_code, latitude, longitude, elevation, state)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (usaf_id) DO UPDATE SET
			   wban_ids = $2, recent_wban_id = $3, name = $4, icao_code = $5,
			   latitude = $6, longitude = $7, elevation = $8, state = $9`,
			st.USAFID, strings.Join(st.WBANIDs, ","), st.RecentWBANID, st.Name, st.ICAOCode,
			st.Latitude, st.Longitude, st.Elevation, st.State,
		)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range stations {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert station: %w", err)
		}
	}
	return nil
}

func (s *Store) UpsertFileCounts(ctx context.Context, counts []station.FileCount) error {
	batch := &pgx.Batch{}
	for _, fc := range counts {
		batch.Queue(
			`INSERT INTO filecounts (usaf_id, wban_id, year, month_counts, count, n_zero_months, quality)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (usaf_id, wban_id, year) DO UPDATE SET
			   month_counts = $4, count = $5, n_zero_months = $6, quality = $7`,
			fc.USAFID, fc.WBANID, fc.Year, fc.MonthCounts[:], fc.Count, fc.NZeroMonths, string(fc.Quality),
		)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range counts {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert filecount: %w", err)
		}
	}
	return nil
}

// Station implements station.Inventory.
func (s *Store) Station(ctx context.Context, usafID string) (station.Station, error) {
	var st station.Station
	var wbanIDs string
	err := s.pool.QueryRow(ctx,
		`SELECT usaf_id, wban_ids, recent_wban_id, name, icao_code, latitude, longitude, elevation, state
		 FROM stations
		 WHERE usaf_id = $1`,
		usafID,
	).Scan(&st.USAFID, &wbanIDs, &st.RecentWBANID, &st.Name, &st.ICAOCode,
		&st.Latitude, &st.Longitude, &st.Elevation, &st.State)
	if errors.Is(err, pgx.ErrNoRows) {
		return st, fmt.Errorf("station %s: %w", usafID, station.ErrNotFound)
	}
	if err != nil {
		return st, fmt.Errorf("load station %s: %w", usafID, err)
	}
	if wbanIDs != "" {
		st.WBANIDs = strings.Split(wbanIDs, ",")
	}
	return st, nil
}

// FileCounts implements station.Inventory. A zero year returns every
// known year for the station, oldest first.
func (s *Store) FileCounts(ctx context.Context, usafID string, year int) ([]station.FileCount, error) {
	query := `SELECT usaf_id, wban_id, year, month_counts, count, n_zero_months, quality
		 FROM filecounts
		 WHERE usaf_id = $1`
	args := []any{usafID}
	if year != 0 {
		query += ` AND year = $2`
		args = append(args, year)
	}
	query += ` ORDER BY year, wban_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load filecounts for %s: %w", usafID, err)
	}
	defer rows.Close()

	var result []station.FileCount
	for rows.Next() {
		var fc station.FileCount
		var months []int
		var quality string
		if err := rows.Scan(&fc.USAFID, &fc.WBANID, &fc.Year, &months, &fc.Count, &fc.NZeroMonths, &quality); err != nil {
			return nil, err
		}
		copy(fc.MonthCounts[:], months)
		fc.Quality = station.Quality(quality)
		result = append(result, fc)
	}
	return result, rows.Err()
}
