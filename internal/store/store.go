// Package store persists weather samples in an append-only SQLite table.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

var (
	//go:embed sql/insert-sample.sql
	insertSampleSQL string

	//go:embed sql/recent-samples.sql
	recentSamplesSQL string

	//go:embed sql/count-samples.sql
	countSamplesSQL string
)

// ErrNegativeLimit is returned by MostRecent for n < 0. It does not wrap
// domain.ErrStoreUnavailable.
var ErrNegativeLimit = errors.New("negative sample limit")

// Options configures how the sample database is opened.
type Options struct {
	Path         string
	MaxOpenConns int
	// LogSQL routes every statement through a debug-level logging connector.
	LogSQL bool
}

// Store is the durable, append-only sample log. It is safe for concurrent
// use: appends are serialized, reads see only committed samples.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// appendMu serializes writers so ids are assigned in append order.
	appendMu sync.Mutex
}

// Open opens (creating if needed) the SQLite file at opts.Path and verifies
// connectivity. Call Initialize before the first Append.
func Open(opts Options, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn, err := buildDSN(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	var db *sql.DB
	if opts.LogSQL {
		db = sql.OpenDB(NewLoggingConnector(dsn, logger))
	} else {
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("%w: db open: %w", domain.ErrStoreUnavailable, err)
		}
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: db ping: %w", domain.ErrStoreUnavailable, err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Initialize applies pending schema migrations. It is idempotent.
func (s *Store) Initialize(ctx context.Context) error {
	if err := migrate(ctx, s.db, s.logger); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Append persists sample and returns its assigned id. Ids strictly increase
// in append order.
func (s *Store) Append(ctx context.Context, sample domain.WeatherSample) (int64, error) {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	res, err := s.db.ExecContext(ctx, insertSampleSQL,
		sample.Timestamp,
		sample.Temperature,
		sample.WindSpeed,
		sample.WindDirection,
		sample.Pressure,
		sample.PrecipitationType,
		sample.PrecipitationAmount,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: insert sample: %w", domain.ErrStoreUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: last insert id: %w", domain.ErrStoreUnavailable, err)
	}
	return id, nil
}

// MostRecent returns up to n samples, newest first. n == 0 yields an empty
// slice; n < 0 fails with ErrNegativeLimit.
func (s *Store) MostRecent(ctx context.Context, n int) (samples []domain.WeatherSample, err error) {
	if n < 0 {
		return nil, fmt.Errorf("most recent %d: %w", n, ErrNegativeLimit)
	}
	if n == 0 {
		return []domain.WeatherSample{}, nil
	}

	rows, err := s.db.QueryContext(ctx, recentSamplesSQL, n)
	if err != nil {
		return nil, fmt.Errorf("%w: query recent samples: %w", domain.ErrStoreUnavailable, err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close rows: %w", domain.ErrStoreUnavailable, cerr)
		}
	}()

	samples = make([]domain.WeatherSample, 0, n)
	for rows.Next() {
		var ws domain.WeatherSample
		if err := rows.Scan(
			&ws.ID,
			&ws.Timestamp,
			&ws.Temperature,
			&ws.WindSpeed,
			&ws.WindDirection,
			&ws.Pressure,
			&ws.PrecipitationType,
			&ws.PrecipitationAmount,
		); err != nil {
			return nil, fmt.Errorf("%w: scan sample: %w", domain.ErrStoreUnavailable, err)
		}
		samples = append(samples, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate samples: %w", domain.ErrStoreUnavailable, err)
	}
	return samples, nil
}

// Count returns the number of stored samples.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, countSamplesSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count samples: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// CheckReadiness reports whether the database still answers.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the database handle. Safe to call on a nil Store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildDSN(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("empty sqlite path")
	}

	if !strings.HasPrefix(path, "file:") {
		dir := filepath.Dir(path)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
