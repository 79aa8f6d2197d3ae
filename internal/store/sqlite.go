package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database, sets file permissions, and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// Set pragmas for performance and safety.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	// Set file permissions to 0600.
	if err := os.Chmod(dsn, 0600); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("setting file permissions: %w", err)
	}

	// Run migrations.
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying database connection for migration commands.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) GetReport(ctx context.Context, spotID string) (*CachedReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT spot_id, payload, fetched_at, expires_at
		FROM forecast_cache
		WHERE spot_id = ?`, spotID)

	rec, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting cached report: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) PutReport(ctx context.Context, rec *CachedReport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forecast_cache (spot_id, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(spot_id) DO UPDATE SET
			payload=excluded.payload,
			fetched_at=excluded.fetched_at,
			expires_at=excluded.expires_at`,
		rec.SpotID, rec.Payload, rec.FetchedAt.UTC(), rec.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("saving cached report: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM forecast_cache WHERE expires_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging expired reports: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Shared helpers ---

type scanner interface {
	Scan(dest ...any) error
}

// parseTimestamp handles both time.Time and string timestamp values from SQLite.
func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05Z",
			"2006-01-02 15:04:05+00:00",
			"2006-01-02 15:04:05 +0000 UTC",
			"2006-01-02 15:04:05",
		} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", t)
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type: %T", v)
	}
}

func scanReport(row scanner) (*CachedReport, error) {
	var rec CachedReport
	var fetchedRaw, expiresRaw any
	if err := row.Scan(&rec.SpotID, &rec.Payload, &fetchedRaw, &expiresRaw); err != nil {
		return nil, err
	}
	var err error
	rec.FetchedAt, err = parseTimestamp(fetchedRaw)
	if err != nil {
		return nil, fmt.Errorf("parsing fetched_at: %w", err)
	}
	rec.ExpiresAt, err = parseTimestamp(expiresRaw)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	return &rec, nil
}
