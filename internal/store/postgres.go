package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed pgmigrations/*.sql
var pgMigrations embed.FS

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a PostgreSQL connection and runs migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	goose.SetBaseFS(pgMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "pgmigrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// DB returns the underlying database connection for migration commands.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) GetReport(ctx context.Context, spotID string) (*CachedReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT spot_id, payload, fetched_at, expires_at
		FROM forecast_cache
		WHERE spot_id = $1`, spotID)

	rec, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting cached report: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) PutReport(ctx context.Context, rec *CachedReport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forecast_cache (spot_id, payload, fetched_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT(spot_id) DO UPDATE SET
			payload=EXCLUDED.payload,
			fetched_at=EXCLUDED.fetched_at,
			expires_at=EXCLUDED.expires_at`,
		rec.SpotID, rec.Payload, rec.FetchedAt.UTC(), rec.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("saving cached report: %w", err)
	}
	return nil
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM forecast_cache WHERE expires_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging expired reports: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
