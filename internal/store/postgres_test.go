package store

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"
)

func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("SURFSEER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SURFSEER_TEST_POSTGRES_DSN not set; skipping postgres tests")
	}

	s, err := NewPostgresStore(dsn)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	// Clean the table before each test.
	ctx := context.Background()
	s.db.ExecContext(ctx, "DELETE FROM forecast_cache")

	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStore_PutAndGetReport(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	fetched := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	rec := makeReport("malibu", fetched, 30*time.Minute)

	if err := s.PutReport(ctx, rec); err != nil {
		t.Fatalf("PutReport: %v", err)
	}

	got, err := s.GetReport(ctx, "malibu")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got == nil {
		t.Fatal("GetReport returned nil for stored row")
	}
	if !bytes.Equal(got.Payload, rec.Payload) {
		t.Errorf("payload = %s", got.Payload)
	}
	if !got.FetchedAt.Equal(fetched) {
		t.Errorf("fetched_at = %v, want %v", got.FetchedAt, fetched)
	}
}

func TestPostgresStore_Upsert(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if err := s.PutReport(ctx, makeReport("malibu", t1, 30*time.Minute)); err != nil {
		t.Fatalf("first PutReport: %v", err)
	}

	t2 := t1.Add(time.Hour)
	if err := s.PutReport(ctx, makeReport("malibu", t2, 30*time.Minute)); err != nil {
		t.Fatalf("second PutReport: %v", err)
	}

	got, err := s.GetReport(ctx, "malibu")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if !got.FetchedAt.Equal(t2) {
		t.Errorf("fetched_at = %v, want updated %v", got.FetchedAt, t2)
	}
}

func TestPostgresStore_PurgeExpired(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.PutReport(ctx, makeReport("stale", now.Add(-2*time.Hour), 30*time.Minute))
	s.PutReport(ctx, makeReport("fresh", now, 30*time.Minute))

	n, err := s.PurgeExpired(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d rows, want 1", n)
	}
}
