package store

import (
	"context"
	"time"
)

// Store defines the interface for the shared forecast cache.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	// GetReport retrieves the cached report for a spot. A miss returns
	// (nil, nil). Expired rows are returned as-is; freshness is the
	// caller's check, via Expired.
	GetReport(ctx context.Context, spotID string) (*CachedReport, error)

	// PutReport stores a report. Upserts on spot_id.
	PutReport(ctx context.Context, rec *CachedReport) error

	// PurgeExpired deletes rows whose expiry is before the cutoff and
	// reports how many were removed.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)

	// Close closes the database connection.
	Close() error
}

// CachedReport is the database model for one spot's cached forecast.
// Payload is the serialized report; the store does not interpret it.
type CachedReport struct {
	SpotID    string
	Payload   []byte
	FetchedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the row's TTL had passed at the given instant.
func (r *CachedReport) Expired(at time.Time) bool {
	return at.After(r.ExpiresAt)
}
