package upstream

import (
	"errors"
	"fmt"
)

// Error wraps a failure from an upstream provider with enough context to
// tell rate limiting apart from outages in logs and metrics.
type Error struct {
	Provider string
	Status   int // HTTP status, 0 when the request never completed
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrRateLimited is wrapped into an Error when a provider returns 429.
var ErrRateLimited = errors.New("rate limited")

// IsRateLimited reports whether err is a provider 429.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
