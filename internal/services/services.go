// Package services orchestrates the domain packages and storage ports for
// the HTTP API and the background workers.
package services

import (
	"errors"
	"time"
)

var (
	// ErrValidation wraps every input error, so callers can map it with
	// errors.Is while still reading the individual causes.
	ErrValidation = errors.New("validation failed")

	ErrSummaryNotAllowed  = errors.New("summary requests are not enabled for this user")
	ErrSummaryThrottled   = errors.New("summary already requested recently")
	ErrSummaryUnavailable = errors.New("summary requests are unavailable")
)

// Clock returns the current time. Services take one so tests can pin now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
