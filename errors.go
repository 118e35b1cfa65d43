package golokal

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ZaguanLabs/golokal/cache"
)

var (
	// ErrSyncInProgress is returned by Sync when another refresh is running.
	ErrSyncInProgress = errors.New("golokal: sync already in progress")

	// ErrDestroyed is returned by Sync after Destroy.
	ErrDestroyed = errors.New("golokal: client destroyed")
)

// CacheError is an alias to the cache package error type.
type CacheError = cache.Error

// ConfigError indicates an invalid client configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Message)
}

// FetchError indicates a failed request to the translations API.
type FetchError struct {
	Message    string
	Cause      error
	StatusCode int           // HTTP status, 0 for transport or decoding failures
	Retryable  bool          // Whether the request can be retried
	RetryAfter time.Duration // Server-requested wait from Retry-After, if any
}

func (e *FetchError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("fetch error: %s: %v", e.Message, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch error: %s: status %d", e.Message, e.StatusCode)
	default:
		return fmt.Sprintf("fetch error: %s", e.Message)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// newStatusError classifies a non-success response. Server errors and
// throttling are retryable, other client errors are not.
func newStatusError(message string, status int, header http.Header) *FetchError {
	return &FetchError{
		Message:    message,
		StatusCode: status,
		Retryable:  status >= http.StatusInternalServerError || status == http.StatusTooManyRequests,
		RetryAfter: parseRetryAfter(header.Get("Retry-After"), time.Now()),
	}
}

// parseRetryAfter accepts both delay-seconds and HTTP-date forms.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
