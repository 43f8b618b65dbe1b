package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultAttempts is the number of times a download is tried.
	DefaultAttempts = 5
	// DefaultSleep is the delay between download attempts.
	DefaultSleep = 3 * time.Second

	chunkSize = 4096
	barWidth  = 50
)

var (
	// ErrFailed is matched by every [Error] returned once a download gives up.
	ErrFailed = errors.New("download failed")

	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrDownloadCancelled     = errors.New("download cancelled")
)

// Error reports a download that could not be completed.
// errors.Is matches both [ErrFailed] and the underlying cause.
type Error struct {
	URL    string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%v: %s: %v", ErrFailed, e.Detail, e.Err)
	}
	return fmt.Sprintf("%v: %s: %s: %v", ErrFailed, e.URL, e.Detail, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrFailed, e.Err}
}

// GetFunc performs a single streaming GET. The caller closes the body.
type GetFunc func(ctx context.Context) (*http.Response, error)

// SleepFunc waits for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

// contextReader stops a copy as soon as ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
