package client

import (
	"errors"
	"fmt"
	"time"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code. This prevents
// unbounded memory usage when a large response arrives with a
// wrong status.
const maxErrBodySize = 4 << 10 // 4KB

const (
	// DefaultRetries is the number of attempts made by [Client.Get] and [Client.DownloadFile].
	DefaultRetries = 5
	// DefaultSleep is the fixed delay between attempts.
	DefaultSleep = 3 * time.Second
	// DefaultAttemptTimeout bounds a single attempt.
	DefaultAttemptTimeout = 30 * time.Second
)

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrAttemptTimeout marks an attempt cut off by its attempt timeout,
	// either waiting for headers or stalled while streaming the body.
	ErrAttemptTimeout = errors.New("attempt timed out")
)

// UnexpectedStatusError is returned when the HTTP response status code
// is not in the 2xx range.
type UnexpectedStatusError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d for %s, body: %s", e.Err, e.StatusCode, e.URL, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}
