package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/artifetch/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
	tracer            trace.Tracer
	sleep             SleepFunc
	attemptTimeout    time.Duration
}

// WithClient replaces the default [http.Client] used by the [Client].
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
// It bounds streamed downloads as well, so prefer [WithAttemptTimeout] for
// per-request limits.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
// A positive maxPause lets the throttle sleep until an exhausted API quota resets, capped at maxPause.
func WithThrottle(rps, burst int, maxPause time.Duration) Option {
	return func(c *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		if maxPause < 0 {
			return errors.New("max pause must not be negative")
		}
		c.throttle = &throttle.Config{RPS: rps, Burst: burst, MaxPause: maxPause}
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithTracer records a span for every request attempt.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		c.tracer = tracer
		return nil
	}
}

// WithSleepFunc replaces the function used to wait between retries.
func WithSleepFunc(fn SleepFunc) Option {
	return func(c *options) error {
		if fn == nil {
			return errors.New("sleep func must not be nil")
		}
		c.sleep = fn
		return nil
	}
}

// WithDefaultAttemptTimeout changes the attempt timeout used when a call
// does not pass [WithAttemptTimeout], including [Client.DownloadFile].
func WithDefaultAttemptTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d <= 0 {
			return errors.New("attempt timeout must be positive")
		}
		c.attemptTimeout = d
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// SleepFunc waits for d or until ctx ends, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default [SleepFunc].
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetOption is a functional option for [Client.Get].
type GetOption func(opts *getOpts) error

type getOpts struct {
	retries int
	sleep   time.Duration
	timeout time.Duration
	stream  bool
	headers http.Header
}

func defaultGetOpts() getOpts {
	return getOpts{
		retries: DefaultRetries,
		sleep:   DefaultSleep,
		timeout: DefaultAttemptTimeout,
	}
}

// WithRetries sets the number of attempts made before giving up.
func WithRetries(n int) GetOption {
	return func(opts *getOpts) error {
		if n < 1 {
			return fmt.Errorf("retries[%d] must be at least one", n)
		}
		opts.retries = n
		return nil
	}
}

// WithSleep sets the fixed delay between attempts.
func WithSleep(d time.Duration) GetOption {
	return func(opts *getOpts) error {
		if d < 0 {
			return errors.New("sleep must not be negative")
		}
		opts.sleep = d
		return nil
	}
}

// WithAttemptTimeout bounds a single attempt. For streamed requests it
// covers the wait for the response headers and then each body read.
func WithAttemptTimeout(d time.Duration) GetOption {
	return func(opts *getOpts) error {
		if d <= 0 {
			return errors.New("attempt timeout must be positive")
		}
		opts.timeout = d
		return nil
	}
}

// WithStream leaves the response body unread so the caller can stream it.
// The caller must close the body.
func WithStream() GetOption {
	return func(opts *getOpts) error {
		opts.stream = true
		return nil
	}
}

// WithHeaders adds custom headers to every attempt. It may be given more
// than once; values accumulate.
func WithHeaders(headers http.Header) GetOption {
	return func(opts *getOpts) error {
		if opts.headers == nil {
			opts.headers = make(http.Header, len(headers))
		}
		for k, v := range headers {
			for _, element := range v {
				opts.headers.Add(k, element)
			}
		}
		return nil
	}
}
