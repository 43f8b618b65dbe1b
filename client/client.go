// Package client exposes the retrying HTTP helpers used to fetch
// build artifacts and reports from a remote server.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/artifetch/client/download"
	"github.com/adamwoolhether/artifetch/client/throttle"
)

const tracerName = "github.com/adamwoolhether/artifetch/client"

// Client wraps the std-lib *http.Client
// It sets a default *http.Client and *http.Transport, which
// can be customized via optional funcs.
type Client struct {
	c              *http.Client
	logger         *slog.Logger
	tracer         trace.Tracer
	sleep          SleepFunc
	attemptTimeout time.Duration
}

func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		c:              &http.Client{},
		logger:         slog.Default(),
		tracer:         noop.NewTracerProvider().Tracer(tracerName),
		sleep:          Sleep,
		attemptTimeout: DefaultAttemptTimeout,
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		client.c = opts.client
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if opts.sleep != nil {
		client.sleep = opts.sleep
	}

	if opts.attemptTimeout > 0 {
		client.attemptTimeout = opts.attemptTimeout
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(*opts.throttle, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// Logger returns the logger the client was built with.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Sleep waits between attempts using the client's [SleepFunc].
func (c *Client) Sleep(ctx context.Context, d time.Duration) error {
	return c.sleep(ctx, d)
}

// Get issues a GET against rawURL, retrying any transport error or
// status >= 400 with a fixed delay. It makes [DefaultRetries] attempts
// unless told otherwise, and the last failure is returned wrapped.
// Non-streamed bodies are fully buffered before Get returns.
func (c *Client) Get(ctx context.Context, rawURL string, optFns ...GetOption) (*http.Response, error) {
	opts := defaultGetOpts()
	opts.timeout = c.attemptTimeout
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying get option: %w", err)
		}
	}

	logger := c.logger.With("fetch_id", uuid.NewString())
	logger.Info("getting url", "url", rawURL, "retries", opts.retries, "sleep", opts.sleep)

	var lastErr error
	for i := range opts.retries {
		resp, err := c.attempt(ctx, rawURL, i+1, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if i+1 < opts.retries {
			logger.Info("exception while getting, retrying", "error", err, "retry", i+1)
			if err := c.sleep(ctx, opts.sleep); err != nil {
				return nil, fmt.Errorf("waiting to retry %s: %w", rawURL, errors.Join(err, lastErr))
			}
		}
	}

	return nil, fmt.Errorf("get %s: %w", rawURL, lastErr)
}

// DownloadFile streams rawURL into destPath, retrying the whole transfer.
// See [download.Run] for the skip, cleanup and progress rules.
func (c *Client) DownloadFile(ctx context.Context, rawURL, destPath string, optFns ...download.Option) error {
	get := func(ctx context.Context) (*http.Response, error) {
		return c.Get(ctx, rawURL, WithRetries(1), WithStream())
	}

	opts := slices.Concat([]download.Option{download.WithSleepFunc(download.SleepFunc(c.sleep))}, optFns)

	return download.Run(ctx, rawURL, destPath, get, c.logger, opts...)
}

// attempt wraps a single request in a span.
func (c *Client) attempt(ctx context.Context, rawURL string, n int, opts getOpts) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "client.get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("url", rawURL),
			attribute.Int("attempt", n),
		),
	)
	defer span.End()

	resp, err := c.do(ctx, rawURL, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("status", resp.StatusCode))

	return resp, nil
}

func (c *Client) do(ctx context.Context, rawURL string, opts getOpts) (*http.Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	var expired atomic.Bool
	timer := time.AfterFunc(opts.timeout, func() {
		expired.Store(true)
		cancel()
	})
	release := func() {
		timer.Stop()
		cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		release()
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for k, v := range opts.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.c.Do(req)
	if err != nil {
		release()
		if expired.Load() {
			return nil, fmt.Errorf("exec http do: %w after %s: %w", ErrAttemptTimeout, opts.timeout, err)
		}
		return nil, fmt.Errorf("exec http do: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer release()

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if err != nil {
			b = []byte("unable to read body")
		}
		c.closeBody(resp.Body)

		statusErr := ErrUnexpectedStatusCode
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			statusErr = errors.Join(ErrUnexpectedStatusCode, ErrAuthFailure)
		}

		return nil, &UnexpectedStatusError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Body:       string(b),
			Err:        statusErr,
		}
	}

	if opts.stream {
		timer.Stop()
		resp.Body = &idleTimeoutBody{
			ReadCloser: resp.Body,
			timer:      timer,
			timeout:    opts.timeout,
			expired:    &expired,
			cancel:     cancel,
		}
		return resp, nil
	}

	defer release()

	b, err := io.ReadAll(resp.Body)
	c.closeBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(b))

	return resp, nil
}

func (c *Client) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Error("failed to close response body", "error", err)
	}
}

// idleTimeoutBody cancels the attempt when a single Read of a streamed
// body blocks longer than timeout. Time spent between reads is not counted.
// Closing it releases the attempt context.
type idleTimeoutBody struct {
	io.ReadCloser
	timer   *time.Timer
	timeout time.Duration
	expired *atomic.Bool
	cancel  context.CancelFunc
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	b.timer.Reset(b.timeout)
	n, err := b.ReadCloser.Read(p)
	b.timer.Stop()

	if err != nil && !errors.Is(err, io.EOF) && b.expired.Load() {
		return n, fmt.Errorf("%w: no data for %s: %v", ErrAttemptTimeout, b.timeout, err)
	}

	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.timer.Stop()
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
