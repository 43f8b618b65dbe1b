package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config defines the throttler's
// Requests Per Second and Burst Rate.
// MaxPause caps how long an exhausted API quota may hold requests back;
// zero disables quota pauses.
type Config struct {
	RPS      int
	Burst    int
	MaxPause time.Duration
}

// throttle is an http.RoundTripper, using the time/rate token
// bucket limiter to restrict outbound calls.
type throttle struct {
	limiter  *rate.Limiter
	cfg      Config
	next     http.RoundTripper
	logFn    func() *slog.Logger
	now      func() time.Time
	mu       sync.Mutex
	resumeAt time.Time
}

// NewRoundTripper returns an http.RoundTripper that throttles outbound requests
// using a token bucket rate limiter. Each request takes exactly one token.
// logFn lazily resolves the logger at request time, making option ordering
// irrelevant; a nil-returning logFn disables logging.
func NewRoundTripper(cfg Config, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if cfg.RPS <= 0 || cfg.Burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", cfg.RPS, cfg.Burst, ErrMustNotBeZero)
	}
	if cfg.MaxPause < 0 {
		return nil, errors.New("max pause must not be negative")
	}

	t := &throttle{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cfg:     cfg,
		next:    next,
		logFn:   logFn,
		now:     time.Now,
	}

	return t, nil
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	logger := t.logFn()

	if pause := t.pause(); pause > 0 {
		if logger != nil {
			logger.Warn("api quota exhausted, pausing", "pause", pause.String(), "path", r.URL.Path)
		}

		timer := time.NewTimer(pause)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w during quota pause: %w", ErrContextEnded, ctx.Err())
		}
	}

	if err := t.wait(r, logger); err != nil {
		return nil, err
	}

	resp, err := t.next.RoundTrip(r)
	if err != nil {
		return nil, err
	}

	t.observe(resp)

	return resp, nil
}

// wait takes exactly one token for r, blocking until it is available.
func (t *throttle) wait(r *http.Request, logger *slog.Logger) error {
	ctx := r.Context()

	res := t.limiter.Reserve()
	if !res.OK() {
		return fmt.Errorf("%w: burst %d cannot cover a request", ErrWaitingFailed, t.cfg.Burst)
	}

	delay := res.Delay()
	if delay <= 0 {
		return nil
	}

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
		res.Cancel()
		return fmt.Errorf("%w: waiting %s would exceed context deadline", ErrWaitingFailed, delay)
	}

	if logger != nil {
		logger.Info("throttle tokens exhausted", "rate", t.cfg.RPS, "burst", t.cfg.Burst, "delay", delay.String(), "path", r.URL.Path)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	start := time.Now()
	select {
	case <-timer.C:
	case <-ctx.Done():
		res.Cancel()
		return fmt.Errorf("%w: %w", ErrWaitingFailed, ctx.Err())
	}

	if logger != nil {
		logger.Info("throttle wait complete", "waited", time.Since(start).String(), "rate", t.cfg.RPS, "burst", t.cfg.Burst)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return nil
}

// pause returns how long the next request must wait for the quota reset.
func (t *throttle) pause() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.resumeAt.IsZero() {
		return 0
	}

	d := t.resumeAt.Sub(t.now())
	if d <= 0 {
		t.resumeAt = time.Time{}
		return 0
	}

	return d
}

// observe records the quota reset announced by resp, if any.
func (t *throttle) observe(resp *http.Response) {
	if t.cfg.MaxPause == 0 {
		return
	}

	remaining, err := strconv.Atoi(resp.Header.Get(headerRemaining))
	if err != nil || remaining > 0 {
		return
	}

	reset, err := strconv.ParseInt(resp.Header.Get(headerReset), 10, 64)
	if err != nil {
		return
	}

	now := t.now()
	resumeAt := time.Unix(reset, 0)
	if limit := now.Add(t.cfg.MaxPause); resumeAt.After(limit) {
		resumeAt = limit
	}
	if !resumeAt.After(now) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if resumeAt.After(t.resumeAt) {
		t.resumeAt = resumeAt
	}
}
