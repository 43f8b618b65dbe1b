package ghapi

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Option is a functional option for configuring an [API] via [New].
type Option func(*API) error

// WithTokenProvider sets where credentials come from on escalation.
func WithTokenProvider(p TokenProvider) Option {
	return func(a *API) error {
		if p == nil {
			return errors.New("token provider must not be nil")
		}
		a.tokens = p
		return nil
	}
}

// WithPresetToken attaches token to every request up front.
// An empty token is ignored.
func WithPresetToken(token string) Option {
	return func(a *API) error {
		a.preset = token
		return nil
	}
}

// WithRetries sets how many attempts are made in each auth state.
func WithRetries(n int) Option {
	return func(a *API) error {
		if n < 1 {
			return fmt.Errorf("retries[%d] must be at least one", n)
		}
		a.retries = n
		return nil
	}
}

// WithSleep sets the fixed delay between attempts.
func WithSleep(d time.Duration) Option {
	return func(a *API) error {
		if d < 0 {
			return errors.New("sleep must not be negative")
		}
		a.sleep = d
		return nil
	}
}

// WithAttemptTimeout bounds a single request.
func WithAttemptTimeout(d time.Duration) Option {
	return func(a *API) error {
		if d <= 0 {
			return errors.New("attempt timeout must be positive")
		}
		a.timeout = d
		return nil
	}
}

// WithLogger overrides the logger inherited from the client.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		a.logger = logger
		return nil
	}
}
