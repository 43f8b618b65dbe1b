// Package ghapi fetches from a code-hosting REST API anonymously first,
// switching to a bearer token once the API rate limits the caller or
// hides a resource behind a 404.
package ghapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/adamwoolhether/artifetch/client"
)

const authHeader = "Authorization"

// API issues GET requests with lazy authentication.
type API struct {
	client  *client.Client
	tokens  TokenProvider
	preset  string
	logger  *slog.Logger
	retries int
	sleep   time.Duration
	timeout time.Duration
}

// New builds an API on top of c. Without [WithTokenProvider] the
// provider reads GITHUB_TOKEN.
func New(c *client.Client, optFns ...Option) (*API, error) {
	if c == nil {
		return nil, errors.New("client must not be nil")
	}

	api := &API{
		client:  c,
		tokens:  EnvTokens{"GITHUB_TOKEN"},
		logger:  c.Logger(),
		retries: client.DefaultRetries,
		sleep:   client.DefaultSleep,
		timeout: client.DefaultAttemptTimeout,
	}

	for _, opt := range optFns {
		if err := opt(api); err != nil {
			return nil, fmt.Errorf("applying api option: %w", err)
		}
	}

	return api, nil
}

// Get fetches rawURL. header may be nil; a caller supplied
// Authorization header counts as an attached credential.
//
// A preset token is attached before the first attempt. Otherwise the
// first rate limited 403 or 404 pulls a token from the provider and
// restarts the attempt count without sleeping. Every other failure
// uses up one attempt.
func (a *API) Get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	header = header.Clone()
	if header == nil {
		header = http.Header{}
	}

	state := stateAnonymous
	if header.Get(authHeader) != "" {
		state = stateAuthenticated
	}
	if state == stateAnonymous && a.preset != "" {
		header.Set(authHeader, "Bearer "+a.preset)
		state = stateAuthenticated
	}

	var lastErr error
	for try := 0; try < a.retries; {
		try++

		resp, err := a.client.Get(ctx, rawURL,
			client.WithRetries(1),
			client.WithAttemptTimeout(a.timeout),
			client.WithHeaders(header),
		)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		next, escalate := state.next(err)
		if escalate {
			a.logger.Warn("received rate limit or not found, setting the auth header and retrying", "url", rawURL, "error", err)

			if err := a.authorize(ctx, header); err != nil {
				return nil, &APIError{URL: rawURL, Err: errors.Join(err, lastErr)}
			}
			state = next
			try = 0
			continue
		}

		if try < a.retries {
			a.logger.Info("exception while requesting api, retrying", "url", rawURL, "error", err, "retry", try, "auth", state)
			if err := a.client.Sleep(ctx, a.sleep); err != nil {
				return nil, &APIError{URL: rawURL, Err: errors.Join(err, lastErr)}
			}
		}
	}

	return nil, &APIError{URL: rawURL, Err: lastErr}
}

// authorize attaches a provider token to header. An empty token leaves
// the request anonymous.
func (a *API) authorize(ctx context.Context, header http.Header) error {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("fetching token: %w", err)
	}

	if token == "" {
		a.logger.Warn("token provider returned no token, continuing anonymously")
		return nil
	}

	header.Set(authHeader, "Bearer "+token)

	return nil
}
