package ghapi

import (
	"context"
	"os"
)

// TokenProvider hands out an API credential on demand.
// An empty token with a nil error means none is available.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a plain function to [TokenProvider].
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// EnvTokens returns the first non-empty value among the named
// environment variables.
type EnvTokens []string

func (e EnvTokens) Token(context.Context) (string, error) {
	for _, name := range e {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}

	return "", nil
}
