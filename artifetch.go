// Package artifetch wires the client, report resolver and artifact
// fetcher together from a single [config.Config].
package artifetch

import (
	"fmt"
	"log/slog"

	"github.com/adamwoolhether/artifetch/artifacts"
	"github.com/adamwoolhether/artifetch/client"
	"github.com/adamwoolhether/artifetch/client/download"
	"github.com/adamwoolhether/artifetch/config"
	"github.com/adamwoolhether/artifetch/ghapi"
	"github.com/adamwoolhether/artifetch/report"
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, the default http.Transport is used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// Toolkit bundles everything built from one configuration.
type Toolkit struct {
	Client   *client.Client
	API      *ghapi.API
	Resolver *report.Resolver
	Fetcher  *artifacts.Fetcher
}

// New builds a [Toolkit] from cfg. Extra client options are applied
// after the ones derived from cfg.
func New(cfg config.Config, logger *slog.Logger, extra ...client.Option) (*Toolkit, error) {
	opts := []client.Option{
		client.WithLogger(logger),
		client.WithDefaultAttemptTimeout(cfg.Timeout),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(cfg.UserAgent))
	}
	if t := cfg.Throttle; t != nil {
		opts = append(opts, client.WithThrottle(t.RPS, t.Burst, t.MaxPause))
	}
	opts = append(opts, extra...)

	c, err := NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("building client: %w", err)
	}

	api, err := ghapi.New(c,
		ghapi.WithPresetToken(cfg.PresetToken()),
		ghapi.WithRetries(cfg.Retries),
		ghapi.WithSleep(cfg.Sleep),
		ghapi.WithAttemptTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("building api: %w", err)
	}

	resolver := &report.Resolver{RepoRoot: cfg.RepoRoot, Logger: logger}

	fetcher, err := artifacts.New(c, cfg.CheckTable(), resolver,
		artifacts.WithLogger(logger),
		artifacts.WithMasterBaseURL(cfg.MasterBaseURL),
		artifacts.WithBinaryName(cfg.BinaryName),
		artifacts.WithDownloadOptions(
			download.WithAttempts(cfg.Retries),
			download.WithSleep(cfg.Sleep),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building fetcher: %w", err)
	}

	return &Toolkit{
		Client:   c,
		API:      api,
		Resolver: resolver,
		Fetcher:  fetcher,
	}, nil
}
