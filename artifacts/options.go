package artifacts

import (
	"errors"
	"log/slog"
	"net/url"

	"github.com/adamwoolhether/artifetch/client/download"
)

// Option is a functional option for configuring a [Fetcher] via [New].
type Option func(*Fetcher) error

// WithLogger injects a custom [slog.Logger] into the [Fetcher].
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		f.logger = logger
		return nil
	}
}

// WithPlatform overrides the host platform used for master builds.
func WithPlatform(p Platform) Option {
	return func(f *Fetcher) error {
		f.platform = p
		return nil
	}
}

// WithMasterBaseURL changes where master builds are downloaded from.
func WithMasterBaseURL(raw string) Option {
	return func(f *Fetcher) error {
		u, err := url.Parse(raw)
		if err != nil {
			return err
		}
		if u.Scheme == "" || u.Host == "" {
			return errors.New("master base url must be absolute")
		}
		f.masterBaseURL = raw
		return nil
	}
}

// WithBinaryName changes the main executable name.
func WithBinaryName(name string) Option {
	return func(f *Fetcher) error {
		if name == "" {
			return errors.New("binary name must not be empty")
		}
		f.binaryName = name
		return nil
	}
}

// WithDownloadOptions is passed to every download.
func WithDownloadOptions(opts ...download.Option) Option {
	return func(f *Fetcher) error {
		f.dlOpts = append(f.dlOpts, opts...)
		return nil
	}
}
