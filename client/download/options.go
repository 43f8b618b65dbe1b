package download

import (
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Option defines optional settings for downloading files.
//
// WithChecksum enables checksum validation of the downloaded file.
// h is a hash.Hash instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
//
// WithProgress redirects the progress bar, which is otherwise drawn on
// stdout. The bar is only drawn when the writer is a terminal.
//
// WithAttempts and WithSleep control the retry loop in [Run].
type Option func(*options) error

type options struct {
	checksum   *checksumVerifier
	progress   io.Writer
	isTerminal func(io.Writer) bool
	attempts   int
	sleep      time.Duration
	sleepFn    SleepFunc
}

func defaultOptions() options {
	return options{
		progress:   os.Stdout,
		isTerminal: isTerminal,
		attempts:   DefaultAttempts,
		sleep:      DefaultSleep,
		sleepFn:    sleep,
	}
}

func apply(optFns []Option) (options, error) {
	opts := defaultOptions()
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return options{}, fmt.Errorf("applying option: %w", err)
		}
	}
	return opts, nil
}

func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}
		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}
		opts.checksum = &checksumVerifier{hash: h, expected: expected}
		return nil
	}
}

func WithProgress(w io.Writer) Option {
	return func(opts *options) error {
		if w == nil {
			return errors.New("progress writer must not be nil")
		}
		opts.progress = w
		return nil
	}
}

// WithoutProgress disables the progress bar.
func WithoutProgress() Option {
	return func(opts *options) error {
		opts.progress = io.Discard
		return nil
	}
}

func WithAttempts(n int) Option {
	return func(opts *options) error {
		if n < 1 {
			return fmt.Errorf("attempts[%d] must be at least one", n)
		}
		opts.attempts = n
		return nil
	}
}

func WithSleep(d time.Duration) Option {
	return func(opts *options) error {
		if d < 0 {
			return errors.New("sleep must not be negative")
		}
		opts.sleep = d
		return nil
	}
}

// WithSleepFunc replaces the wait between attempts.
func WithSleepFunc(fn SleepFunc) Option {
	return func(opts *options) error {
		if fn == nil {
			return errors.New("sleep func must not be nil")
		}
		opts.sleepFn = fn
		return nil
	}
}

func (o *options) interactive() bool {
	return o.isTerminal(o.progress)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
