package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

// Run downloads the body returned by get into destPath, trying up to
// [DefaultAttempts] times. A destination that already holds exactly
// Content-Length bytes is left untouched. destPath is removed after
// every failed attempt, and the final failure is returned as an [*Error].
func Run(ctx context.Context, rawURL, destPath string, get GetFunc, logger *slog.Logger, optFns ...Option) error {
	if destPath == "" {
		return errors.New("destPath must not be empty")
	}

	opts, err := apply(optFns)
	if err != nil {
		return err
	}

	interactive := opts.interactive()
	logger.Info("downloading", "url", rawURL, "path", destPath, "attempts", opts.attempts)

	for i := range opts.attempts {
		skipped, err := opts.attempt(ctx, get, destPath, logger)
		if err == nil {
			if skipped {
				return nil
			}
			if interactive {
				fmt.Fprintln(opts.progress)
			}
			logger.Info("download finished", "path", destPath)
			return nil
		}

		if interactive {
			fmt.Fprintln(opts.progress)
		}
		removePartial(destPath, logger)

		if i+1 >= opts.attempts {
			return &Error{URL: rawURL, Detail: "all retries exceeded", Err: err}
		}

		logger.Info("download attempt failed, retrying", "error", err, "attempt", i+1)
		if sleepErr := opts.sleepFn(ctx, opts.sleep); sleepErr != nil {
			return &Error{URL: rawURL, Detail: "waiting to retry", Err: errors.Join(sleepErr, err)}
		}
	}

	return nil
}

// Handle writes a single response body to destPath without retrying.
// It reports whether the write was skipped because destPath already
// holds contentLength bytes.
func Handle(ctx context.Context, body io.Reader, contentLength int64, destPath string, logger *slog.Logger, optFns ...Option) (bool, error) {
	opts, err := apply(optFns)
	if err != nil {
		return false, err
	}

	return opts.handle(ctx, body, contentLength, destPath, logger)
}

func (o *options) attempt(ctx context.Context, get GetFunc, destPath string, logger *slog.Logger) (bool, error) {
	resp, err := get(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	return o.handle(ctx, resp.Body, resp.ContentLength, destPath, logger)
}

func (o *options) handle(ctx context.Context, body io.Reader, contentLength int64, destPath string, logger *slog.Logger) (bool, error) {
	if contentLength > 0 {
		if info, err := os.Stat(destPath); err == nil && info.Mode().IsRegular() && info.Size() == contentLength {
			logger.Info("file already exists with expected size", "path", destPath, "size", contentLength)
			return true, nil
		}
	}

	body = &contextReader{ctx: ctx, r: body}

	file, err := os.Create(destPath)
	if err != nil {
		return false, fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("defer closing file", "error", err)
		}
	}()

	o.checksum.reset()
	var writer io.Writer = file
	if o.checksum != nil {
		writer = io.MultiWriter(writer, o.checksum)
	}

	if contentLength <= 0 {
		logger.Info("no content length, downloading without progress", "path", destPath)
		b, err := io.ReadAll(body)
		if err != nil {
			return false, readErr(err)
		}
		if _, err := writer.Write(b); err != nil {
			return false, fmt.Errorf("writing file: %w", err)
		}
	} else {
		logger.Info("content length known", "bytes", contentLength)
		if o.interactive() {
			writer = &progressWriter{w: writer, out: o.progress, total: contentLength}
		}

		n, err := io.CopyBuffer(onlyWriter{writer}, body, make([]byte, chunkSize))
		if err != nil {
			return false, readErr(err)
		}
		if n != contentLength {
			return false, fmt.Errorf("%w: expected %d bytes, got %d", ErrContentLengthMismatch, contentLength, n)
		}
	}

	if err := o.checksum.Verify(); err != nil {
		return false, err
	}

	if err := file.Close(); err != nil {
		return false, fmt.Errorf("closing file: %w", err)
	}

	return false, nil
}

// removePartial deletes destPath if it is a regular file. Directories,
// symlinks and other entries are never touched.
func removePartial(destPath string, logger *slog.Logger) {
	info, err := os.Lstat(destPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Error("failed to stat partial file", "path", destPath, "error", err)
		}
		return
	}
	if !info.Mode().IsRegular() {
		logger.Warn("not removing non-regular destination", "path", destPath, "mode", info.Mode().String())
		return
	}

	if err := os.Remove(destPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("failed to remove partial file", "path", destPath, "error", err)
	}
}

func readErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
	}
	return fmt.Errorf("copying file body: %w", err)
}

// onlyWriter hides ReadFrom so io.CopyBuffer keeps to chunkSize writes.
type onlyWriter struct {
	io.Writer
}

func sleep(ctx context.Context, d time.Duration) error {
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
