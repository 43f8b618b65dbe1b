// Package download streams HTTP response bodies to disk with optional
// checksum validation and progress reporting.
//
// # Single Attempt
//
// [Handle] writes one response body straight to the destination path.
// A destination that already holds exactly contentLength bytes is left
// alone and reported as skipped:
//
//	skipped, err := download.Handle(ctx, resp.Body, resp.ContentLength, destPath, logger)
//
// # Retrying
//
// [Run] repeats the request and write up to [DefaultAttempts] times,
// removing whatever was written after each failed attempt. Once every
// attempt has failed it returns an [*Error], which matches [ErrFailed]:
//
//	err := download.Run(ctx, url, destPath, get, logger,
//		download.WithAttempts(3),
//		download.WithChecksum(sha256.New(), want),
//	)
//
// Most callers should use [github.com/adamwoolhether/artifetch/client.Client.DownloadFile],
// which supplies the GET and the client's sleep function.
//
// The progress bar is drawn only when the progress writer is a terminal.
package download
