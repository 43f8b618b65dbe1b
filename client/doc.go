// Package client provides the retrying HTTP client used to fetch build
// reports and artifacts, built on [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithUserAgent("artifetch/1.0"),
//		client.WithThrottle(10, 5, time.Minute),
//	)
//
// # Fetching
//
// [Client.Get] makes up to five attempts three seconds apart, treating
// transport errors and statuses >= 400 as failures:
//
//	resp, err := c.Get(ctx, "https://example.com/report.json",
//		client.WithRetries(3),
//		client.WithSleep(time.Second),
//	)
//
// The body of a non-streamed response is already buffered. Use
// [WithStream] to read it incrementally.
//
// # Downloading Files
//
// [Client.DownloadFile] streams a URL to disk, skipping files that already
// have the advertised size and drawing a progress bar on terminals:
//
//	err = c.DownloadFile(ctx, url, "/tmp/clickhouse",
//		download.WithChecksum(sha256.New(), expectedHex),
//	)
//
// Failures after the last attempt are reported as [*download.Error].
//
// For lower-level control see the
// [github.com/adamwoolhether/artifetch/client/download] package.
package client
