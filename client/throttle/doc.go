// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound HTTP requests using a token-bucket algorithm from
// [golang.org/x/time/rate].
//
// # Usage
//
// Wrap an existing transport with [NewRoundTripper]:
//
//	rt, err := throttle.NewRoundTripper(
//		throttle.Config{RPS: 10, Burst: 5, MaxPause: time.Minute},
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//	httpClient := &http.Client{Transport: rt}
//
// When the rate limit is exceeded, outbound requests block until a
// token becomes available or the request context is cancelled.
//
// Code-hosting APIs report their own quota through the
// X-RateLimit-Remaining and X-RateLimit-Reset headers. With a positive
// MaxPause, a response announcing an exhausted quota holds back the
// following requests until the reset time, never longer than MaxPause.
package throttle
