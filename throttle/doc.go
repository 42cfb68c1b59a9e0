// Package throttle paces outbound HTTP traffic using the token-bucket
// limiter from [golang.org/x/time/rate].
//
// Two shapes are provided. [NewRoundTripper] limits how many requests per
// second leave a transport:
//
//	rt, err := throttle.NewRoundTripper(10, 5, func() *slog.Logger { return slog.Default() }, http.DefaultTransport)
//
// [NewBytes] limits how many bytes per second flow through a transfer,
// which is how download and upload speed caps are enforced:
//
//	b, err := throttle.NewBytes(512<<10, 16<<10) // 512 KiB/s, 16 KiB bursts
//	r := b.Reader(ctx, body)
//
// In both cases a caller over the limit blocks until tokens are available
// or its context ends.
package throttle
