// Package client builds and runs a single HTTP transfer in three
// phases, each its own type, so that a transfer cannot be run before it
// has a request or run twice.
//
// # Building a Client
//
// Pick a [collector.Collector] for the response and pass it to [New]
// with functional options:
//
//	c, err := client.New(collector.Memory(),
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//	)
//
// # Attaching a Request
//
// [Client.Request] validates the [Request] and returns a [Prepared]
// transfer. Only GET, POST and PUT are supported:
//
//	req, err := client.NewRequest(http.MethodPost, "https://api.example.com/v1/items",
//		client.WithPayload(item),
//	)
//	prepared, err := c.Request(req)
//
// # Performing
//
// [Prepared.Blocking] runs the transfer on the calling goroutine;
// [Prepared.Nonblocking] hands it to a shared [actor.Actor]:
//
//	resp, err := prepared.Blocking().Perform(ctx)
//	resp, err := prepared.Nonblocking(a).Perform(ctx)
//
// # Resuming
//
// File collectors append downloads and read uploads from the offset
// already transferred. [WithResumeFrom] continues an interrupted
// transfer, and [WithChecksum] verifies the whole file afterwards:
//
//	info := collector.NewFileInfo("/tmp/file.bin")
//	fc, err := collector.File(info)
//	c, err := client.New(fc,
//		client.WithResumeFrom(client.BytesOffset(size)),
//		client.WithChecksum(sha256.New(), expectedHex),
//	)
//
// # Errors
//
// Failures are reported as [*Error], classified under [ErrEngine],
// [ErrIO], [ErrProtocol], [ErrConfig], [ErrUnimplemented] or [ErrPhase].
// A transfer stopped through a [collector.AbortSignal] is not an error;
// its [Response] has Aborted set.
package client
