// Package engine performs a single HTTP transfer and reports everything
// it moves through a narrow callback contract, the [Handler].
//
// A [Handle] is configured with setters, much like a libcurl easy
// handle, and then performed exactly once:
//
//	h := engine.New(handler)
//	if err := h.SetURL("https://example.com/file.bin"); err != nil { ... }
//	if err := h.SetMethod(http.MethodGet); err != nil { ... }
//	if err := h.SetMaxRecvSpeed(1 << 20); err != nil { ... }
//	err := h.Perform(ctx)
//
// During Perform the response status line and header lines are handed to
// [Handler.Header], body bytes to [Handler.Write], and upload bytes are
// pulled from [Handler.Read]. A callback stops the transfer by returning
// [ErrAbort], or asks for a retry of the same bytes by returning
// [ErrPause]. Connection management, TLS and redirects are left to
// [net/http].
package engine
