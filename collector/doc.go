// Package collector decides where the bytes of a transfer go.
//
// A [Collector] is one of a closed set of kinds picked by its
// constructor:
//
//	c := collector.Memory()                        // body in memory
//	c := collector.MemoryWithHeaders()             // body and headers in memory
//	c, err := collector.File(info)                 // body appended to a file
//	c, err := collector.FileWithHeaders(info)      // same, keeping headers
//	c, err := collector.Streaming(&collector.StreamHandler{Chunks: p})
//
// File collectors also serve as the upload source of a PUT, reading from
// the offset already transferred so that an interrupted upload can be
// resumed. [FileInfo] can publish its average [TransferSpeed] on a
// [pipe.Pipe] after every chunk.
//
// An [AbortSignal] shared with any goroutine stops the transfer at the
// next chunk boundary.
package collector
