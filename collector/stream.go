package collector

import (
	"time"

	"github.com/adamwoolhether/httpxfer/pipe"
)

// DefaultSendTimeout bounds how long a streaming Write waits for room in
// the chunk pipe before pausing the transfer.
const DefaultSendTimeout = 5 * time.Second

// StreamHandler forwards response body chunks to a consumer as they
// arrive. The consumer owns Chunks and may Close it at any time; chunks
// arriving afterwards are discarded.
type StreamHandler struct {
	Chunks         *pipe.Pipe[[]byte]
	Abort          *AbortSignal
	CaptureHeaders bool
	SendTimeout    time.Duration // zero means DefaultSendTimeout, negative never waits
}
