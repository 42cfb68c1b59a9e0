package collector

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/adamwoolhether/httpxfer/pipe"
)

// FileInfo is the on-disk end of a transfer. Downloads append to Path,
// uploads read Path from the byte offset already transferred.
type FileInfo struct {
	path   string
	speed  *pipe.Pipe[TransferSpeed]
	abort  *AbortSignal
	logger *slog.Logger

	mu      sync.Mutex
	counter *ByteCounter
	begun   bool
}

// NewFileInfo returns a FileInfo for path. The clock of its transfer rate
// starts at the first callback of the transfer, so time spent queued does
// not count against it.
func NewFileInfo(path string) *FileInfo {
	return &FileInfo{
		path:    path,
		counter: NewByteCounter(),
	}
}

// WithTransferSpeedSender publishes the average rate to p after every
// chunk. Samples that do not fit are dropped.
func (f *FileInfo) WithTransferSpeedSender(p *pipe.Pipe[TransferSpeed]) *FileInfo {
	f.speed = p
	return f
}

// WithAbort makes collectors over f watch a.
func (f *FileInfo) WithAbort(a *AbortSignal) *FileInfo {
	f.abort = a
	return f
}

// Path returns the file path.
func (f *FileInfo) Path() string { return f.path }

// BytesTransferred reports the bytes written or read so far.
func (f *FileInfo) BytesTransferred() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter.Transferred()
}

// TransferSpeed reports the average rate as of the last chunk.
func (f *FileInfo) TransferSpeed() TransferSpeed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter.Rate()
}

func (f *FileInfo) write(data []byte) (err error) {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", f.path, cerr)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}

	f.record(len(data))

	return nil
}

func (f *FileInfo) read(buf []byte) (int, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", f.path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			f.log().Debug("closing upload source", "path", f.path, "error", err)
		}
	}()

	n, err := file.ReadAt(buf, int64(f.BytesTransferred()))
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("reading %s: %w", f.path, err)
	}

	f.record(n)

	return n, nil
}

// begin restarts the rate clock the first time it is called.
func (f *FileInfo) begin() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.begun {
		return
	}
	f.begun = true
	f.counter.Restart()
}

func (f *FileInfo) record(n int) {
	f.mu.Lock()
	rate := f.counter.Add(n)
	f.mu.Unlock()

	if f.speed == nil {
		return
	}
	if err := f.speed.TrySend(rate); err != nil {
		f.log().Debug("transfer speed sample dropped", "path", f.path, "speed", rate.String(), "error", err)
	}
}

func (f *FileInfo) log() *slog.Logger {
	if f.logger == nil {
		return slog.Default()
	}
	return f.logger
}
