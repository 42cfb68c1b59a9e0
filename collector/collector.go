package collector

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adamwoolhether/httpxfer/engine"
	"github.com/adamwoolhether/httpxfer/pipe"
)

// Kind identifies where a Collector puts the data it receives.
type Kind int

const (
	KindMemory Kind = iota
	KindMemoryWithHeaders
	KindFile
	KindFileWithHeaders
	KindStreaming
)

func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindMemoryWithHeaders:
		return "memory+headers"
	case KindFile:
		return "file"
	case KindFileWithHeaders:
		return "file+headers"
	case KindStreaming:
		return "streaming"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	ErrNoFileInfo = errors.New("file info must not be nil")
	ErrNoStream   = errors.New("stream handler needs a chunk pipe")
)

// Option configures a Collector.
type Option func(*Collector)

// WithAbort makes a memory collector watch a. File and streaming
// collectors take their signal from FileInfo.WithAbort and
// StreamHandler.Abort unless this option overrides it.
func WithAbort(a *AbortSignal) Option {
	return func(c *Collector) {
		c.abort = a
	}
}

// WithLogger sets the logger for dropped samples and discarded chunks.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// Collector receives the data of one transfer. It implements
// engine.Handler.
type Collector struct {
	kind   Kind
	body   []byte
	raw    []byte
	file   *FileInfo
	stream *StreamHandler
	abort  *AbortSignal
	logger *slog.Logger
}

var _ engine.Handler = (*Collector)(nil)

func newCollector(kind Kind, opts []Option) *Collector {
	c := &Collector{
		kind:   kind,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Memory buffers the response body.
func Memory(opts ...Option) *Collector {
	c := newCollector(KindMemory, opts)
	c.body = []byte{}
	return c
}

// MemoryWithHeaders buffers the response body and its headers.
func MemoryWithHeaders(opts ...Option) *Collector {
	c := newCollector(KindMemoryWithHeaders, opts)
	c.body = []byte{}
	return c
}

// File appends downloads to info and serves uploads from it.
func File(info *FileInfo, opts ...Option) (*Collector, error) {
	return newFile(KindFile, info, opts)
}

// FileWithHeaders is File that also keeps the response headers.
func FileWithHeaders(info *FileInfo, opts ...Option) (*Collector, error) {
	return newFile(KindFileWithHeaders, info, opts)
}

func newFile(kind Kind, info *FileInfo, opts []Option) (*Collector, error) {
	if info == nil {
		return nil, ErrNoFileInfo
	}

	c := newCollector(kind, opts)
	c.file = info
	if c.abort == nil {
		c.abort = info.abort
	}
	if info.logger == nil {
		info.logger = c.logger
	}

	return c, nil
}

// Streaming forwards each body chunk to stream.Chunks.
func Streaming(stream *StreamHandler, opts ...Option) (*Collector, error) {
	if stream == nil || stream.Chunks == nil {
		return nil, ErrNoStream
	}

	c := newCollector(KindStreaming, opts)
	c.stream = stream
	if c.abort == nil {
		c.abort = stream.Abort
	}

	return c, nil
}

// Write implements engine.Handler.
func (c *Collector) Write(data []byte) (int, error) {
	if c.abort.Aborted() {
		return 0, engine.ErrAbort
	}
	c.begin()

	switch c.kind {
	case KindMemory, KindMemoryWithHeaders:
		c.body = append(c.body, data...)

	case KindFile, KindFileWithHeaders:
		if err := c.file.write(data); err != nil {
			return 0, fmt.Errorf("%w: %w", engine.ErrPause, err)
		}

	case KindStreaming:
		timeout := c.stream.SendTimeout
		if timeout == 0 {
			timeout = DefaultSendTimeout
		}

		err := c.stream.Chunks.SendTimeout(bytes.Clone(data), timeout)
		switch {
		case errors.Is(err, pipe.ErrClosed):
			c.logger.Warn("stream closed, discarding chunk", "bytes", len(data))
		case err != nil:
			return 0, fmt.Errorf("%w: %w", engine.ErrPause, err)
		}
	}

	return len(data), nil
}

// Read implements engine.Handler. Only file collectors have an upload
// source; the others report end of data.
func (c *Collector) Read(buf []byte) (int, error) {
	if c.abort.Aborted() {
		return 0, engine.ErrAbort
	}
	c.begin()

	switch c.kind {
	case KindFile, KindFileWithHeaders:
		n, err := c.file.read(buf)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", engine.ErrAbort, err)
		}
		return n, nil
	}

	return 0, nil
}

// Header implements engine.Handler.
func (c *Collector) Header(line []byte) bool {
	c.begin()
	if c.capturesHeaders() {
		c.raw = append(c.raw, line...)
	}
	return true
}

func (c *Collector) begin() {
	if c.file != nil {
		c.file.begin()
	}
}

func (c *Collector) capturesHeaders() bool {
	switch c.kind {
	case KindMemoryWithHeaders, KindFileWithHeaders:
		return true
	case KindStreaming:
		return c.stream.CaptureHeaders
	}
	return false
}

// Kind reports the variant chosen at construction.
func (c *Collector) Kind() Kind { return c.kind }

// Body returns the buffered body of a memory collector, empty but non-nil
// when nothing arrived. Other kinds return nil.
func (c *Collector) Body() []byte {
	switch c.kind {
	case KindMemory, KindMemoryWithHeaders:
		return c.body
	}
	return nil
}

// Headers parses the captured header lines. It returns nil when the
// collector does not capture headers.
func (c *Collector) Headers() http.Header {
	if !c.capturesHeaders() {
		return nil
	}
	return ParseHeaders(c.raw)
}

// RawHeaders returns a copy of the header bytes as received.
func (c *Collector) RawHeaders() []byte {
	return bytes.Clone(c.raw)
}

// FileInfo returns the file of a file collector, or nil.
func (c *Collector) FileInfo() *FileInfo { return c.file }

// Signal returns the AbortSignal the collector watches, or nil.
func (c *Collector) Signal() *AbortSignal { return c.abort }
