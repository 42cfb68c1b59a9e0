package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/httpxfer/actor"
	"github.com/adamwoolhether/httpxfer/collector"
	"github.com/adamwoolhether/httpxfer/engine"
)

// Client is the first phase of a transfer: a collector attached to a
// fresh engine handle. It accepts exactly one Request.
type Client struct {
	collector *collector.Collector
	handle    *engine.Handle
	opts      options
	logger    *slog.Logger
	tracer    trace.Tracer
	spent     atomic.Bool
}

// New attaches c to a new transfer.
func New(c *collector.Collector, optFns ...Option) (*Client, error) {
	if c == nil {
		return nil, newError(ErrConfig, "new", errors.New("collector must not be nil"))
	}

	client := &Client{
		collector: c,
		handle:    engine.New(c),
		logger:    slog.Default(),
		tracer:    noop.NewTracerProvider().Tracer("no-op tracer"),
	}

	for _, opt := range optFns {
		if err := opt(&client.opts); err != nil {
			return nil, newError(ErrConfig, "new", fmt.Errorf("applying client option: %w", err))
		}
	}

	if client.opts.logger != nil {
		client.logger = client.opts.logger
	}
	if client.opts.tracer != nil {
		client.tracer = client.opts.tracer
	}
	if client.opts.checksum != nil && c.Kind() == collector.KindStreaming {
		return nil, newError(ErrConfig, "new", errors.New("checksum needs a memory or file collector"))
	}

	return client, nil
}

// ID returns the unique identifier of the transfer.
func (c *Client) ID() string { return c.handle.ID() }

// Request attaches r to the transfer. The Client is spent afterwards.
func (c *Client) Request(r Request) (*Prepared, error) {
	if !c.spent.CompareAndSwap(false, true) {
		return nil, newError(ErrPhase, "request", errors.New("client already has a request"))
	}

	if err := check(r); err != nil {
		return nil, newError(ErrConfig, "request", err)
	}

	h := c.handle
	switch r.Method {
	case http.MethodGet, http.MethodPut:
		if len(r.Body) > 0 {
			return nil, newError(ErrConfig, "request", fmt.Errorf("%s request cannot carry a body", r.Method))
		}
	case http.MethodPost:
		h.SetPostFields(r.Body)
	default:
		return nil, newError(ErrUnimplemented, "request", fmt.Errorf("method %s", r.Method))
	}

	if err := h.SetMethod(r.Method); err != nil {
		return nil, newError(ErrUnimplemented, "request", err)
	}
	if err := h.SetURL(r.URL); err != nil {
		return nil, newError(ErrConfig, "request", err)
	}
	for _, f := range r.Header {
		if err := h.AppendHeader(f.Name, f.Value); err != nil {
			return nil, newError(ErrConfig, "request", err)
		}
	}

	if err := c.opts.apply(h); err != nil {
		return nil, newError(ErrConfig, "request", err)
	}

	return &Prepared{client: c}, nil
}

// Prepared is a transfer with its request attached, waiting for an
// execution strategy.
type Prepared struct {
	client *Client
	spent  atomic.Bool
}

// Configure changes engine options before the transfer runs. The method,
// URL and body are fixed.
func (p *Prepared) Configure(optFns ...Option) error {
	if p.spent.Load() {
		return newError(ErrPhase, "configure", errors.New("transfer already has an execution strategy"))
	}

	c := p.client
	for _, opt := range optFns {
		if err := opt(&c.opts); err != nil {
			return newError(ErrConfig, "configure", fmt.Errorf("applying client option: %w", err))
		}
	}
	if c.opts.logger != nil {
		c.logger = c.opts.logger
	}
	if c.opts.tracer != nil {
		c.tracer = c.opts.tracer
	}

	if err := c.opts.apply(c.handle); err != nil {
		return newError(ErrConfig, "configure", err)
	}

	return nil
}

// Blocking runs the transfer on the goroutine calling Perform.
func (p *Prepared) Blocking() *Performer {
	return p.performer(nil, "blocking")
}

// Nonblocking runs the transfer on a worker of a.
func (p *Prepared) Nonblocking(a *actor.Actor) *Performer {
	if a == nil {
		return &Performer{err: newError(ErrConfig, "nonblocking", errors.New("actor must not be nil"))}
	}
	return p.performer(a, "nonblocking")
}

func (p *Prepared) performer(a *actor.Actor, op string) *Performer {
	if !p.spent.CompareAndSwap(false, true) {
		return &Performer{err: newError(ErrPhase, op, errors.New("transfer already has an execution strategy"))}
	}
	return &Performer{client: p.client, actor: a}
}
