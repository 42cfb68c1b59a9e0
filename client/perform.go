package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httpxfer/actor"
	"github.com/adamwoolhether/httpxfer/engine"
)

// Performer is the last phase of a transfer. Perform may be called once.
type Performer struct {
	client *Client
	actor  *actor.Actor
	err    error
	spent  bool
}

// Perform runs the transfer and assembles the Response. A transfer
// stopped by the collector's AbortSignal is not an error: the Response
// holds what arrived and has Aborted set.
func (p *Performer) Perform(ctx context.Context) (*Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.spent {
		return nil, newError(ErrPhase, "perform", errors.New("transfer already performed"))
	}
	p.spent = true

	c := p.client
	h := c.handle

	ctx, span := c.tracer.Start(ctx, "httpxfer.perform", trace.WithAttributes(
		attribute.String("http.method", h.Method()),
		attribute.String("url.full", h.URL()),
		attribute.String("httpxfer.transfer_id", h.ID()),
		attribute.String("httpxfer.collector", c.collector.Kind().String()),
	))
	defer span.End()

	resp, err := p.perform(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("http.status_code", resp.Status.Code()),
		attribute.Bool("httpxfer.aborted", resp.Aborted),
	)

	return resp, nil
}

func (p *Performer) perform(ctx context.Context) (*Response, error) {
	c := p.client
	h := c.handle
	log := c.logger.With("transfer_id", h.ID())

	var err error
	if p.actor != nil {
		_, err = p.actor.Send(ctx, h)
	} else {
		err = h.Perform(ctx)
	}

	var aborted bool
	switch {
	case err == nil:
	case c.signalled(err):
		log.Info("transfer aborted", "url", h.URL())
		aborted = true
	case errors.Is(err, engine.ErrHTTPStatus):
		return nil, statusError(h.ResponseCode(), h.ErrorBody())
	default:
		log.Debug("transfer failed", "url", h.URL(), "error", err)
		return nil, classify(err)
	}

	resp, err := assemble(h, c.collector, aborted)
	if err != nil {
		return nil, err
	}

	if !aborted {
		if err := c.opts.checksum.verify(c.collector); err != nil {
			if errors.Is(err, ErrChecksumMismatch) {
				return nil, err
			}
			return nil, newError(ErrIO, "checksum", err)
		}
	}

	return resp, nil
}

// signalled reports whether err is the collector refusing data because
// its AbortSignal was tripped, as opposed to an I/O failure.
func (c *Client) signalled(err error) bool {
	var cbErr *engine.CallbackError
	if !errors.As(err, &cbErr) {
		return false
	}
	return cbErr.Err == engine.ErrAbort && c.collector.Signal().Aborted()
}

func classify(err error) error {
	var cbErr *engine.CallbackError
	switch {
	case errors.As(err, &cbErr):
		if cbErr.Bare() {
			return newError(ErrEngine, "perform", err)
		}
		return newError(ErrIO, "perform", err)
	case errors.Is(err, engine.ErrInvalidOption), errors.Is(err, engine.ErrNoURL):
		return newError(ErrConfig, "perform", err)
	case errors.Is(err, engine.ErrUnsupported):
		return newError(ErrUnimplemented, "perform", err)
	case errors.Is(err, engine.ErrAlreadyPerformed), errors.Is(err, actor.ErrAlreadyRunning):
		return newError(ErrPhase, "perform", err)
	}
	return newError(ErrEngine, "perform", err)
}

func statusError(code int, body []byte) error {
	se := &UnexpectedStatusError{
		StatusCode: code,
		Body:       string(body[:min(len(body), maxErrBodySize)]),
		Err:        ErrUnexpectedStatusCode,
	}
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		se.Err = errors.Join(ErrUnexpectedStatusCode, ErrAuthFailure)
	}
	return fmt.Errorf("perform: %w", se)
}
