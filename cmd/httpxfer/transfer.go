package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/adamwoolhether/httpxfer/client"
	"github.com/adamwoolhether/httpxfer/collector"
)

// prepare attaches c to a request for method and rawURL.
func (a *app) prepare(c *collector.Collector, method, rawURL string, reqOpts []client.RequestOption, opts ...client.Option) (*client.Client, *client.Prepared, error) {
	headers, err := a.requestOptions()
	if err != nil {
		return nil, nil, err
	}

	req, err := client.NewRequest(method, rawURL, append(headers, reqOpts...)...)
	if err != nil {
		return nil, nil, err
	}

	cl, err := client.New(c, append(a.clientOptions(), opts...)...)
	if err != nil {
		return nil, nil, err
	}

	prepared, err := cl.Request(req)
	if err != nil {
		return nil, nil, err
	}

	return cl, prepared, nil
}

// run performs p on the calling goroutine. Cancelling ctx raises the
// collector's abort signal so that what arrived so far is kept. The abort
// only takes effect on the next chunk, so a transfer that is still stalled
// once the configured grace period has passed is cancelled outright.
func (a *app) run(ctx context.Context, c *collector.Collector, p *client.Performer) (*client.Response, error) {
	ectx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		c.Signal().Abort()

		select {
		case <-ectx.Done():
		case <-time.After(a.cfg.Grace):
			a.logger.Warn("transfer did not wind down, cancelling", "grace", a.cfg.Grace)
			cancel()
		}
	})
	defer stop()

	return p.Perform(ectx)
}

func writeHead(w io.Writer, resp *client.Response) error {
	if _, err := fmt.Fprintln(w, resp.Status); err != nil {
		return err
	}
	if err := resp.Header.Write(w); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

// outputName derives a local file name from the last path segment of rawURL.
func outputName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "index.html"
	}

	name := path.Base(strings.TrimSuffix(u.Path, "/"))
	switch name {
	case "", ".", "/":
		return "index.html"
	}
	return name
}
