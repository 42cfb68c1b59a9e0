// Package httpxfer exposes one-call helpers over the transfer builder
// in package client.
package httpxfer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/adamwoolhether/httpxfer/client"
	"github.com/adamwoolhether/httpxfer/collector"
)

// New attaches c to a new transfer. It is shorthand for [client.New].
func New(c *collector.Collector, opts ...client.Option) (*client.Client, error) {
	return client.New(c, opts...)
}

// Get fetches rawURL into memory on the calling goroutine.
func Get(ctx context.Context, rawURL string, opts ...client.Option) (*client.Response, error) {
	return perform(ctx, collector.MemoryWithHeaders(), rawURL, opts)
}

// Download fetches rawURL into the file at path. An existing file is
// taken as the prefix of the resource and continued from its size.
func Download(ctx context.Context, rawURL, path string, opts ...client.Option) (*client.Response, error) {
	st, err := os.Stat(path)
	switch {
	case err == nil:
		opts = append(opts, client.WithResumeFrom(client.BytesOffset(st.Size())))
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("checking destination: %w", err)
	}

	c, err := collector.File(collector.NewFileInfo(path))
	if err != nil {
		return nil, err
	}

	return perform(ctx, c, rawURL, opts)
}

func perform(ctx context.Context, c *collector.Collector, rawURL string, opts []client.Option) (*client.Response, error) {
	cl, err := New(c, opts...)
	if err != nil {
		return nil, err
	}

	req, err := client.NewRequest(http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}

	prepared, err := cl.Request(req)
	if err != nil {
		return nil, err
	}

	return prepared.Blocking().Perform(ctx)
}
