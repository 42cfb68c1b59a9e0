package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/httpxfer/client"
	"github.com/adamwoolhether/httpxfer/collector"
	"github.com/adamwoolhether/httpxfer/pipe"
)

// fileJob is a transfer between a URL and a local file.
type fileJob struct {
	url    string
	path   string
	offset uint64

	info      *collector.FileInfo
	collector *collector.Collector
	speed     *pipe.Pipe[collector.TransferSpeed]
	client    *client.Client
	prepared  *client.Prepared
}

func newFileJob(rawURL, path string, offset uint64) (*fileJob, error) {
	speed := pipe.New[collector.TransferSpeed](16)
	info := collector.NewFileInfo(path).
		WithTransferSpeedSender(speed).
		WithAbort(collector.NewAbortSignal())

	c, err := collector.File(info)
	if err != nil {
		return nil, err
	}

	return &fileJob{
		url:       rawURL,
		path:      path,
		offset:    offset,
		info:      info,
		collector: c,
		speed:     speed,
	}, nil
}

// newDownload prepares a GET of rawURL into path. With resume set, an
// existing file is continued from its current size.
func (a *app) newDownload(rawURL, path string, resume bool, opts ...client.Option) (*fileJob, error) {
	var offset uint64
	switch st, err := os.Stat(path); {
	case err == nil && resume:
		offset = uint64(st.Size())
	case err == nil:
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("removing previous download: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("checking destination: %w", err)
	}

	j, err := newFileJob(rawURL, path, offset)
	if err != nil {
		return nil, err
	}

	opts = append(opts, client.WithFailOnError())
	if offset > 0 {
		opts = append(opts, client.WithResumeFrom(client.BytesOffset(offset)))
	}

	j.client, j.prepared, err = a.prepare(j.collector, http.MethodGet, rawURL, nil, opts...)
	if err != nil {
		return nil, err
	}

	return j, nil
}

// perform runs p while draining the telemetry pipe, returning the last
// observed rate alongside the response.
func (j *fileJob) perform(ctx context.Context, a *app, p *client.Performer) (*client.Response, collector.TransferSpeed, error) {
	var last collector.TransferSpeed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for s := range j.speed.C() {
			last = s
		}
	}()

	resp, err := a.run(ctx, j.collector, p)
	j.speed.Close()
	<-done

	return resp, last, err
}

// report describes the outcome of a finished download.
func (j *fileJob) report(w io.Writer, resp *client.Response, rate collector.TransferSpeed) error {
	switch {
	case resp.Aborted:
		_, err := fmt.Fprintf(w, "%s: interrupted after %s, run again to resume\n", j.path, humanize.Bytes(j.offset+j.info.BytesTransferred()))
		return err
	case resp.Status == http.StatusRequestedRangeNotSatisfiable && j.offset > 0:
		_, err := fmt.Fprintf(w, "%s: already complete (%s)\n", j.path, humanize.Bytes(j.offset))
		return err
	case !resp.Status.IsSuccess():
		return fmt.Errorf("%s: server answered %s", j.url, resp.Status)
	}

	msg := fmt.Sprintf("%s: %s received at %s", j.path, humanize.Bytes(j.info.BytesTransferred()), rate)
	if j.offset > 0 {
		msg += fmt.Sprintf(" (resumed at %s)", humanize.Bytes(j.offset))
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}

func newDownloadCmd(a *app) *cobra.Command {
	var (
		output   string
		noResume bool
		sum      string
	)

	cmd := &cobra.Command{
		Use:   "download URL [--output PATH]",
		Short: "Download URL to a file, resuming a partial file if present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = outputName(args[0])
			}

			var opts []client.Option
			if sum != "" {
				opts = append(opts, client.WithChecksum(sha256.New(), sum))
			}

			j, err := a.newDownload(args[0], output, !noResume, opts...)
			if err != nil {
				return err
			}

			resp, rate, err := j.perform(cmd.Context(), a, j.prepared.Blocking())
			if err != nil {
				return err
			}

			return j.report(cmd.ErrOrStderr(), resp, rate)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (inferred from the URL if not provided)")
	cmd.Flags().BoolVar(&noResume, "no-resume", false, "Start over instead of continuing an existing file")
	cmd.Flags().StringVar(&sum, "sha256", "", "Expected hex SHA-256 of the complete file")
	return cmd
}
