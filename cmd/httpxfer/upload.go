package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/httpxfer/client"
)

func newUploadCmd(a *app) *cobra.Command {
	var offset uint64

	cmd := &cobra.Command{
		Use:   "upload FILE URL [--offset N]",
		Short: "PUT a file to URL, optionally continuing from a byte offset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, rawURL := args[0], args[1]

			st, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("checking source: %w", err)
			}
			if offset > uint64(st.Size()) {
				return fmt.Errorf("offset %d beyond the end of %s (%d bytes)", offset, path, st.Size())
			}

			j, err := newFileJob(rawURL, path, offset)
			if err != nil {
				return err
			}

			opts := []client.Option{
				client.WithFailOnError(),
				client.WithUploadFileSize(client.FileSize(st.Size())),
			}
			if offset > 0 {
				opts = append(opts, client.WithResumeFrom(client.BytesOffset(offset)))
			}

			j.client, j.prepared, err = a.prepare(j.collector, http.MethodPut, rawURL, nil, opts...)
			if err != nil {
				return err
			}

			resp, rate, err := j.perform(cmd.Context(), a, j.prepared.Blocking())
			if err != nil {
				return err
			}
			if resp.Aborted {
				return fmt.Errorf("%s: interrupted after reading %s", path, humanize.Bytes(j.info.BytesTransferred()))
			}

			// The skipped prefix is read back through the collector too.
			sent := j.info.BytesTransferred() - offset
			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s sent at %s, server answered %s\n", path, humanize.Bytes(sent), rate, resp.Status)
			return err
		},
	}

	cmd.Flags().Uint64Var(&offset, "offset", 0, "Number of bytes the server already holds")
	return cmd
}
