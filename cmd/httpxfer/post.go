package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/httpxfer/client"
	"github.com/adamwoolhether/httpxfer/collector"
)

func newPostCmd(a *app) *cobra.Command {
	var (
		data        string
		dataFile    string
		contentType string
		include     bool
	)

	cmd := &cobra.Command{
		Use:   "post URL [--data DATA | --data-file PATH]",
		Short: "POST a body to URL and write the response body to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := []byte(data)
			if dataFile != "" {
				b, err := os.ReadFile(dataFile)
				if err != nil {
					return fmt.Errorf("reading body: %w", err)
				}
				body = b
			}

			reqOpts := []client.RequestOption{client.WithBody(body)}
			if contentType != "" {
				reqOpts = append(reqOpts, client.WithContentType(contentType))
			}

			c := collector.MemoryWithHeaders(collector.WithAbort(collector.NewAbortSignal()), collector.WithLogger(a.logger))
			_, prepared, err := a.prepare(c, http.MethodPost, args[0], reqOpts)
			if err != nil {
				return err
			}

			resp, err := a.run(cmd.Context(), c, prepared.Blocking())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if include {
				if err := writeHead(out, resp); err != nil {
					return err
				}
			}
			_, err = out.Write(resp.Body)
			return err
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "Request body")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "Read the request body from a file")
	cmd.Flags().StringVarP(&contentType, "content-type", "t", "", "Content-Type of the request body")
	cmd.Flags().BoolVarP(&include, "include", "i", false, "Print the status line and response headers before the body")
	cmd.MarkFlagsMutuallyExclusive("data", "data-file")
	return cmd
}
