package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/httpxfer/collector"
)

func newGetCmd(a *app) *cobra.Command {
	var include bool

	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Fetch URL and write the body to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []collector.Option{collector.WithAbort(collector.NewAbortSignal()), collector.WithLogger(a.logger)}

			c := collector.Memory(opts...)
			if include {
				c = collector.MemoryWithHeaders(opts...)
			}

			_, prepared, err := a.prepare(c, http.MethodGet, args[0], nil)
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
			if _, err := out.Write(resp.Body); err != nil {
				return err
			}
			if resp.Aborted {
				return fmt.Errorf("interrupted after %d bytes", len(resp.Body))
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&include, "include", "i", false, "Print the status line and response headers before the body")
	return cmd
}
