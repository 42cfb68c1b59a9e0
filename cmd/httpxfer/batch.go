package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/adamwoolhether/httpxfer/actor"
)

// batchEntry is one download of a batch file.
type batchEntry struct {
	URL    string `yaml:"url"`
	Output string `yaml:"output,omitempty"`
}

func loadBatch(path string) ([]batchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}

	var entries []batchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing batch file: %w", err)
	}

	seen := make(map[string]int, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.URL == "" {
			return nil, fmt.Errorf("missing url for entry %d", i+1)
		}
		if e.Output == "" {
			e.Output = outputName(e.URL)
		}
		if prev, ok := seen[e.Output]; ok {
			return nil, fmt.Errorf("entries %d and %d both write %s", prev, i+1, e.Output)
		}
		seen[e.Output] = i + 1
	}

	return entries, nil
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		workers  int
		noResume bool
	)

	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Download every entry of a YAML batch file through a shared worker pool",
		Long: `Each entry of the YAML list names a url and an optional output path:

  - url: https://example.com/a.iso
    output: a.iso
  - url: https://example.com/b.iso`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := loadBatch(args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return errors.New("no entries found in the batch file")
			}

			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.MaxParallel
			}
			act, err := actor.New(actor.WithWorkers(workers), actor.WithLogger(a.logger))
			if err != nil {
				return err
			}
			stop := context.AfterFunc(cmd.Context(), act.Shutdown)
			defer stop()

			return a.runBatch(cmd.Context(), act, entries, !noResume, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of parallel downloads (defaults to HTTPXFER_MAX_PARALLEL)")
	cmd.Flags().BoolVar(&noResume, "no-resume", false, "Start over instead of continuing existing files")
	return cmd
}

func (a *app) runBatch(ctx context.Context, act *actor.Actor, entries []batchEntry, resume bool, w io.Writer) error {
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}

	for _, e := range entries {
		j, err := a.newDownload(e.URL, e.Output, resume)
		if err != nil {
			fail(fmt.Errorf("%s: %w", e.URL, err))
			continue
		}

		wg.Go(func() {
			resp, rate, err := j.perform(ctx, a, j.prepared.Nonblocking(act))
			if err != nil {
				fail(fmt.Errorf("%s: %w", e.URL, err))
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if err := j.report(w, resp, rate); err != nil {
				errs = append(errs, err)
			}
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		if errors.Is(err, actor.ErrShutdown) {
			a.logger.Warn("batch interrupted", "entries", len(entries))
		}
		return err
	}
	return nil
}
