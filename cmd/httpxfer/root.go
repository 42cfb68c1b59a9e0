package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/httpxfer/client"
	"github.com/adamwoolhether/httpxfer/internal/config"
)

var version = "dev"

// app carries the state shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	headers   []string
	progress  bool
	limitRate string
	recvSpeed uint64
	sendSpeed uint64
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "httpxfer",
		Short:         "Resumable, rate-limited HTTP transfers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	cmd.PersistentFlags().StringArrayVarP(&a.headers, "header", "H", nil, "Extra request header ('Name: Value'); can be specified multiple times")
	cmd.PersistentFlags().BoolVarP(&a.progress, "progress", "p", false, "Log transfer progress once per second")
	cmd.PersistentFlags().StringVar(&a.limitRate, "limit-rate", "", "Cap the transfer rate (eg. 500KB, 2MiB)")

	cmd.AddCommand(
		newGetCmd(a),
		newPostCmd(a),
		newDownloadCmd(a),
		newUploadCmd(a),
		newBatchCmd(a),
		newEnvCmd(),
	)

	return cmd
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	a.recvSpeed, a.sendSpeed = cfg.DownloadSpeed, cfg.UploadSpeed
	if a.limitRate != "" {
		bps, err := humanize.ParseBytes(a.limitRate)
		if err != nil {
			return fmt.Errorf("parsing --limit-rate: %w", err)
		}
		a.recvSpeed, a.sendSpeed = bps, bps
	}

	return nil
}

// clientOptions turns the loaded settings into client options.
func (a *app) clientOptions() []client.Option {
	opts := []client.Option{
		client.WithLogger(a.logger),
		client.WithUserAgent(a.cfg.UserAgent),
		client.WithBufferSize(a.cfg.BufferSize),
		client.WithTimeout(a.cfg.Timeout),
		client.WithDownloadSpeed(client.BytesPerSec(a.recvSpeed)),
		client.WithUploadSpeed(client.BytesPerSec(a.sendSpeed)),
	}
	if !a.cfg.FollowRedirect {
		opts = append(opts, client.WithNoFollowRedirects())
	}
	if a.cfg.Progress || a.progress {
		opts = append(opts, client.WithProgress())
	}
	if a.cfg.Throttle.RPS > 0 {
		opts = append(opts, client.WithThrottle(a.cfg.Throttle.RPS, a.cfg.Throttle.Burst))
	}

	return opts
}

// requestOptions turns the --header flags into request options.
func (a *app) requestOptions() ([]client.RequestOption, error) {
	return parseHeaderArgs(a.headers)
}

func parseHeaderArgs(args []string) ([]client.RequestOption, error) {
	opts := make([]client.RequestOption, 0, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("header %q: expected 'Name: Value'", arg)
		}
		opts = append(opts, client.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	return opts, nil
}

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the recognised HTTPXFER_* environment variables",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Usage()
		},
	}
}
