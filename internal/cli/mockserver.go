// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/server"
)

// mockServerOptions holds the mock-server flags.
type mockServerOptions struct {
	addr           string
	scriptPath     string
	delay          time.Duration
	firstByteDelay time.Duration
	dropAfter      int
	models         []string
}

func newMockServerCommand(global *Options) *cobra.Command {
	opts := &mockServerOptions{}

	cmd := &cobra.Command{
		Use:    "mock-server",
		Short:  "Serve a scripted stand-in for the Ollama API",
		Hidden: true,
		Long: `Serve /api/chat, /api/tags, /api/show and /api/pull with canned replies.

Chat replies stream the --script file word by word, or echo the last user
message when no script is given. --drop-after cuts the connection mid-reply.`,
		Example: `  rigchat mock-server --addr 127.0.0.1:11500 --script reply.md
  rigchat --host http://127.0.0.1:11500/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMockServer(cmd, opts, global.Verbose)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", server.DefaultAddr, "listen address")
	flags.StringVar(&opts.scriptPath, "script", "", "file whose contents are streamed as the reply")
	flags.DurationVar(&opts.delay, "delay", server.DefaultDelay, "pause between streamed words (negative = none)")
	flags.DurationVar(&opts.firstByteDelay, "first-byte-delay", 0, "pause before the first word")
	flags.IntVar(&opts.dropAfter, "drop-after", 0, "close the connection after this many words (0 = never)")
	flags.StringSliceVar(&opts.models, "models", server.DefaultModels, "installed model names")
	return cmd
}

func runMockServer(cmd *cobra.Command, opts *mockServerOptions, verbose bool) error {
	if opts.dropAfter < 0 {
		return &UsageError{Reason: "--drop-after must not be negative"}
	}

	var script string
	if opts.scriptPath != "" {
		data, err := os.ReadFile(opts.scriptPath)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		script = string(data)
	}

	log, err := logging.New(logging.Options{Path: logging.Stderr, Verbose: verbose})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	srv := server.New(server.Options{
		Addr:           opts.addr,
		Script:         script,
		Delay:          opts.delay,
		FirstByteDelay: opts.firstByteDelay,
		DropAfter:      opts.dropAfter,
		Models:         opts.models,
		Logger:         log,
	})
	fmt.Fprintf(cmd.OutOrStdout(), "Mock Ollama API on http://%s/api (Ctrl-C to stop)\n", opts.addr)
	return srv.ListenAndServe(ctx)
}
