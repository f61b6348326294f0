// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/util"
)

// Build information, set by main.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// GLOBAL OPTIONS
// =============================================================================

// Options holds the flags shared by every command.
type Options struct {
	ConfigPath string
	Host       string
	Model      string
	NoStream   bool
	Timeout    time.Duration
	Verbose    bool
	NoColor    bool
}

// NewRootCommand builds the rigchat command tree. Running it without a
// subcommand starts a chat.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "rigchat",
		Short: "Chat with a local Ollama model from the terminal",
		Long: `rigchat streams replies from an Ollama server as they are generated and
keeps the whole conversation as context for the next question.

Type a message and press Enter. Lines starting with / are commands;
/help lists them. Ctrl-C stops a reply, Ctrl-D leaves.`,
		Example: `  rigchat
  rigchat --model qwen2.5-coder
  rigchat --host http://gpu-box:11434/api --timeout 2m
  rigchat models`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.rigchat/config.toml)")
	flags.StringVar(&opts.Host, "host", "", "Ollama API base URL, including /api")
	flags.StringVarP(&opts.Model, "model", "m", "", "model to chat with")
	flags.BoolVar(&opts.NoStream, "no-stream", false, "ask for whole replies instead of streaming")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "abort a reply that has not finished in time (0 = never)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug events")
	flags.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newChatCommand(opts),
		newModelsCommand(opts),
		newConfigCommand(opts),
		newMockServerCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		DisplayError(os.Stderr, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig reads the config file, applies the flags the user set and
// publishes the result as the global config.
func loadConfig(cmd *cobra.Command, opts *Options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		path, perr := util.ExpandHome(opts.ConfigPath)
		if perr != nil {
			return nil, &ConfigError{Path: opts.ConfigPath, Err: perr}
		}
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &ConfigError{Path: opts.ConfigPath, Err: err}
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = opts.Host
	}
	if flags.Changed("model") {
		cfg.Model = opts.Model
	}
	if flags.Changed("no-stream") {
		cfg.Stream = !opts.NoStream
	}
	if flags.Changed("timeout") {
		cfg.TurnTimeout = config.Duration{Duration: opts.Timeout}
	}
	if opts.NoColor {
		cfg.UI.Color = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: opts.ConfigPath, Err: err}
	}
	return cfg, nil
}

// newLogger opens the session log configured in cfg.
func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	path, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{Path: path, Verbose: verbose})
}

// newClient creates an API client for cfg.Host.
func newClient(cfg *config.Config) *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Host,
		Timeout:      cfg.RequestTimeout.Duration,
		DefaultModel: cfg.Model,
	})
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rigchat version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "rigchat version %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
