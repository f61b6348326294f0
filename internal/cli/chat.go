// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/commands"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/render"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

const (
	// promptText is shown before every input line.
	promptText = ">>> "

	// bannerWidth is the width of the startup box contents.
	bannerWidth = 56

	// completionTimeout bounds the model lookup behind Tab completion.
	completionTimeout = 2 * time.Second

	// completionTTL is how long a fetched model list is offered.
	completionTTL = 30 * time.Second
)

func newChatCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session (default)",
		Long: `Start an interactive chat session.

Interactive commands:
  /help, /h, /?        Show available commands
  /reset, /clear       Forget the conversation
  /model, /m <name>    Switch model, keeping the conversation
  /models              List installed models
  /info, /i            Show session and model details
  /exit, /quit, /q     Leave
  Ctrl+C               Stop the current reply
  Ctrl+D               Leave`,
		Example: `  rigchat chat
  rigchat chat --model mistral --no-stream`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}
}

// runChat sets up the session and runs the read loop until the user leaves.
func runChat(cmd *cobra.Command, opts *Options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, opts.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	stdout := cmd.OutOrStdout()
	stdoutTTY := IsStdoutTTY()

	theme := styles.NewTheme(stdout, cfg.UI.Theme, cfg.UI.Color && ColorsEnabled())
	out := render.New(stdout, render.Options{
		Theme:     theme,
		Markdown:  cfg.UI.Markdown && stdoutTTY,
		WordWrap:  wrapWidth(cfg.UI.WordWrap),
		Spinner:   cfg.UI.Spinner,
		Indicator: stdoutTTY,
		ShowStats: cfg.UI.ShowStats,
	})
	defer out.Close()

	client := newClient(cfg)
	completer := commands.NewCompleter(commands.Builtins())
	prompt := NewPrompt(completer, log)
	defer prompt.Close()

	intr := &interrupter{}
	resolver := &modelResolver{
		client:    client,
		out:       stdout,
		theme:     theme,
		progress:  stdoutTTY,
		timeout:   cfg.RequestTimeout.Duration,
		interrupt: intr,
		log:       log,
	}
	if IsTTY() {
		resolver.ask = prompt
	}

	startCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	modelName, details, err := startupModel(startCtx, client, resolver, out, cfg, log)
	stop()
	if err != nil {
		return err
	}

	engine := session.New(client, out, session.Config{
		Model:          modelName,
		Stream:         cfg.Stream,
		TurnTimeout:    cfg.TurnTimeout.Duration,
		RequestTimeout: cfg.RequestTimeout.Duration,
		Resolver:       resolver.Resolve,
		Logger:         log,
	})
	completer.ModelsFn = (&modelCache{client: client}).Names

	log.Info("session.start",
		zap.String("session_id", engine.SessionID()),
		zap.String("host", cfg.Host),
		zap.String("model", modelName),
		zap.Bool("stream", cfg.Stream),
	)
	printBanner(stdout, theme, cfg.Host, modelName, details)

	done := make(chan struct{})
	go routeInterrupts(engine, intr, done)

	err = engine.Run(ctx, prompt, promptText)
	close(done)

	printExitSummary(stdout, theme, engine)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startupModel checks the server and resolves the configured model. An
// unreachable server or a model that cannot be resolved is reported but not
// fatal; the model is then used as configured. Only an interrupted startup
// returns an error.
func startupModel(ctx context.Context, client *ollama.Client, resolver *modelResolver, out *render.Renderer, cfg *config.Config, log *zap.Logger) (string, *ollama.ShowModelResponse, error) {
	if err := client.CheckRunning(ctx); err != nil {
		log.Warn("server.unreachable", zap.String("host", cfg.Host), zap.Error(err))
		out.Statusf(styles.StatusWarning, "Cannot reach Ollama at %s. Replies will fail until it is running.", cfg.Host)
		return cfg.Model, nil, nil
	}

	name, err := resolver.Resolve(ctx, cfg.Model)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, fmt.Errorf("model %q: %w", cfg.Model, err)
		}
		log.Warn("model.unresolved", zap.String("model", cfg.Model), zap.Error(err))
		out.Statusf(styles.StatusWarning, "Model %q: %v. Continuing anyway; the server may reject requests.", cfg.Model, err)
		return cfg.Model, nil, nil
	}
	if name != cfg.Model {
		log.Info("model.resolved", zap.String("requested", cfg.Model), zap.String("model", name))
	}

	showCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout.Duration)
	defer cancel()
	details, err := client.GetModel(showCtx, name)
	if err != nil {
		log.Debug("model.show_failed", zap.String("model", name), zap.Error(err))
		details = nil
	}
	return name, details, nil
}

// routeInterrupts sends SIGINT to the running turn, or to the operation
// registered with intr, until done is closed. Ctrl-C at the prompt never
// arrives here; the line editor reads it as a key.
func routeInterrupts(engine *session.Engine, intr *interrupter, done <-chan struct{}) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	for {
		select {
		case <-sigs:
			if !engine.Cancel() {
				intr.Fire()
			}
		case <-done:
			return
		}
	}
}

// =============================================================================
// BANNER
// =============================================================================

// printBanner shows the model the session starts with.
func printBanner(w io.Writer, theme *styles.Theme, host, modelName string, details *ollama.ShowModelResponse) {
	rows := [][2]string{
		{"Model", modelName},
		{"Host", host},
	}
	if details != nil {
		rows = append(rows, session.ModelRows(details)...)
	}

	var sb strings.Builder
	sb.WriteString(theme.Title.Render("rigchat " + Version))
	for _, row := range rows {
		sb.WriteString("\n")
		sb.WriteString(theme.Label.Render(runewidth.FillRight(row[0]+":", 14)))
		sb.WriteString(" ")
		sb.WriteString(theme.Value.Render(runewidth.Truncate(row[1], bannerWidth-16, "...")))
	}

	fmt.Fprintln(w, theme.Box.Render(sb.String()))
	fmt.Fprintln(w, theme.Hint.Render("Type a message and press Enter. /help lists commands, Ctrl-D leaves."))
	fmt.Fprintln(w)
}

// printExitSummary prints a one-line summary of the session.
func printExitSummary(w io.Writer, theme *styles.Theme, engine *session.Engine) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.Hint.Render(fmt.Sprintf("Session ended: %s, %s in %s",
		plural(engine.Turns(), "turn"), plural(engine.Conversation().Len(), "message"),
		formatDurationShort(engine.Uptime()))))
}

// plural formats n with noun, adding an s unless n is 1.
func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// =============================================================================
// COMPLETION
// =============================================================================

// modelCache keeps the model list offered by Tab completion.
type modelCache struct {
	client modelService

	mu      sync.Mutex
	names   []string
	fetched time.Time
}

// Names returns the installed models, refetching a stale list. A failed
// fetch keeps the previous list.
func (c *modelCache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.names != nil && time.Since(c.fetched) < completionTTL {
		return c.names
	}
	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	names, err := c.client.ModelNames(ctx)
	if err != nil {
		return c.names
	}
	c.names, c.fetched = names, time.Now()
	return names
}
