// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"

	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// DefaultWordWrap is the width used for formatted output when none is set.
const DefaultWordWrap = 80

// Options configures a Renderer.
type Options struct {
	// Theme styles all output. Built from the writer when nil.
	Theme *styles.Theme

	// Markdown enables the formatted re-render of completed replies.
	Markdown bool

	// WordWrap is the width of formatted output (default: 80).
	WordWrap int

	// Spinner names the thinking-indicator frame set.
	Spinner string

	// Indicator enables the thinking indicator. Leave it off for
	// output that is not a terminal.
	Indicator bool

	// ShowStats prints the token/throughput line after each reply.
	ShowStats bool

	// Buffered holds deltas back and prints the reply once, on completion.
	// Used when the server sends the whole reply as one object.
	Buffered bool
}

// Renderer writes one conversation's output to a sink.
//
// All methods are called from a single goroutine. The thinking indicator runs
// on its own goroutine; writes from both are serialized.
type Renderer struct {
	out   io.Writer
	opts  Options
	theme *styles.Theme
	spin  spinner.Spinner
	md    *markdown

	mu        sync.Mutex
	ind       *indicator
	lineWidth int // width of the indicator line currently on screen

	started     bool // a delta has been shown this turn
	atLineStart bool
	model       string
}

// New creates a Renderer writing to out.
func New(out io.Writer, opts Options) *Renderer {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(out, styles.ThemeAuto, true)
	}
	if opts.WordWrap <= 0 {
		opts.WordWrap = DefaultWordWrap
	}
	spin, ok := styles.Spinner(opts.Spinner)
	if !ok {
		spin, _ = styles.Spinner(styles.DefaultSpinner)
	}

	return &Renderer{
		out:         out,
		opts:        opts,
		theme:       opts.Theme,
		spin:        spin,
		md:          newMarkdown(opts.Theme, opts.WordWrap),
		atLineStart: true,
	}
}

// Theme returns the theme the renderer draws with.
func (r *Renderer) Theme() *styles.Theme {
	return r.theme
}

// SetBuffered switches between echoing deltas and printing whole replies.
func (r *Renderer) SetBuffered(buffered bool) {
	r.opts.Buffered = buffered
}

// =============================================================================
// TURN OUTPUT
// =============================================================================

// BeginTurn prepares for a reply from model and starts the thinking indicator.
func (r *Renderer) BeginTurn(model string) {
	r.started = false
	r.model = model
	r.startIndicator()
}

// Delta shows one piece of streamed text. The first call of a turn stops the
// thinking indicator and prints the reply header.
func (r *Renderer) Delta(text string) error {
	if text == "" {
		return nil
	}
	r.stopIndicator()
	if r.opts.Buffered {
		return nil
	}
	if !r.started {
		r.started = true
		if err := r.writeLine(r.header()); err != nil {
			return err
		}
	}
	return r.write(text)
}

// Complete finishes a reply. content is the committed text; stats may be nil.
// elapsed is the wall time since the request was sent.
func (r *Renderer) Complete(content string, stats *ollama.Stats, elapsed time.Duration) error {
	r.stopIndicator()

	var sb strings.Builder
	switch {
	case r.opts.Buffered:
		sb.WriteString(r.header() + "\n")
		sb.WriteString(r.format(content))
		sb.WriteString("\n")
	case r.started:
		if !r.atLineStart {
			sb.WriteString("\n")
		}
		if r.opts.Markdown && HasMarkdown(content) {
			sb.WriteString(r.theme.Rule(r.opts.WordWrap) + "\n")
			sb.WriteString(r.format(content))
			sb.WriteString("\n")
		}
	default:
		sb.WriteString(r.theme.RenderStatus(styles.StatusInfo, "(empty reply)") + "\n")
	}

	if r.opts.ShowStats {
		if line := StatsLine(stats, elapsed); line != "" {
			sb.WriteString(r.theme.Stats.Render(line) + "\n")
		}
		if stats != nil && stats.PromptTokens > 0 {
			sb.WriteString(r.theme.Stats.Render(fmt.Sprintf("   Prompt: %d tokens", stats.PromptTokens)) + "\n")
		}
	}

	r.started = false
	return r.write(sb.String())
}

// Abort ends a turn that did not complete. Text already shown stays on screen.
func (r *Renderer) Abort(reason string) error {
	r.stopIndicator()

	var sb strings.Builder
	if r.started && !r.atLineStart {
		sb.WriteString("\n")
	}
	sb.WriteString(r.theme.RenderStatus(styles.StatusWarning, "[Interrupted] "+reason))
	sb.WriteString("\n")

	r.started = false
	return r.write(sb.String())
}

func (r *Renderer) header() string {
	label := "Assistant:"
	if r.model != "" {
		label = "Assistant (" + r.model + "):"
	}
	return r.theme.AssistantLabel.Render(label)
}

// format renders completed text for display. Without Markdown, fenced code
// is still highlighted when the theme has colors.
func (r *Renderer) format(content string) string {
	switch {
	case r.opts.Markdown:
		return r.md.Render(content)
	case r.theme.HasColor() && strings.Contains(content, "```"):
		return r.md.highlightBlocks(content)
	default:
		return content
	}
}

// =============================================================================
// STATUS OUTPUT
// =============================================================================

// Status prints a single status line.
func (r *Renderer) Status(kind styles.StatusKind, message string) error {
	r.stopIndicator()
	return r.writeLine(r.theme.RenderStatus(kind, message))
}

// Statusf formats and prints a status line.
func (r *Renderer) Statusf(kind styles.StatusKind, format string, args ...any) error {
	return r.Status(kind, fmt.Sprintf(format, args...))
}

// Println writes s followed by a newline.
func (r *Renderer) Println(s string) error {
	r.stopIndicator()
	return r.writeLine(s)
}

// Close stops the indicator if it is still running.
func (r *Renderer) Close() {
	r.stopIndicator()
}

// =============================================================================
// WRITING
// =============================================================================

func (r *Renderer) writeLine(s string) error {
	if !r.atLineStart {
		s = "\n" + s
	}
	return r.write(s + "\n")
}

func (r *Renderer) write(s string) error {
	if s == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.atLineStart = strings.HasSuffix(s, "\n")
	_, err := io.WriteString(r.out, s)
	return err
}

// =============================================================================
// STATS
// =============================================================================

// StatsLine formats the throughput summary for a reply, or "" when no
// tokens were counted.
func StatsLine(stats *ollama.Stats, elapsed time.Duration) string {
	if stats == nil || stats.CompletionTokens <= 0 {
		return ""
	}
	total := elapsed
	if stats.TotalDuration > 0 {
		total = stats.TotalDuration
	}
	if total <= 0 {
		return ""
	}
	tps := stats.TokensPerSecond()
	if tps == 0 {
		tps = float64(stats.CompletionTokens) / total.Seconds()
	}
	return fmt.Sprintf("⚡ %d tokens in %.2fs (%.2f tokens/s)", stats.CompletionTokens, total.Seconds(), tps)
}
