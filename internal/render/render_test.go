// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// syncBuffer is a bytes.Buffer safe to read while the indicator writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestRenderer(out interface {
	Write([]byte) (int, error)
}, opts Options) *Renderer {
	opts.Theme = styles.NewTheme(out, styles.ThemePlain, false)
	return New(out, opts)
}

// =============================================================================
// TURN TESTS
// =============================================================================

func TestRenderer_DeltasInArrivalOrder(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRenderer(&buf, Options{})

	r.BeginTurn("llama3.2")
	for _, d := range []string{"Hi", "", " the", "re"} {
		require.NoError(t, r.Delta(d))
	}
	require.NoError(t, r.Complete("Hi there", nil, time.Second))

	assert.Equal(t, "Assistant (llama3.2):\nHi there\n", buf.String())
}

func TestRenderer_CompleteWithStats(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRenderer(&buf, Options{ShowStats: true})

	r.BeginTurn("")
	require.NoError(t, r.Delta("ok\n"))
	stats := &ollama.Stats{
		CompletionTokens: 42,
		PromptTokens:     12,
		TotalDuration:    2 * time.Second,
		EvalDuration:     time.Second,
	}
	require.NoError(t, r.Complete("ok\n", stats, 3*time.Second))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Assistant:\nok\n"), out)
	assert.Contains(t, out, "⚡ 42 tokens in 2.00s (42.00 tokens/s)")
	assert.Contains(t, out, "Prompt: 12 tokens")
}

func TestRenderer_EmptyReply(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRenderer(&buf, Options{})

	r.BeginTurn("m")
	require.NoError(t, r.Complete("", nil, 0))
	assert.Contains(t, buf.String(), "(empty reply)")
}

func TestRenderer_AbortKeepsPartialText(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRenderer(&buf, Options{})

	r.BeginTurn("m")
	require.NoError(t, r.Delta("Hel"))
	require.NoError(t, r.Abort("connection lost"))

	assert.Equal(t, "Assistant (m):\nHel\n⚠  [Interrupted] connection lost\n", buf.String())
}

func TestRenderer_AbortBeforeFirstByte(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRenderer(&buf, Options{})

	r.BeginTurn("m")
	require.NoError(t, r.Abort("cancelled"))
	assert.Equal(t, "⚠  [Interrupted] cancelled\n", buf.String())
}

func TestRenderer_Buffered(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRenderer(&buf, Options{Buffered: true})

	r.BeginTurn("m")
	require.NoError(t, r.Delta("whole reply"))
	assert.Empty(t, buf.String())

	require.NoError(t, r.Complete("whole reply", nil, 0))
	assert.Equal(t, "Assistant (m):\nwhole reply\n", buf.String())
}

func TestRenderer_MarkdownReRender(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRenderer(&buf, Options{Markdown: true, WordWrap: 40})

	reply := "Here:\n\n```go\nfmt.Println(\"hi\")\n```\n"
	r.BeginTurn("m")
	require.NoError(t, r.Delta(reply))
	require.NoError(t, r.Complete(reply, nil, 0))

	out := buf.String()
	// Raw echo first, then a separator and the formatted copy.
	assert.Equal(t, 1, strings.Count(out, "Assistant (m):"))
	assert.Contains(t, out, strings.Repeat("─", 40))
	assert.Equal(t, 2, strings.Count(out, `fmt.Println("hi")`))
}

func TestRenderer_PlainReplyNotReRendered(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRenderer(&buf, Options{Markdown: true})

	r.BeginTurn("m")
	require.NoError(t, r.Delta("just words"))
	require.NoError(t, r.Complete("just words", nil, 0))

	assert.Equal(t, 1, strings.Count(buf.String(), "just words"))
}

func TestRenderer_Status(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRenderer(&buf, Options{})

	require.NoError(t, r.Statusf(styles.StatusSuccess, "switched to %s", "mistral"))
	require.NoError(t, r.Println("plain"))
	assert.Equal(t, "✓  switched to mistral\nplain\n", buf.String())
}

// =============================================================================
// INDICATOR TESTS
// =============================================================================

func TestRenderer_IndicatorStopsOnFirstDelta(t *testing.T) {
	defer goleak.VerifyNone(t)

	buf := &syncBuffer{}
	r := newTestRenderer(buf, Options{Indicator: true, Spinner: "line"})

	r.BeginTurn("m")
	require.Eventually(t, func() bool {
		return strings.Count(buf.String(), "Thinking...") >= 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, r.Delta("first"))
	snapshot := buf.String()
	assert.True(t, strings.HasSuffix(snapshot, "Assistant (m):\nfirst"), snapshot)

	// Nothing is drawn after the first delta.
	time.Sleep(3 * spinnerInterval(r))
	assert.Equal(t, snapshot, buf.String())

	require.NoError(t, r.Complete("first", nil, 0))
}

func TestRenderer_IndicatorClearedOnAbort(t *testing.T) {
	defer goleak.VerifyNone(t)

	buf := &syncBuffer{}
	r := newTestRenderer(buf, Options{Indicator: true})

	r.BeginTurn("m")
	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "Thinking...")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, r.Abort("timed out"))
	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "\r⚠  [Interrupted] timed out\n"), "%q", out)
}

func TestRenderer_CloseStopsIndicator(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newTestRenderer(&syncBuffer{}, Options{Indicator: true})
	r.BeginTurn("m")
	r.BeginTurn("m") // second start is a no-op
	r.Close()
	r.Close()
}

func spinnerInterval(r *Renderer) time.Duration {
	return r.spin.FPS
}

// =============================================================================
// FORMATTING TESTS
// =============================================================================

func TestHasMarkdown(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"plain sentence.", false},
		{"```\ncode\n```", true},
		{"| a | b |\n|---|---|\n| 1 | 2 |", true},
		{"# Title", true},
		{"- one\n- two", true},
		{"1. first", true},
		{"this is **bold**", true},
		{"a - b = c", false},
		{"#hashtag", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, HasMarkdown(tc.text), "%q", tc.text)
	}
}

func TestStatsLine(t *testing.T) {
	tests := []struct {
		name    string
		stats   *ollama.Stats
		elapsed time.Duration
		want    string
	}{
		{"nil stats", nil, time.Second, ""},
		{"no tokens", &ollama.Stats{}, time.Second, ""},
		{
			"server durations",
			&ollama.Stats{CompletionTokens: 10, TotalDuration: 2 * time.Second, EvalDuration: 500 * time.Millisecond},
			5 * time.Second,
			"⚡ 10 tokens in 2.00s (20.00 tokens/s)",
		},
		{
			"wall clock fallback",
			&ollama.Stats{CompletionTokens: 10},
			4 * time.Second,
			"⚡ 10 tokens in 4.00s (2.50 tokens/s)",
		},
		{"no time at all", &ollama.Stats{CompletionTokens: 3}, 0, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatsLine(tc.stats, tc.elapsed))
		})
	}
}

func TestMarkdown_HighlightBlocksPlain(t *testing.T) {
	theme := styles.NewTheme(&bytes.Buffer{}, styles.ThemePlain, false)
	m := &markdown{theme: theme, width: 60}

	out := m.highlightBlocks("before\n```python\nprint(1)\nprint(2)\n```\nafter")

	assert.True(t, strings.HasPrefix(out, "before\n"))
	assert.True(t, strings.HasSuffix(out, "\nafter"))
	assert.Contains(t, out, "python")
	assert.Contains(t, out, "print(1)")
	assert.Contains(t, out, "2 print(2)")
	assert.NotContains(t, out, "```")
}

func TestMarkdown_UnclosedBlock(t *testing.T) {
	theme := styles.NewTheme(&bytes.Buffer{}, styles.ThemePlain, false)
	m := &markdown{theme: theme, width: 60}

	out := m.highlightBlocks("```\nleft open")
	assert.Contains(t, out, "left open")
	assert.NotContains(t, out, "```")
}

// colorTheme is a dark theme that emits 256-color sequences.
func colorTheme(w *bytes.Buffer) *styles.Theme {
	theme := styles.NewTheme(w, styles.ThemeDark, true)
	theme.ColorProfile = termenv.ANSI256
	return theme
}

func TestMarkdown_HighlightColored(t *testing.T) {
	m := &markdown{theme: colorTheme(&bytes.Buffer{}), width: 60}

	out := m.highlight("package main\n\nfunc main() {}", "go")
	assert.Contains(t, out, "\x1b[38;5;")
	assert.Contains(t, out, "func")
	assert.NotEqual(t, "package main\n\nfunc main() {}", out)
}

func TestRenderer_BufferedHighlightsCodeWithoutMarkdown(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Options{Theme: colorTheme(&buf), Buffered: true})

	r.BeginTurn("m")
	require.NoError(t, r.Complete("Run this:\n```go\nfmt.Println(42)\n```", nil, 0))

	out := buf.String()
	assert.Contains(t, out, "Run this:")
	assert.Contains(t, out, "\x1b[38;5;")
	assert.Contains(t, out, "Println")
	assert.NotContains(t, out, "```")
}
