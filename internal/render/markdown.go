// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// markdown formats completed replies with glamour. Fenced code blocks are
// highlighted with chroma when Markdown rendering is off or glamour fails.
type markdown struct {
	theme *styles.Theme
	width int
	term  *glamour.TermRenderer
}

func newMarkdown(theme *styles.Theme, width int) *markdown {
	m := &markdown{theme: theme, width: width}
	term, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		m.term = term
	}
	return m
}

// Render formats content for the terminal. It never fails: when glamour
// cannot render, code blocks are highlighted and prose is left as is.
func (m *markdown) Render(content string) string {
	if m.term != nil {
		if rendered, err := m.term.Render(content); err == nil {
			return strings.TrimRight(rendered, "\n")
		}
	}
	return m.highlightBlocks(content)
}

var markdownPatterns = []*regexp.Regexp{
	regexp.MustCompile("(?m)^```"),                // fenced code
	regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`),      // table row
	regexp.MustCompile(`(?m)^#{1,6}\s`),           // heading
	regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s`), // list item
	regexp.MustCompile(`\*\*[^*]+\*\*`),           // bold
}

// HasMarkdown reports whether text uses Markdown structure worth re-rendering.
func HasMarkdown(text string) bool {
	for _, re := range markdownPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// =============================================================================
// CODE BLOCKS
// =============================================================================

// highlightBlocks replaces fenced code blocks with highlighted, boxed versions.
func (m *markdown) highlightBlocks(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	var inCodeBlock bool
	var codeLines []string
	var language string

	flush := func() {
		result = append(result, m.codeBlock(language, strings.Join(codeLines, "\n")))
		codeLines = nil
		language = ""
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "```") && inCodeBlock:
			flush()
			inCodeBlock = false
		case strings.HasPrefix(line, "```"):
			language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
			inCodeBlock = true
		case inCodeBlock:
			codeLines = append(codeLines, line)
		default:
			result = append(result, line)
		}
	}

	if inCodeBlock && len(codeLines) > 0 {
		flush()
	}

	return strings.Join(result, "\n")
}

// codeBlock renders one block with a language badge and line numbers.
func (m *markdown) codeBlock(language, code string) string {
	highlighted := m.highlight(code, language)

	var sb strings.Builder
	if language != "" {
		sb.WriteString(m.theme.CodeBadge.Render(language) + "\n")
	}
	for i, line := range strings.Split(highlighted, "\n") {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.theme.LineNumber.Render(strconv.Itoa(i+1)) + line)
	}

	maxWidth := m.width
	if maxWidth < 20 {
		maxWidth = 20
	}
	return m.theme.CodeBlock.MaxWidth(maxWidth).Render(sb.String())
}

// highlight applies syntax highlighting with the formatter matching the
// theme's color profile. Plain themes get the code back unchanged.
func (m *markdown) highlight(code, language string) string {
	formatterName := ""
	switch m.theme.ColorProfile {
	case termenv.TrueColor:
		formatterName = "terminal16m"
	case termenv.ANSI256:
		formatterName = "terminal256"
	case termenv.ANSI:
		formatterName = "terminal"
	default:
		return code
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if !m.theme.IsDark {
		styleName = "github"
	}
	style := chromaStyles.Get(styleName)

	formatter := formatters.Get(formatterName)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
