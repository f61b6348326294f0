// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for rigchat.
package styles

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme names accepted in configuration.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemePlain = "plain"
)

// ThemeNames lists the accepted theme names.
var ThemeNames = []string{ThemeAuto, ThemeDark, ThemeLight, ThemePlain}

// ValidTheme reports whether name is an accepted theme.
func ValidTheme(name string) bool {
	for _, n := range ThemeNames {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Theme holds the styles for one output stream.
// Styles are bound to a lipgloss renderer for that stream, so a Theme built
// for a pipe or buffer renders plain text.
type Theme struct {
	// Terminal capabilities
	Name         string
	IsDark       bool
	ColorProfile termenv.Profile

	renderer *lipgloss.Renderer

	// Chat output
	Prompt         lipgloss.Style
	AssistantLabel lipgloss.Style
	Spinner        lipgloss.Style
	ThinkingText   lipgloss.Style
	ThinkingTime   lipgloss.Style
	Stats          lipgloss.Style

	// Status lines
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Hint    lipgloss.Style

	// Banners and boxes
	Title      lipgloss.Style
	Box        lipgloss.Style
	Label      lipgloss.Style
	Value      lipgloss.Style
	Command    lipgloss.Style
	Separator  lipgloss.Style
	CodeBlock  lipgloss.Style
	CodeBadge  lipgloss.Style
	LineNumber lipgloss.Style
}

// NewTheme creates a theme for w. When color is false, or the theme is
// "plain", every style renders without escape sequences.
func NewTheme(w io.Writer, name string, color bool) *Theme {
	if name == "" {
		name = ThemeAuto
	}
	name = strings.ToLower(name)

	r := lipgloss.NewRenderer(w)
	if !color || name == ThemePlain {
		r.SetColorProfile(termenv.Ascii)
	}
	switch name {
	case ThemeDark:
		r.SetHasDarkBackground(true)
	case ThemeLight:
		r.SetHasDarkBackground(false)
	}

	t := &Theme{
		Name:         name,
		IsDark:       r.HasDarkBackground(),
		ColorProfile: r.ColorProfile(),
		renderer:     r,
	}
	t.initStyles()
	return t
}

// HasColor reports whether the theme emits color sequences.
func (t *Theme) HasColor() bool {
	return t.ColorProfile != termenv.Ascii
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	switch {
	case !t.HasColor():
		return "notty"
	case t.IsDark:
		return "dark"
	default:
		return "light"
	}
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	s := t.renderer.NewStyle

	t.Prompt = s().Foreground(Cyan).Bold(true)
	t.AssistantLabel = s().Foreground(Emerald).Bold(true)
	t.Spinner = s().Foreground(Purple)
	t.ThinkingText = s().Foreground(TextSecondary)
	t.ThinkingTime = s().Foreground(TextMuted)
	t.Stats = s().Foreground(TextMuted)

	t.Success = s().Foreground(Emerald).Bold(true)
	t.Error = s().Foreground(Rose).Bold(true)
	t.Warning = s().Foreground(Amber).Bold(true)
	t.Info = s().Foreground(Cyan)
	t.Hint = s().Foreground(TextMuted).Italic(true)

	t.Title = s().Foreground(Purple).Bold(true)
	t.Box = s().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.Label = s().Foreground(TextSecondary).Bold(true)
	t.Value = s().Foreground(TextPrimary)
	t.Command = s().Foreground(Cyan).Bold(true)
	t.Separator = s().Foreground(Overlay)

	t.CodeBlock = s().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.CodeBadge = s().
		Foreground(TextMuted).
		Background(SurfaceDim).
		Padding(0, 1).
		Bold(true)
	t.LineNumber = s().
		Foreground(TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)
}

// =============================================================================
// STATUS HELPERS
// =============================================================================

// StatusKind selects the indicator and color of a status line.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarning
	StatusError
)

// RenderStatus renders message with the indicator for kind.
func (t *Theme) RenderStatus(kind StatusKind, message string) string {
	switch kind {
	case StatusSuccess:
		return t.Success.Render(StatusIndicators.Success + "  " + message)
	case StatusWarning:
		return t.Warning.Render(StatusIndicators.Warning + "  " + message)
	case StatusError:
		return t.Error.Render(StatusIndicators.Error + "  " + message)
	default:
		return t.Info.Render(StatusIndicators.Info + "  " + message)
	}
}

// Statusf formats and renders a status line.
func (t *Theme) Statusf(kind StatusKind, format string, args ...any) string {
	return t.RenderStatus(kind, fmt.Sprintf(format, args...))
}

// Rule returns a horizontal separator of the given width.
func (t *Theme) Rule(width int) string {
	if width <= 0 {
		return ""
	}
	return t.Separator.Render(strings.Repeat("─", width))
}
