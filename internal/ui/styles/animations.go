// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for rigchat.
package styles

import (
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// =============================================================================
// SPINNER ANIMATIONS
// =============================================================================

// DefaultSpinner is used when no spinner is configured.
const DefaultSpinner = "braille"

// spinners maps configuration names to frame sets.
var spinners = map[string]spinner.Spinner{
	"braille": {
		Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		FPS:    time.Second / 10,
	},
	"line": spinner.Line,
	"dot":  spinner.Dot,
	"mini": spinner.MiniDot,
	"pulse": {
		Frames: []string{"( )", "(.)", "(o)", "(O)", "(o)", "(.)"},
		FPS:    time.Second / 8,
	},
	"dots": {
		Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
		FPS:    time.Second / 6,
	},
	"meter": spinner.Meter,
}

// Spinner returns the frame set registered under name.
func Spinner(name string) (spinner.Spinner, bool) {
	if name == "" {
		name = DefaultSpinner
	}
	s, ok := spinners[strings.ToLower(name)]
	return s, ok
}

// SpinnerNames lists the registered spinner names, sorted.
func SpinnerNames() []string {
	names := make([]string, 0, len(spinners))
	for name := range spinners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// PROGRESS INDICATORS
// =============================================================================

// ProgressBar characters for download progress.
var (
	ProgressFull    = "█"
	ProgressEmpty   = "░"
	ProgressPartial = []string{"▏", "▎", "▍", "▌", "▋", "▊", "▉"}
)

// RenderProgressBar creates a progress bar string.
// width: total width of the bar in characters
// percent: 0-100 percentage complete
func RenderProgressBar(width int, percent float64) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filledWidth := float64(width) * percent / 100
	fullBlocks := int(filledWidth)
	partialIndex := int((filledWidth - float64(fullBlocks)) * float64(len(ProgressPartial)))

	var sb strings.Builder
	sb.Grow(width * 3)

	for i := 0; i < fullBlocks && i < width; i++ {
		sb.WriteString(ProgressFull)
	}

	if fullBlocks < width && partialIndex > 0 {
		sb.WriteString(ProgressPartial[partialIndex-1])
		fullBlocks++
	}

	for i := fullBlocks; i < width; i++ {
		sb.WriteString(ProgressEmpty)
	}

	return sb.String()
}
