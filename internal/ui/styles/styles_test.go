// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		percent float64
		full    int
	}{
		{"empty", 10, 0, 0},
		{"half", 10, 50, 5},
		{"full", 10, 100, 10},
		{"over", 10, 150, 10},
		{"negative", 10, -5, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bar := RenderProgressBar(tc.width, tc.percent)
			assert.Equal(t, tc.width, runewidth.StringWidth(bar))
			assert.Equal(t, tc.full, strings.Count(bar, ProgressFull))
		})
	}

	assert.Empty(t, RenderProgressBar(0, 50))
}

func TestSpinner(t *testing.T) {
	s, ok := Spinner("")
	require.True(t, ok)
	assert.NotEmpty(t, s.Frames)
	assert.Greater(t, int64(s.FPS), int64(0))

	for _, name := range SpinnerNames() {
		s, ok := Spinner(name)
		assert.True(t, ok, name)
		assert.NotEmpty(t, s.Frames, name)
	}

	_, ok = Spinner("nonexistent")
	assert.False(t, ok)

	_, ok = Spinner("LINE")
	assert.True(t, ok)
}

func TestValidTheme(t *testing.T) {
	for _, name := range ThemeNames {
		assert.True(t, ValidTheme(name), name)
	}
	assert.True(t, ValidTheme("Dark"))
	assert.False(t, ValidTheme("neon"))
}

func TestTheme_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	theme := NewTheme(&buf, ThemeDark, false)

	assert.False(t, theme.HasColor())
	assert.Equal(t, "notty", theme.GlamourStyle())

	line := theme.RenderStatus(StatusError, "connection lost")
	assert.Equal(t, "✗  connection lost", line)
	assert.NotContains(t, line, "\x1b[")

	assert.Equal(t, "⚠  slow", theme.Statusf(StatusWarning, "%s", "slow"))
	assert.Equal(t, "───", theme.Rule(3))
	assert.Empty(t, theme.Rule(0))
}

func TestTheme_DefaultsToAuto(t *testing.T) {
	theme := NewTheme(&bytes.Buffer{}, "", true)
	assert.Equal(t, ThemeAuto, theme.Name)
}
