// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Input
	}{
		{"empty", "", Input{Kind: KindEmpty}},
		{"whitespace", "  \t ", Input{Kind: KindEmpty}},
		{"chat", "hello", Input{Kind: KindChat, Text: "hello"}},
		{"chat trimmed", "  what is Go?  ", Input{Kind: KindChat, Text: "what is Go?"}},
		{"chat with slash inside", "a/b testing", Input{Kind: KindChat, Text: "a/b testing"}},
		{"reset", "/reset", Input{Kind: KindReset, Command: "/reset"}},
		{"reset alias", "/clear", Input{Kind: KindReset, Command: "/reset"}},
		{"model", "/model mistral", Input{Kind: KindModel, Arg: "mistral", Command: "/model"}},
		{"model tagged", "/model qwen2.5-coder:7b", Input{Kind: KindModel, Arg: "qwen2.5-coder:7b", Command: "/model"}},
		{"model quoted", `/model "my model"`, Input{Kind: KindModel, Arg: "my model", Command: "/model"}},
		{"model uppercase", "/MODEL phi3", Input{Kind: KindModel, Arg: "phi3", Command: "/model"}},
		{"exit", "/exit", Input{Kind: KindExit, Command: "/exit"}},
		{"quit alias", "/quit", Input{Kind: KindExit, Command: "/exit"}},
		{"q alias", " /q ", Input{Kind: KindExit, Command: "/exit"}},
		{"help", "/help", Input{Kind: KindHelp, Command: "/help"}},
		{"help alias", "/?", Input{Kind: KindHelp, Command: "/help"}},
		{"models", "/models", Input{Kind: KindModels, Command: "/models"}},
		{"info", "/info", Input{Kind: KindInfo, Command: "/info"}},
		{"extra args ignored", "/reset now please", Input{Kind: KindReset, Arg: "now", Command: "/reset"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_UnknownCommand(t *testing.T) {
	tests := []struct {
		input      string
		name       string
		suggestion string
	}{
		{"/frobnicate", "/frobnicate", ""},
		{"/", "/", ""},
		{"/hepl", "/hepl", "/help"},
		{"/mod x", "/mod", "/model"},
		{"/resetall", "/resetall", "/reset"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := Parse(tc.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnknownCommand))
			assert.False(t, errors.Is(err, ErrMissingArgument))
			assert.Equal(t, Input{}, got)

			var unknown *UnknownCommandError
			require.ErrorAs(t, err, &unknown)
			assert.Equal(t, tc.name, unknown.Name)
			assert.Equal(t, tc.suggestion, unknown.Suggestion)
		})
	}
}

func TestParse_MissingArgument(t *testing.T) {
	for _, input := range []string{"/model", "/model   ", `/model ""`, "/m"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingArgument)

			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, "/model", argErr.Command)
			assert.Equal(t, "name", argErr.Arg)
			assert.Contains(t, err.Error(), "/model <name>")
		})
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "set-model", KindModel.String())
	assert.Equal(t, "unknown", Kind(42).String())
	assert.False(t, KindEmpty.IsControl())
	assert.False(t, KindChat.IsControl())
	assert.True(t, KindReset.IsControl())
	assert.True(t, KindExit.IsControl())
}

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"/model llama3", []string{"/model", "llama3"}},
		{`/model "two words"`, []string{"/model", "two words"}},
		{`/model 'single q'`, []string{"/model", "single q"}},
		{"  /help   ", []string{"/help"}},
		{"", nil},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, splitCommandLine(tc.input), "input %q", tc.input)
	}
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"/help", "/h", "/?", "/HELP"} {
		cmd := r.Get(name)
		require.NotNil(t, cmd, "Get(%q)", name)
		assert.Equal(t, "/help", cmd.Name)
	}
	assert.Nil(t, r.Get("/nope"))
}

func TestRegistry_Visible(t *testing.T) {
	r := NewRegistry()
	r.Register(&Command{Name: "/debug", Kind: KindHelp, Hidden: true})

	var names []string
	for _, cmd := range r.Visible() {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"/exit", "/help", "/info", "/model", "/models", "/reset"}, names)
	assert.Len(t, r.All(), 7)
}

func TestRegistry_CustomCommand(t *testing.T) {
	r := NewRegistry()
	r.Register(&Command{Name: "/bye", Kind: KindExit})

	in, err := r.Parse("/bye")
	require.NoError(t, err)
	assert.Equal(t, KindExit, in.Kind)

	// The package-level parser is unaffected.
	_, err = Parse("/bye")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
