// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the chat prompt.
package commands

import (
	"errors"
	"strings"
	"unicode"
)

// Prefix marks a line as a command rather than chat content.
const Prefix = "/"

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnknownCommand matches any *UnknownCommandError via errors.Is.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMissingArgument matches any *ArgumentError via errors.Is.
	ErrMissingArgument = errors.New("missing argument")
)

// UnknownCommandError reports a prefixed token that is not a registered command.
type UnknownCommandError struct {
	Name string

	// Suggestion is the closest known command, if any.
	Suggestion string
}

func (e *UnknownCommandError) Error() string {
	msg := "unknown command: " + e.Name
	if e.Suggestion != "" {
		msg += " (did you mean " + e.Suggestion + "?)"
	}
	return msg
}

func (e *UnknownCommandError) Is(target error) bool {
	return target == ErrUnknownCommand
}

// ArgumentError reports a required argument that was not supplied.
type ArgumentError struct {
	Command string
	Arg     string
	Usage   string
}

func (e *ArgumentError) Error() string {
	msg := e.Command + ": missing argument '" + e.Arg + "'"
	if e.Usage != "" {
		msg += " - usage: " + e.Usage
	}
	return msg
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrMissingArgument
}

// =============================================================================
// INPUT
// =============================================================================

// Kind classifies one line of user input.
type Kind int

const (
	KindEmpty Kind = iota
	KindChat
	KindReset
	KindModel
	KindExit
	KindHelp
	KindModels
	KindInfo
)

// String returns a short name for the kind, used in logs.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindChat:
		return "chat"
	case KindReset:
		return "reset"
	case KindModel:
		return "set-model"
	case KindExit:
		return "exit"
	case KindHelp:
		return "help"
	case KindModels:
		return "models"
	case KindInfo:
		return "info"
	default:
		return "unknown"
	}
}

// IsControl reports whether the kind is a command rather than chat or nothing.
func (k Kind) IsControl() bool {
	return k != KindEmpty && k != KindChat
}

// Input is the result of parsing one line.
type Input struct {
	Kind Kind

	// Text is the trimmed chat content for KindChat.
	Text string

	// Arg is the command argument, e.g. the model name for KindModel.
	Arg string

	// Command is the registered name of the matched command.
	Command string
}

// =============================================================================
// PARSER
// =============================================================================

var builtins = NewRegistry()

// Parse classifies a line against the built-in commands.
func Parse(line string) (Input, error) {
	return builtins.Parse(line)
}

// Builtins returns the registry Parse uses.
func Builtins() *Registry {
	return builtins
}

// Parse classifies a line. It has no side effects.
func (r *Registry) Parse(line string) (Input, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Input{Kind: KindEmpty}, nil
	}
	if !strings.HasPrefix(line, Prefix) {
		return Input{Kind: KindChat, Text: line}, nil
	}

	parts := splitCommandLine(line)
	if len(parts) == 0 {
		// Only quotes after the prefix, e.g. `/""`
		return Input{}, &UnknownCommandError{Name: line}
	}

	name := parts[0]
	cmd := r.Get(name)
	if cmd == nil {
		return Input{}, &UnknownCommandError{Name: name, Suggestion: r.suggest(name)}
	}

	in := Input{Kind: cmd.Kind, Command: cmd.Name}
	if len(parts) > 1 {
		in.Arg = strings.TrimSpace(parts[1])
	}
	if err := validateArgs(cmd, in.Arg); err != nil {
		return Input{}, err
	}
	return in, nil
}

// suggest returns the registered name closest to an unknown one.
func (r *Registry) suggest(name string) string {
	best, bestScore := "", 0
	lower := strings.ToLower(name)
	for _, cmd := range r.Visible() {
		candidate := strings.ToLower(cmd.Name)
		score := commonPrefix(candidate, lower)
		if score > bestScore {
			best, bestScore = cmd.Name, score
		}
	}
	// The shared "/" alone is not a useful hint.
	if bestScore < 3 {
		return ""
	}
	return best
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// validateArgs checks required arguments against a command's definitions.
func validateArgs(cmd *Command, arg string) error {
	for i, def := range cmd.Args {
		if i == 0 && def.Required && arg == "" {
			return &ArgumentError{Command: cmd.Name, Arg: def.Name, Usage: cmd.Usage}
		}
	}
	return nil
}

// =============================================================================
// ARGUMENT PARSING
// =============================================================================

// splitCommandLine splits a command line into tokens, respecting quotes.
// Supports both single and double quotes for arguments with spaces.
func splitCommandLine(input string) []string {
	var tokens []string
	var current strings.Builder
	var inSingleQuote, inDoubleQuote bool

	for _, char := range input {
		switch {
		case char == '\'' && !inDoubleQuote:
			inSingleQuote = !inSingleQuote

		case char == '"' && !inSingleQuote:
			inDoubleQuote = !inDoubleQuote

		case unicode.IsSpace(char) && !inSingleQuote && !inDoubleQuote:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}

		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}
