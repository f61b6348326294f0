// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the chat prompt.
//
// Parsing is pure: Parse classifies a line and never touches conversation
// state or the network. The caller dispatches on the returned Kind.
//
// # Built-in Commands
//
//   - /help (/h, /?): Show available commands
//   - /exit (/quit, /q): Leave the prompt
//   - /reset (/clear): Clear the conversation history
//   - /model <name> (/m): Switch models
//   - /models: List models on the server
//   - /info (/i): Show details of the current model
//
// # Usage
//
//	in, err := commands.Parse(line)
//	switch {
//	case errors.Is(err, commands.ErrUnknownCommand):
//	    // report inline
//	case in.Kind == commands.KindChat:
//	    // start a turn with in.Text
//	}
//
// Completions for a line editor:
//
//	completer := commands.NewCompleter(commands.Builtins())
//	completer.Lines("/mo") // ["/model", "/models"]
package commands
