// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session runs an interactive chat session against an Ollama server.
//
// The Engine reads lines, dispatches slash commands and drives each chat turn
// through a small state machine:
//
//	Idle -> AwaitingFirstByte -> Streaming -> Completing -> Idle
//	           |                    |
//	           +------> Aborted <---+------> Idle
//
// A turn streams the reply from the server, echoes every fragment as it
// arrives and commits the full reply to the conversation only when the
// server marks it done. A dropped connection, a timeout or Cancel abort the
// turn; the partial reply is discarded and the user message stays in the
// history.
//
// # Usage
//
//	client := ollama.NewClient()
//	out := render.New(os.Stdout, render.Options{Theme: theme, Markdown: true})
//	engine := session.New(client, out, session.Config{Model: "llama3.2", Stream: true})
//	err := engine.Run(ctx, reader, "> ")
//
// Cancel may be called from a signal handler while Run is blocked in a turn.
package session
