// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigchat command line.
//
// The root command starts an interactive chat. It loads the config, applies
// the global flags, opens the session log, resolves the model against the
// server (offering to pull it when it is missing) and hands the terminal to
// a session.Engine. Input is read through liner with arrow-key history and
// Tab completion; SIGINT is routed to the running reply.
//
// # Commands
//
//	rigchat [chat]            Interactive chat (default)
//	rigchat models [--json]   List installed models
//	rigchat config init       Write a config file with the defaults
//	rigchat config show       Print the effective settings
//	rigchat config path       Print where config files are looked for
//	rigchat version           Print the version
//	rigchat mock-server       Scripted stand-in for the Ollama API (hidden)
//
// # Global Flags
//
//	--config PATH     Config file (TOML, or YAML by extension)
//	--host URL        API base URL including /api
//	-m, --model NAME  Model to chat with
//	--no-stream       Ask for whole replies
//	--timeout DUR     Abort replies that take longer
//	-v, --verbose     Log debug events
//	--no-color        Disable colored output
//
// Errors are printed with a hint by DisplayError and mapped to exit codes by
// GetExitCode.
package cli
