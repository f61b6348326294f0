// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a scripted mock of the Ollama HTTP API.
//
// It streams a fixed script (or an echo of the prompt) word by word as
// NDJSON, so the chat client can be demonstrated and tested without a model.
//
// # Endpoints
//
//   - POST /api/chat    - streaming and non-streaming chat
//   - GET  /api/tags    - installed models
//   - POST /api/show    - model details
//   - POST /api/pull    - progress stream; installs the model
//   - GET  /api/version - server version
//
// # Fault Injection
//
// Options.DropAfter cuts the connection after N words without a done line,
// and Options.FirstByteDelay holds the reply back, for exercising the
// client's interrupted and timeout paths.
package server
