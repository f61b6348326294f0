// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render draws a conversation turn on the terminal.
//
// A turn goes through three phases on screen:
//
//   - a thinking indicator while no text has arrived yet
//   - streamed text echoed exactly as it arrives
//   - on completion, a Markdown re-render of the committed reply (when it
//     has any structure) and a throughput line
//
// Writes are synchronous. A slow sink slows delta processing with it.
package render
