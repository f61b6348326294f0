// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: ordered history, active model and the open turn buffer
//   - Message: immutable role/content pair
//   - Snapshot: read-only copy for reporting (/info)
//   - Role: message role enumeration (user, assistant, system)
//
// # Usage
//
//	conv := model.NewConversation("llama3.2")
//	conv.Append(model.NewUserMessage("Hello!"))
//
//	_ = conv.BeginTurn()
//	_ = conv.AppendDelta("Hi ")
//	_ = conv.AppendDelta("there")
//	msg, _ := conv.CommitTurn() // msg.Content == "Hi there"
//
// A turn that fails is dropped with AbortTurn and leaves no trace in the history.
package model
