// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/rigchat/internal/ollama"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTurnAlreadyActive is returned by BeginTurn while a reply is accumulating.
	ErrTurnAlreadyActive = errors.New("a turn is already active")

	// ErrNoActiveTurn is returned when a turn operation is called with no turn open.
	ErrNoActiveTurn = errors.New("no active turn")

	// ErrEmptyModel is returned by SetModel for a blank model name.
	ErrEmptyModel = errors.New("model name is empty")
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the ordered message history, the active model and the
// reply being accumulated for the current turn, if any.
//
// At most one turn is open at a time. Its text only becomes part of the
// history through CommitTurn; AbortTurn drops it.
type Conversation struct {
	mu sync.RWMutex

	messages []Message
	model    string

	// pending is non-nil while a turn is open.
	pending *strings.Builder
}

// NewConversation creates an empty conversation for the given model.
func NewConversation(model string) *Conversation {
	return &Conversation{
		messages: make([]Message, 0, 16),
		model:    strings.TrimSpace(model),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the end of the history.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

// Reset clears the history and any open turn. The model is kept.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = c.messages[:0:0]
	c.pending = nil
}

// SetModel switches the active model. History is left untouched.
func (c *Conversation) SetModel(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyModel
	}
	c.mu.Lock()
	c.model = name
	c.mu.Unlock()
	return nil
}

// =============================================================================
// TURN ACCUMULATION
// =============================================================================

// BeginTurn opens the accumulation buffer for a new assistant reply.
func (c *Conversation) BeginTurn() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return ErrTurnAlreadyActive
	}
	c.pending = &strings.Builder{}
	return nil
}

// AppendDelta adds streamed text to the open turn.
func (c *Conversation) AppendDelta(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return ErrNoActiveTurn
	}
	c.pending.WriteString(text)
	return nil
}

// CommitTurn turns the accumulated text into an assistant message, appends
// it to the history and closes the turn.
func (c *Conversation) CommitTurn() (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Message{}, ErrNoActiveTurn
	}
	msg := NewAssistantMessage(c.pending.String())
	c.messages = append(c.messages, msg)
	c.pending = nil
	return msg, nil
}

// AbortTurn discards the open turn, if any. Calling it with no turn open is a no-op.
func (c *Conversation) AbortTurn() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Model returns the active model name.
func (c *Conversation) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// Len returns the number of committed messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Pending returns the text accumulated so far in the open turn.
func (c *Conversation) Pending() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pending == nil {
		return ""
	}
	return c.pending.String()
}

// WireMessages returns the history in request form, oldest first.
func (c *Conversation) WireMessages() []ollama.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ollama.Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Wire()
	}
	return out
}

// EstimateTokens sums the token estimates of every committed message.
func (c *Conversation) EstimateTokens() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, m := range c.messages {
		total += m.EstimateTokens()
	}
	return total
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a read-only copy of a Conversation.
type Snapshot struct {
	Model      string
	Messages   []Message
	Pending    string
	TurnActive bool
}

// Snapshot copies the current state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Snapshot{
		Model:    c.model,
		Messages: make([]Message, len(c.messages)),
	}
	copy(s.Messages, c.messages)
	if c.pending != nil {
		s.TurnActive = true
		s.Pending = c.pending.String()
	}
	return s
}

// LastOf returns the most recent message with the given role.
func (s Snapshot) LastOf(role Role) (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == role {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}
