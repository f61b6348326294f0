// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "fmt"

// TurnState is the position of the engine in the life of one chat turn.
type TurnState int32

const (
	// StateIdle: no turn is open; commands and new prompts are accepted.
	StateIdle TurnState = iota
	// StateAwaitingFirstByte: the request is out and no text has arrived.
	StateAwaitingFirstByte
	// StateStreaming: text is arriving and being echoed.
	StateStreaming
	// StateCompleting: the terminal fragment arrived; the reply is committed.
	StateCompleting
	// StateAborted: the turn failed or was cancelled; the reply is dropped.
	StateAborted
)

// String returns the state name used in logs.
func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstByte:
		return "awaiting_first_byte"
	case StateStreaming:
		return "streaming"
	case StateCompleting:
		return "completing"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// transitions lists the legal edges of the turn state machine.
var transitions = map[TurnState][]TurnState{
	StateIdle:              {StateAwaitingFirstByte},
	StateAwaitingFirstByte: {StateStreaming, StateAborted},
	StateStreaming:         {StateCompleting, StateAborted},
	StateCompleting:        {StateIdle},
	StateAborted:           {StateIdle},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to TurnState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionError reports an illegal state change.
type TransitionError struct {
	From TurnState
	To   TurnState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal turn transition %s -> %s", e.From, e.To)
}
