// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/ollama"
)

func TestCanTransition(t *testing.T) {
	legal := map[[2]TurnState]bool{
		{StateIdle, StateAwaitingFirstByte}:      true,
		{StateAwaitingFirstByte, StateStreaming}: true,
		{StateAwaitingFirstByte, StateAborted}:   true,
		{StateStreaming, StateCompleting}:        true,
		{StateStreaming, StateAborted}:           true,
		{StateCompleting, StateIdle}:             true,
		{StateAborted, StateIdle}:                true,
	}

	states := []TurnState{StateIdle, StateAwaitingFirstByte, StateStreaming, StateCompleting, StateAborted}
	for _, from := range states {
		for _, to := range states {
			want := legal[[2]TurnState{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTurnState_String(t *testing.T) {
	assert.Equal(t, "awaiting_first_byte", StateAwaitingFirstByte.String())
	assert.Equal(t, "state(9)", TurnState(9).String())
}

func TestEngine_TransitionGuard(t *testing.T) {
	e, _ := newTestEngine(t, &fakeClient{}, Config{})

	err := e.transition(StateIdle, StateStreaming)
	var transErr *TransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, StateIdle, transErr.From)
	assert.Equal(t, StateStreaming, transErr.To)

	// Legal edge, but the engine is not in the from state.
	err = e.transition(StateStreaming, StateCompleting)
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, StateIdle, transErr.From)
	assert.Equal(t, StateIdle, e.State())

	require.NoError(t, e.transition(StateIdle, StateAwaitingFirstByte))
	assert.Equal(t, StateAwaitingFirstByte, e.State())
}

func TestAbortReason(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		timeout time.Duration
		want    string
	}{
		{"cancel", errCancelled, 0, "cancelled"},
		{"caller context", context.Canceled, 0, "cancelled"},
		{"turn timeout", context.DeadlineExceeded, 30 * time.Second, "no complete reply within 30s"},
		{"request timeout", context.DeadlineExceeded, 0, "request timed out"},
		{"truncated", ollama.ErrTruncatedStream, 0, "connection closed before the reply was complete"},
		{"not running", &ollama.ClientError{Type: ollama.ErrTypeNotRunning, Message: "refused"}, 0,
			"cannot reach the server. Is Ollama running? Try: ollama serve"},
		{"model missing", &ollama.ClientError{Type: ollama.ErrTypeModelNotFound, Message: "model 'x' not found"}, 0,
			"model 'x' not found. Try /models to see what is installed"},
		{"other", errors.New("boom"), 0, "boom"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, abortReason(tc.err, tc.timeout))
		})
	}
}
