// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/rigchat/internal/ollama"
)

var (
	// ErrTurnInProgress is returned for input that needs an idle engine
	// while a reply is still being received.
	ErrTurnInProgress = errors.New("a reply is in progress")

	// ErrExit is returned by HandleLine when the user asked to leave.
	ErrExit = errors.New("exit requested")

	// ErrInterrupted is returned by a LineReader when the user pressed
	// Ctrl-C at an empty prompt. Run keeps reading.
	ErrInterrupted = errors.New("interrupted")

	// errCancelled marks a turn stopped through Cancel.
	errCancelled = errors.New("cancelled by user")
)

// abortReason turns the error that ended a turn into a short message.
func abortReason(err error, timeout time.Duration) string {
	switch {
	case errors.Is(err, errCancelled), errors.Is(err, context.Canceled),
		ollama.IsCanceled(err) && !errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded), ollama.IsTimeout(err):
		if timeout > 0 {
			return fmt.Sprintf("no complete reply within %s", timeout)
		}
		return "request timed out"
	case errors.Is(err, ollama.ErrTruncatedStream):
		return "connection closed before the reply was complete"
	case ollama.IsNotRunning(err):
		return "cannot reach the server. Is Ollama running? Try: ollama serve"
	case ollama.IsModelNotFound(err):
		return err.Error() + ". Try /models to see what is installed"
	default:
		return err.Error()
	}
}
