// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// EVENTS
// =============================================================================

type eventKind int

const (
	evFragment eventKind = iota
	evStreamError
	evEnd
	evCancel
)

// event is what the turn goroutines tell the engine.
type event struct {
	kind eventKind
	frag ollama.Fragment
	err  error
}

// turn holds the per-turn plumbing shared with the goroutines.
type turn struct {
	ctx    context.Context
	events chan event
	quit   chan struct{} // closed when the engine stops listening
}

// send delivers ev unless the engine has stopped listening.
func (t *turn) send(ev event) bool {
	select {
	case t.events <- ev:
		return true
	case <-t.quit:
		return false
	}
}

// =============================================================================
// TURN
// =============================================================================

// runTurn sends one prompt and drives the reply through the state machine.
// Every exit path leaves the engine Idle with the reply committed or dropped.
func (e *Engine) runTurn(ctx context.Context, text string) {
	e.conv.Append(model.NewUserMessage(text))
	if err := e.conv.BeginTurn(); err != nil {
		e.internalError(err)
		return
	}

	e.turns++
	log := e.log.With(zap.Int("turn", e.turns), zap.String("model", e.conv.Model()))

	turnCtx, cancel := context.WithCancelCause(ctx)
	if e.cfg.TurnTimeout > 0 {
		var stop context.CancelFunc
		turnCtx, stop = context.WithTimeout(turnCtx, e.cfg.TurnTimeout)
		defer stop()
	}
	e.setCancel(cancel)
	defer e.setCancel(nil)

	if err := e.transition(StateIdle, StateAwaitingFirstByte); err != nil {
		cancel(err)
		e.conv.AbortTurn()
		e.internalError(err)
		return
	}

	req := ollama.ChatRequest{
		Model:    e.conv.Model(),
		Messages: e.conv.WireMessages(),
		Stream:   e.cfg.Stream,
	}
	start := time.Now()
	log.Info("turn.start", zap.Int("messages", len(req.Messages)), zap.Bool("stream", req.Stream))
	e.out.BeginTurn(req.Model)

	t := &turn{
		ctx:    turnCtx,
		events: make(chan event),
		quit:   make(chan struct{}),
	}

	var g errgroup.Group
	g.Go(func() error { e.readStream(t, req); return nil })
	g.Go(func() error { watchCancel(t); return nil })

	stats, err := e.consume(t, log, start)

	// Stop the request before anything else so the reader unblocks.
	cancel(errTurnOver)
	close(t.quit)
	_ = g.Wait()

	if err != nil {
		e.abort(err, log, start)
		return
	}
	e.complete(stats, log, start)
}

// errTurnOver cancels a turn's context once the engine is done with it.
var errTurnOver = errors.New("turn finished")

// consume processes events until the reply is complete or the turn fails.
// It returns the completion statistics, or the error that aborts the turn.
func (e *Engine) consume(t *turn, log *zap.Logger, start time.Time) (*ollama.Stats, error) {
	for ev := range t.events {
		// A cancellation that raced a fragment wins.
		if t.ctx.Err() != nil {
			return nil, turnError(t.ctx)
		}

		switch ev.kind {
		case evFragment:
			frag := ev.frag
			if frag.Err != nil {
				log.Debug("fragment.malformed", zap.Error(frag.Err))
				continue
			}
			if frag.IsDelta() {
				if err := e.delta(frag.Content, log, start); err != nil {
					return nil, err
				}
			}
			if frag.Done {
				if e.State() == StateAwaitingFirstByte {
					// Empty reply: nothing was streamed.
					if err := e.transition(StateAwaitingFirstByte, StateStreaming); err != nil {
						return nil, err
					}
				}
				if err := e.transition(StateStreaming, StateCompleting); err != nil {
					return nil, err
				}
				return frag.Stats, nil
			}

		case evStreamError:
			return nil, ev.err

		case evEnd:
			return nil, ollama.ErrTruncatedStream

		case evCancel:
			return nil, ev.err
		}
	}
	return nil, ollama.ErrTruncatedStream
}

// delta applies one piece of reply text.
func (e *Engine) delta(text string, log *zap.Logger, start time.Time) error {
	if e.State() == StateAwaitingFirstByte {
		if err := e.transition(StateAwaitingFirstByte, StateStreaming); err != nil {
			return err
		}
		log.Info("turn.first_byte", zap.Duration("ttft", time.Since(start)))
	}
	if err := e.conv.AppendDelta(text); err != nil {
		return err
	}
	if err := e.out.Delta(text); err != nil {
		log.Warn("render.delta", zap.Error(err))
	}
	return nil
}

// complete commits the reply: Completing -> Idle.
func (e *Engine) complete(stats *ollama.Stats, log *zap.Logger, start time.Time) {
	msg, err := e.conv.CommitTurn()
	if err != nil {
		e.forceIdle()
		e.internalError(err)
		return
	}

	elapsed := time.Since(start)
	if err := e.out.Complete(msg.Content, stats, elapsed); err != nil {
		log.Warn("render.complete", zap.Error(err))
	}

	fields := []zap.Field{zap.Duration("elapsed", elapsed), zap.Int("chars", len(msg.Content))}
	if stats != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", stats.PromptTokens),
			zap.Int("completion_tokens", stats.CompletionTokens))
	}
	log.Info("turn.complete", fields...)

	if err := e.transition(StateCompleting, StateIdle); err != nil {
		e.forceIdle()
		e.internalError(err)
	}
}

// abort drops the reply: AwaitingFirstByte/Streaming -> Aborted -> Idle.
// State-machine errors are reported as internal errors.
func (e *Engine) abort(cause error, log *zap.Logger, start time.Time) {
	partial := len(e.conv.Pending())
	e.conv.AbortTurn()

	var transErr *TransitionError
	internal := errors.As(cause, &transErr) ||
		errors.Is(cause, model.ErrNoActiveTurn) ||
		errors.Is(cause, model.ErrTurnAlreadyActive)

	if err := e.transition(e.State(), StateAborted); err != nil {
		e.forceIdle()
		e.internalError(cause)
		return
	}

	reason := abortReason(cause, e.cfg.TurnTimeout)
	if internal {
		reason = "internal error: " + cause.Error()
	}
	if err := e.out.Abort(reason); err != nil {
		log.Warn("render.abort", zap.Error(err))
	}
	log.Info("turn.aborted",
		zap.String("reason", reason),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("dropped_chars", partial),
		zap.Error(cause))

	if err := e.transition(StateAborted, StateIdle); err != nil {
		e.forceIdle()
	}
}

// forceIdle puts the state machine back to Idle after an internal error.
func (e *Engine) forceIdle() {
	e.conv.AbortTurn()
	e.state.Store(int32(StateIdle))
}

func (e *Engine) internalError(err error) {
	e.log.Error("engine.internal", zap.Error(err))
	e.out.Status(styles.StatusError, fmt.Sprintf("internal error: %v", err))
}

// setCancel registers the running turn's cancel func, firing it at once if
// Cancel was called while the turn was starting.
func (e *Engine) setCancel(cancel context.CancelCauseFunc) {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()
	e.cancelTurn = cancel
	e.turnQueued = false
	if cancel != nil && e.cancelSoon {
		e.cancelSoon = false
		cancel(errCancelled)
	}
}

// =============================================================================
// TURN GOROUTINES
// =============================================================================

// readStream opens the request and forwards every fragment. The response
// body is closed on every path.
func (e *Engine) readStream(t *turn, req ollama.ChatRequest) {
	dec, err := e.client.ChatStream(t.ctx, req)
	if err != nil {
		if t.ctx.Err() != nil {
			err = turnError(t.ctx)
		}
		t.send(event{kind: evStreamError, err: err})
		return
	}
	defer dec.Close()

	for dec.Next() {
		if !t.send(event{kind: evFragment, frag: dec.Fragment()}) {
			return
		}
	}
	if err := dec.Err(); err != nil {
		if t.ctx.Err() != nil {
			err = turnError(t.ctx)
		}
		t.send(event{kind: evStreamError, err: err})
		return
	}
	t.send(event{kind: evEnd})
}

// watchCancel reports the turn's context ending, whether by Cancel, by
// timeout or by the caller's context.
func watchCancel(t *turn) {
	select {
	case <-t.ctx.Done():
		t.send(event{kind: evCancel, err: turnError(t.ctx)})
	case <-t.quit:
	}
}

// turnError explains why a turn context ended.
func turnError(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return ctx.Err()
}
