// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/rigchat/internal/commands"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/render"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Client is the part of the server API the engine uses.
// *ollama.Client satisfies it.
type Client interface {
	ChatStream(ctx context.Context, req ollama.ChatRequest) (*ollama.Decoder, error)
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)
	GetModel(ctx context.Context, name string) (*ollama.ShowModelResponse, error)
}

// ModelResolver maps a name typed by the user to an installed model.
type ModelResolver func(ctx context.Context, name string) (string, error)

// LineReader supplies user input to Run.
//
// ReadLine returns io.EOF when input ends and ErrInterrupted when the user
// pressed Ctrl-C at the prompt.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config configures an Engine.
type Config struct {
	// Model is the initial model name.
	Model string

	// Stream requests incremental replies. When false the reply arrives as
	// a single object and is treated as a one-fragment stream.
	Stream bool

	// TurnTimeout aborts a turn that has not completed in time (0 = none).
	TurnTimeout time.Duration

	// RequestTimeout bounds /models and /info calls (default: 10s).
	RequestTimeout time.Duration

	// Resolver maps /model arguments to installed models. It gets the
	// session context and sets its own deadlines. The default resolves
	// against the server's model list within RequestTimeout.
	Resolver ModelResolver

	// Logger receives structured turn events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs an interactive chat session.
//
// One goroutine drives the engine through HandleLine or Run; it is the only
// writer of the conversation. Cancel and State may be called from any
// goroutine.
type Engine struct {
	client   Client
	conv     *model.Conversation
	out      *render.Renderer
	registry *commands.Registry
	log      *zap.Logger
	cfg      Config

	sessionID string
	started   time.Time
	turns     int

	state atomic.Int32
	busy  atomic.Bool

	cancelMu   sync.Mutex
	cancelTurn context.CancelCauseFunc
	turnQueued bool // a chat line holds busy but has no cancel func yet
	cancelSoon bool // Cancel arrived while turnQueued
}

// New creates an engine that talks to client and draws with out.
func New(client Client, out *render.Renderer, cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	e := &Engine{
		client:    client,
		conv:      model.NewConversation(cfg.Model),
		out:       out,
		registry:  commands.Builtins(),
		cfg:       cfg,
		sessionID: uuid.NewString(),
		started:   time.Now(),
	}
	e.log = cfg.Logger.With(zap.String("session_id", e.sessionID))
	if e.cfg.Resolver == nil {
		e.cfg.Resolver = e.resolveFromServer
	}
	out.SetBuffered(!cfg.Stream)
	return e
}

// SessionID returns the identifier attached to every log line of the session.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// State returns the current turn state.
func (e *Engine) State() TurnState {
	return TurnState(e.state.Load())
}

// Conversation returns the session's conversation. Callers must not modify
// it while a turn is running.
func (e *Engine) Conversation() *model.Conversation {
	return e.conv
}

// Turns returns the number of chat turns started so far.
func (e *Engine) Turns() int {
	return e.turns
}

// Uptime returns the time since the engine was created.
func (e *Engine) Uptime() time.Duration {
	return time.Since(e.started)
}

// Model returns the active model name.
func (e *Engine) Model() string {
	return e.conv.Model()
}

// transition moves the state machine along a legal edge.
func (e *Engine) transition(from, to TurnState) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	if !e.state.CompareAndSwap(int32(from), int32(to)) {
		return &TransitionError{From: e.State(), To: to}
	}
	return nil
}

// Cancel stops the running turn, if any. It is safe to call at any time
// and from any goroutine.
func (e *Engine) Cancel() bool {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()
	if e.cancelTurn == nil {
		if e.turnQueued {
			e.cancelSoon = true
			return true
		}
		return false
	}
	e.cancelTurn(errCancelled)
	return true
}

// acquire marks the engine busy. For a chat line a Cancel arriving before
// the turn registers its cancel func is held until it does.
func (e *Engine) acquire(chat bool) bool {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()
	if !e.busy.CompareAndSwap(false, true) {
		return false
	}
	e.turnQueued = chat
	e.cancelSoon = false
	return true
}

func (e *Engine) release() {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()
	e.turnQueued = false
	e.cancelSoon = false
	e.busy.Store(false)
}

// =============================================================================
// INPUT
// =============================================================================

// HandleLine processes one line of user input.
//
// It returns ErrExit when the user asked to leave and ErrTurnInProgress when
// called while another line is still being handled. Every other problem is
// reported to the user and nil is returned.
func (e *Engine) HandleLine(ctx context.Context, line string) error {
	in, parseErr := e.registry.Parse(line)
	if parseErr == nil && in.Kind == commands.KindEmpty {
		return nil
	}

	if !e.acquire(parseErr == nil && in.Kind == commands.KindChat) {
		return ErrTurnInProgress
	}
	defer e.release()

	if parseErr != nil {
		e.out.Status(styles.StatusError, parseErr.Error())
		return nil
	}

	if in.Kind.IsControl() {
		e.log.Debug("command", zap.String("kind", in.Kind.String()), zap.String("arg", in.Arg))
	}

	switch in.Kind {
	case commands.KindChat:
		e.runTurn(ctx, norm.NFC.String(in.Text))
	case commands.KindReset:
		e.reset()
	case commands.KindModel:
		e.setModel(ctx, in.Arg)
	case commands.KindExit:
		return ErrExit
	case commands.KindHelp:
		e.help()
	case commands.KindModels:
		e.listModels(ctx)
	case commands.KindInfo:
		e.info(ctx)
	}
	return nil
}

// Run reads lines until the user exits or input ends. It returns nil in
// both cases; only read failures and ctx cancellation are returned.
func (e *Engine) Run(ctx context.Context, in LineReader, prompt string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := in.ReadLine(prompt)
		switch {
		case errors.Is(err, io.EOF):
			e.log.Info("session.end", zap.String("reason", "eof"), zap.Int("turns", e.turns))
			return nil
		case errors.Is(err, ErrInterrupted):
			continue
		case err != nil:
			return err
		}

		if err := e.HandleLine(ctx, line); err != nil {
			if errors.Is(err, ErrExit) {
				e.log.Info("session.end", zap.String("reason", "exit"), zap.Int("turns", e.turns))
				return nil
			}
			return err
		}
	}
}
