// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// asker puts questions to the user. *Prompt implements it.
type asker interface {
	Confirm(question string) bool
	Choose(question string, options []string) int
}

// modelService is the part of the API client model resolution needs.
type modelService interface {
	ModelNames(ctx context.Context) ([]string, error)
	Pull(ctx context.Context, model string, fn ollama.PullCallback) error
}

// modelResolver resolves model names against the server and, when a
// terminal is attached, lets the user pick between close matches or
// download a missing model.
type modelResolver struct {
	client    modelService
	ask       asker // nil when nobody can answer
	out       io.Writer
	theme     *styles.Theme
	progress  bool // redraw pull progress in place
	timeout   time.Duration
	interrupt *interrupter
	log       *zap.Logger
}

// Resolve returns the installed model name meant by name. It has the
// session.ModelResolver signature.
//
// When the model list cannot be fetched the name is returned as typed.
func (r *modelResolver) Resolve(ctx context.Context, name string) (string, error) {
	listCtx, cancel := context.WithTimeout(ctx, r.timeout)
	installed, err := r.client.ModelNames(listCtx)
	cancel()
	if err != nil {
		r.log.Warn("model.list_failed", zap.Error(err))
		return strings.TrimSpace(name), nil
	}

	resolved, err := session.ResolveModel(name, installed)
	if err == nil || r.ask == nil {
		return resolved, err
	}

	var ambiguous *session.AmbiguousModelError
	switch {
	case errors.As(err, &ambiguous):
		i := r.ask.Choose(fmt.Sprintf("%q matches several models:", name), ambiguous.Candidates)
		if i < 0 {
			return "", err
		}
		return ambiguous.Candidates[i], nil

	case errors.Is(err, session.ErrModelNotInstalled):
		name = strings.TrimSpace(name)
		if !r.ask.Confirm(fmt.Sprintf("Model %q is not installed. Pull it now?", name)) {
			return "", err
		}
		if err := r.pull(ctx, name); err != nil {
			return "", err
		}
		return name, nil
	}
	return "", err
}

// pull downloads name, drawing progress. SIGINT stops the download.
func (r *modelResolver) pull(ctx context.Context, name string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	release := r.interrupt.Set(cancel)
	defer release()

	start := time.Now()
	bar := newPullProgress(r.out, r.theme, r.progress)
	err := r.client.Pull(ctx, name, bar.Update)
	bar.Finish()
	if err != nil {
		r.log.Warn("model.pull_failed", zap.String("model", name), zap.Error(err))
		return fmt.Errorf("pull %s: %w", name, err)
	}

	r.log.Info("model.pulled", zap.String("model", name), zap.Duration("elapsed", time.Since(start)))
	fmt.Fprintln(r.out, r.theme.Statusf(styles.StatusSuccess, "Pulled %s", name))
	return nil
}

// =============================================================================
// INTERRUPTS
// =============================================================================

// interrupter routes SIGINT to the operation currently running outside a
// chat turn.
type interrupter struct {
	mu     sync.Mutex
	cancel func()
}

// Set makes cancel the target of Fire until release is called.
func (i *interrupter) Set(cancel func()) (release func()) {
	if i == nil {
		return func() {}
	}
	i.mu.Lock()
	i.cancel = cancel
	i.mu.Unlock()
	return func() {
		i.mu.Lock()
		i.cancel = nil
		i.mu.Unlock()
	}
}

// Fire cancels the current target and reports whether there was one.
func (i *interrupter) Fire() bool {
	if i == nil {
		return false
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cancel == nil {
		return false
	}
	i.cancel()
	i.cancel = nil
	return true
}
