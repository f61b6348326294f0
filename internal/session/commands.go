// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// infoWidth is the width of the /info box contents; values get what is
// left after the label column.
const (
	infoWidth      = 56
	infoValueWidth = infoWidth - 16
)

// reset clears the history. The model is kept.
func (e *Engine) reset() {
	n := e.conv.Len()
	e.conv.Reset()
	e.log.Info("conversation.reset", zap.Int("dropped", n))
	e.out.Status(styles.StatusSuccess, "Conversation cleared")
}

// setModel switches the active model for later turns. History is kept.
func (e *Engine) setModel(ctx context.Context, name string) {
	resolved, err := e.cfg.Resolver(ctx, name)
	if err != nil {
		var ambiguous *AmbiguousModelError
		switch {
		case errors.As(err, &ambiguous):
			e.out.Statusf(styles.StatusWarning, "%q is ambiguous. Did you mean one of: %s",
				name, strings.Join(ambiguous.Candidates, ", "))
		case errors.Is(err, ErrModelNotInstalled):
			e.out.Statusf(styles.StatusError, "Model %q is not installed. Try: ollama pull %s", name, name)
		default:
			e.out.Statusf(styles.StatusError, "Cannot switch model: %v", err)
		}
		return
	}

	previous := e.conv.Model()
	if err := e.conv.SetModel(resolved); err != nil {
		e.out.Statusf(styles.StatusError, "Cannot switch model: %v", err)
		return
	}
	e.log.Info("model.switch", zap.String("from", previous), zap.String("to", resolved))
	if resolved != name {
		e.out.Statusf(styles.StatusSuccess, "Switched to %s (matched %q)", resolved, name)
		return
	}
	e.out.Statusf(styles.StatusSuccess, "Switched to %s", resolved)
}

// resolveFromServer resolves name against the server's installed models.
// When the list cannot be fetched the name is taken as typed; the next
// turn reports a missing model.
func (e *Engine) resolveFromServer(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	models, err := e.client.ListModels(ctx)
	if err != nil {
		e.log.Warn("model.list_failed", zap.Error(err))
		return strings.TrimSpace(name), nil
	}
	installed := make([]string, 0, len(models))
	for _, m := range models {
		installed = append(installed, m.Name)
	}
	return ResolveModel(name, installed)
}

// help lists the visible commands.
func (e *Engine) help() {
	theme := e.out.Theme()

	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Commands"))
	sb.WriteString("\n")

	for _, cmd := range e.registry.Visible() {
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		line := "  " + theme.Command.Render(runewidth.FillRight(usage, 16)) + " " + cmd.Description
		if len(cmd.Aliases) > 0 {
			line += theme.Hint.Render(" (" + strings.Join(cmd.Aliases, ", ") + ")")
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString(theme.Hint.Render("Anything else is sent to the model. Ctrl-C stops a reply."))

	e.out.Println(sb.String())
}

// listModels prints the installed models, marking the active one.
func (e *Engine) listModels(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	models, err := e.client.ListModels(ctx)
	if err != nil {
		e.out.Statusf(styles.StatusError, "Cannot list models: %s", abortReason(err, 0))
		return
	}
	if len(models) == 0 {
		e.out.Status(styles.StatusInfo, "No models installed. Try: ollama pull llama3.2")
		return
	}

	theme := e.out.Theme()
	current := e.conv.Model()

	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Installed models"))
	for _, m := range models {
		marker := "  "
		if m.Name == current || m.Name == current+":latest" {
			marker = theme.Success.Render("● ")
		}
		sb.WriteString("\n")
		sb.WriteString(marker)
		sb.WriteString(runewidth.FillRight(m.Name, 32))
		sb.WriteString(theme.Hint.Render(fmt.Sprintf(" %8s", m.FormatSize())))
		if m.Details.ParameterSize != "" {
			sb.WriteString(theme.Hint.Render("  " + m.Details.ParameterSize))
		}
	}
	e.out.Println(sb.String())
}

// info prints a summary of the session and the active model.
func (e *Engine) info(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	theme := e.out.Theme()
	snap := e.conv.Snapshot()
	current := snap.Model

	rows := [][2]string{
		{"Model", current},
		{"Messages", fmt.Sprintf("%d", len(snap.Messages))},
		{"Est. tokens", fmt.Sprintf("~%d", e.conv.EstimateTokens())},
		{"Streaming", fmt.Sprintf("%t", e.cfg.Stream)},
		{"Session", e.sessionID},
		{"Uptime", time.Since(e.started).Truncate(time.Second).String()},
	}
	if msg, ok := snap.LastOf(model.RoleUser); ok {
		rows = append(rows, [2]string{"Last prompt", msg.Preview(infoValueWidth)})
	}
	if msg, ok := snap.LastOf(model.RoleAssistant); ok {
		rows = append(rows, [2]string{"Last reply", msg.Preview(infoValueWidth)})
	}

	details, err := e.client.GetModel(ctx, current)
	switch {
	case err == nil:
		rows = append(rows, ModelRows(details)...)
	case ollama.IsModelNotFound(err):
		rows = append(rows, [2]string{"Status", "not installed"})
	default:
		e.log.Debug("model.show_failed", zap.Error(err))
		rows = append(rows, [2]string{"Status", "details unavailable"})
	}

	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Session"))
	for _, row := range rows {
		value := runewidth.Truncate(row[1], infoValueWidth, "...")
		sb.WriteString("\n")
		sb.WriteString(theme.Label.Render(runewidth.FillRight(row[0]+":", 14)))
		sb.WriteString(" ")
		sb.WriteString(theme.Value.Render(value))
	}
	e.out.Println(theme.Box.Render(sb.String()))
}

// ModelRows returns label/value rows describing a model, taken from a
// /show response. Empty fields are left out. Multi-line values are joined
// onto one line; callers truncate them to fit.
func ModelRows(details *ollama.ShowModelResponse) [][2]string {
	var rows [][2]string
	d := details.Details
	if d.Family != "" {
		rows = append(rows, [2]string{"Family", d.Family})
	}
	if d.ParameterSize != "" {
		rows = append(rows, [2]string{"Param size", d.ParameterSize})
	}
	if d.QuantizationLevel != "" {
		rows = append(rows, [2]string{"Quantization", d.QuantizationLevel})
	}
	if d.Format != "" {
		rows = append(rows, [2]string{"Format", d.Format})
	}
	for _, line := range strings.Split(details.Modelfile, "\n") {
		if from, ok := strings.CutPrefix(strings.TrimSpace(line), "FROM "); ok {
			rows = append(rows, [2]string{"From", strings.TrimSpace(from)})
			break
		}
	}
	if p := oneLine(details.Parameters); p != "" {
		rows = append(rows, [2]string{"Parameters", p})
	}
	if tmpl := oneLine(details.Template); tmpl != "" {
		rows = append(rows, [2]string{"Template", tmpl})
	}
	return rows
}

// oneLine collapses runs of whitespace, newlines included, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
