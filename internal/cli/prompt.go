// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/commands"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/util"
)

// historyFileName is the prompt history file inside ~/.rigchat.
const historyFileName = "prompt_history"

// Prompt reads user input with line editing and arrow-key history.
// It implements session.LineReader.
type Prompt struct {
	line        *liner.State
	historyPath string
	log         *zap.Logger
}

// NewPrompt creates a prompt and loads the saved input history.
// completer may be nil.
func NewPrompt(completer *commands.Completer, log *zap.Logger) *Prompt {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(true)
	if completer != nil {
		line.SetCompleter(completer.Lines)
	}

	path, err := util.AppPath(historyFileName)
	if err != nil {
		log.Debug("prompt.history_unavailable", zap.Error(err))
	}

	p := &Prompt{line: line, historyPath: path, log: log}
	p.loadHistory()
	return p
}

// ReadLine shows prompt and returns the typed line. Ctrl-C maps to
// session.ErrInterrupted and Ctrl-D to io.EOF.
func (p *Prompt) ReadLine(prompt string) (string, error) {
	text, err := p.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", session.ErrInterrupted
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		p.line.AppendHistory(text)
	}
	return text, nil
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (p *Prompt) Confirm(question string) bool {
	answer, err := p.line.Prompt(question + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// Choose lists options and returns the picked index, or -1 when the
// answer is empty, out of range or aborted.
func (p *Prompt) Choose(question string, options []string) int {
	fmt.Println(question)
	for i, option := range options {
		fmt.Printf("  %d) %s\n", i+1, option)
	}

	answer, err := p.line.Prompt(fmt.Sprintf("Enter choice (1-%d): ", len(options)))
	if err != nil {
		return -1
	}
	choice, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || choice < 1 || choice > len(options) {
		return -1
	}
	return choice - 1
}

// Close saves the history and restores the terminal.
func (p *Prompt) Close() error {
	p.saveHistory()
	return p.line.Close()
}

func (p *Prompt) loadHistory() {
	if p.historyPath == "" {
		return
	}
	f, err := os.Open(p.historyPath)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := p.line.ReadHistory(f); err != nil {
		p.log.Debug("prompt.history_read_failed", zap.Error(err))
	}
}

// saveHistory persists the history with owner-only permissions.
func (p *Prompt) saveHistory() {
	if p.historyPath == "" {
		return
	}
	var buf bytes.Buffer
	if _, err := p.line.WriteHistory(&buf); err != nil {
		p.log.Debug("prompt.history_write_failed", zap.Error(err))
		return
	}
	if err := util.AtomicWriteFile(p.historyPath, buf.Bytes(), 0o600); err != nil {
		p.log.Debug("prompt.history_write_failed", zap.Error(err))
	}
}
