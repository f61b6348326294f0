// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the server could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a model was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ConfigError reports a config file that could not be loaded or is invalid.
type ConfigError struct {
	Path string // empty for the default locations
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UsageError reports bad flags or arguments.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return e.Reason
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError prints err and, when one is known, a hint for fixing it.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	theme := styles.NewTheme(w, styles.ThemeAuto, ColorsEnabled())
	fmt.Fprintln(w, theme.RenderStatus(styles.StatusError, err.Error()))
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, theme.Hint.Render("  "+hint))
	}
}

// errorHint suggests a fix for the common failures.
func errorHint(err error) string {
	var cfgErr *ConfigError
	switch {
	case errors.As(err, &cfgErr):
		return "Check the file, or run: rigchat config init --force"
	case ollama.IsNotRunning(err):
		return "Is Ollama running? Start it with: ollama serve"
	case errors.Is(err, session.ErrModelNotInstalled), ollama.IsModelNotFound(err):
		return "List installed models with: rigchat models"
	case ollama.IsTimeout(err):
		return "The server is slow to answer; try a larger --timeout"
	}
	var ambiguous *session.AmbiguousModelError
	if errors.As(err, &ambiguous) {
		return "Use the full name: " + strings.Join(ambiguous.Candidates, ", ")
	}
	return ""
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		cfgErr    *ConfigError
		usageErr  *UsageError
		ambiguous *session.AmbiguousModelError
	)
	switch {
	case errors.As(err, &usageErr), errors.As(err, &ambiguous):
		return ExitUsageError
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.Is(err, session.ErrModelNotInstalled), ollama.IsModelNotFound(err):
		return ExitNotFoundError
	case ollama.IsTimeout(err):
		return ExitTimeoutError
	case ollama.IsNotRunning(err):
		return ExitNetworkError
	}

	// cobra reports flag and argument problems as plain errors.
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag") ||
		strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "accepts ") {
		return ExitUsageError
	}
	return ExitGeneralError
}
