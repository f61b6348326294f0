// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"fmt"
	"time"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message on the wire.
type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system"
	Content string `json:"content"` // The message content
}

// ChatRequest is the request body for the /chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`    // Model name (e.g., "llama3.2")
	Messages []Message `json:"messages"` // Conversation history, replayed verbatim
	Stream   bool      `json:"stream"`   // One JSON object per line when true
}

// ShowModelRequest is the request for the /show endpoint.
type ShowModelRequest struct {
	Model string `json:"model"`
}

// PullRequest is the request for the /pull endpoint.
type PullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatResponse is one line of a /chat response stream.
// When streaming is disabled the whole reply arrives as a single ChatResponse.
type ChatResponse struct {
	Model              string    `json:"model"`
	CreatedAt          time.Time `json:"created_at"`
	Message            *Message  `json:"message,omitempty"`
	Response           *string   `json:"response,omitempty"` // /generate style payloads
	Done               bool      `json:"done"`
	DoneReason         string    `json:"done_reason,omitempty"`
	TotalDuration      int64     `json:"total_duration,omitempty"`       // nanoseconds
	LoadDuration       int64     `json:"load_duration,omitempty"`        // nanoseconds
	PromptEvalCount    int       `json:"prompt_eval_count,omitempty"`    // number of tokens in prompt
	PromptEvalDuration int64     `json:"prompt_eval_duration,omitempty"` // nanoseconds
	EvalCount          int       `json:"eval_count,omitempty"`           // number of tokens generated
	EvalDuration       int64     `json:"eval_duration,omitempty"`        // nanoseconds
	Error              string    `json:"error,omitempty"`
}

// content returns the delta carried by the line, whichever endpoint shape it uses.
func (r *ChatResponse) content() string {
	if r.Message != nil {
		return r.Message.Content
	}
	if r.Response != nil {
		return *r.Response
	}
	return ""
}

// stats extracts the completion statistics. Only meaningful on the final line.
func (r *ChatResponse) stats() *Stats {
	return &Stats{
		TotalDuration:      time.Duration(r.TotalDuration),
		LoadDuration:       time.Duration(r.LoadDuration),
		PromptEvalDuration: time.Duration(r.PromptEvalDuration),
		EvalDuration:       time.Duration(r.EvalDuration),
		PromptTokens:       r.PromptEvalCount,
		CompletionTokens:   r.EvalCount,
	}
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo contains information about a model.
type ModelInfo struct {
	Name       string       `json:"name"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails contains detailed information about a model.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// ListModelsResponse is the response from the /tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ShowModelResponse is the response from the /show endpoint.
type ShowModelResponse struct {
	License    string       `json:"license"`
	Modelfile  string       `json:"modelfile"`
	Parameters string       `json:"parameters"`
	Template   string       `json:"template"`
	Details    ModelDetails `json:"details"`
}

// PullProgress is one line of a /pull response stream.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Percent returns download completion in the range 0-100, or -1 when unknown.
func (p PullProgress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// Fragment is one decoded line of a chat response stream.
//
// A fragment is a content delta, a metadata-only event (empty Content), or the
// terminal marker (Done). Err is set when the line could not be decoded; such a
// fragment carries nothing else and the stream continues after it.
type Fragment struct {
	Content    string
	Done       bool
	DoneReason string
	Model      string

	// Stats is only populated on the Done fragment.
	Stats *Stats

	// Err is a *MalformedFragmentError for lines that failed to parse.
	Err error
}

// IsDelta reports whether the fragment carries renderable text.
func (f Fragment) IsDelta() bool {
	return f.Err == nil && f.Content != ""
}

// Stats holds the completion statistics sent on the final line of a reply.
type Stats struct {
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration
	PromptTokens       int
	CompletionTokens   int
}

// TokensPerSecond calculates the generation speed.
func (s *Stats) TokensPerSecond() float64 {
	if s == nil || s.EvalDuration <= 0 {
		return 0
	}
	return float64(s.CompletionTokens) / s.EvalDuration.Seconds()
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// OllamaError represents an error body from the Ollama API.
type OllamaError struct {
	Error string `json:"error"`
}

// =============================================================================
// HELPER METHODS
// =============================================================================

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// FormatSize formats the model size in human-readable form.
func (m *ModelInfo) FormatSize() string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case m.Size >= GB:
		return fmt.Sprintf("%.1f GB", float64(m.Size)/GB)
	case m.Size >= MB:
		return fmt.Sprintf("%.1f MB", float64(m.Size)/MB)
	case m.Size >= KB:
		return fmt.Sprintf("%.1f KB", float64(m.Size)/KB)
	default:
		return fmt.Sprintf("%d B", m.Size)
	}
}
