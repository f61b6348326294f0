// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/ollama"
)

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat handles POST /api/chat.
func (s *Server) handleChat(c *gin.Context) {
	var req ollama.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Model == "" {
		writeError(c, http.StatusBadRequest, "model is required")
		return
	}
	model, ok := s.lookup(req.Model)
	if !ok {
		writeError(c, http.StatusNotFound, fmt.Sprintf("model '%s' not found, try pulling it first", req.Model))
		return
	}

	reply := s.reply(req.Messages)
	words := splitWords(reply)
	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(splitWords(m.Content))
	}

	if !req.Stream {
		s.chatOnce(c, model, reply, len(words), promptTokens)
		return
	}
	s.chatStream(c, model, words, promptTokens)
}

// chatOnce sends the whole reply as one object.
func (s *Server) chatOnce(c *gin.Context, model, reply string, tokens, promptTokens int) {
	start := time.Now()
	if !s.pause(c, s.opts.FirstByteDelay) {
		return
	}
	c.JSON(http.StatusOK, doneLine(model, reply, tokens, promptTokens, time.Since(start)))
}

// chatStream writes one NDJSON line per word, then the done line.
func (s *Server) chatStream(c *gin.Context, model string, words []string, promptTokens int) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	start := time.Now()
	if !s.pause(c, s.opts.FirstByteDelay) {
		return
	}

	for i, word := range words {
		if s.opts.DropAfter > 0 && i == s.opts.DropAfter {
			s.log.Info("chat.drop", zap.Int("after_words", i))
			// Aborts the response without a terminating chunk.
			panic(http.ErrAbortHandler)
		}
		line := ollama.ChatResponse{
			Model:     model,
			CreatedAt: time.Now().UTC(),
			Message:   &ollama.Message{Role: "assistant", Content: word},
		}
		if !writeLine(c, line) {
			return
		}
		if !s.pause(c, s.opts.Delay) {
			return
		}
	}

	writeLine(c, doneLine(model, "", len(words), promptTokens, time.Since(start)))
}

// reply returns the scripted text, or an echo of the last user message.
func (s *Server) reply(messages []ollama.Message) string {
	if s.opts.Script != "" {
		return s.opts.Script
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return "You said: " + messages[i].Content
		}
	}
	return "Hello! Send a message and I will echo it."
}

// pause waits d, returning false if the client went away.
func (s *Server) pause(c *gin.Context, d time.Duration) bool {
	if d <= 0 {
		return c.Request.Context().Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.Request.Context().Done():
		return false
	}
}

func doneLine(model, content string, tokens, promptTokens int, elapsed time.Duration) ollama.ChatResponse {
	eval := elapsed
	if eval <= 0 {
		eval = time.Millisecond
	}
	return ollama.ChatResponse{
		Model:           model,
		CreatedAt:       time.Now().UTC(),
		Message:         &ollama.Message{Role: "assistant", Content: content},
		Done:            true,
		DoneReason:      "stop",
		TotalDuration:   elapsed.Nanoseconds(),
		PromptEvalCount: promptTokens,
		EvalCount:       tokens,
		EvalDuration:    eval.Nanoseconds(),
	}
}

// splitWords cuts text into words that keep their trailing whitespace, so
// joining the pieces gives back text.
func splitWords(text string) []string {
	var words []string
	start := 0
	inSpace := true
	for i, r := range text {
		space := unicode.IsSpace(r)
		if !space && inSpace && i > start {
			words = append(words, text[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(text) {
		words = append(words, text[start:])
	}
	return words
}

// ============================================================================
// MODEL HANDLERS
// ============================================================================

// handleTags handles GET /api/tags.
func (s *Server) handleTags(c *gin.Context) {
	c.JSON(http.StatusOK, ollama.ListModelsResponse{Models: s.list()})
}

// handleShow handles POST /api/show.
func (s *Server) handleShow(c *gin.Context) {
	var req ollama.ShowModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	model, ok := s.lookup(req.Model)
	if !ok {
		writeError(c, http.StatusNotFound, fmt.Sprintf("model '%s' not found", req.Model))
		return
	}

	info := modelInfo(model, time.Time{})
	c.JSON(http.StatusOK, ollama.ShowModelResponse{
		License:    "mock license",
		Modelfile:  "# Modelfile generated by rigchat mock-server\nFROM /models/" + strings.ReplaceAll(model, ":", "-") + ".gguf\n",
		Parameters: "stop \"<|eot_id|>\"",
		Template:   "{{ .Prompt }}",
		Details:    info.Details,
	})
}

// handlePull handles POST /api/pull, streaming progress lines and then
// installing the model.
func (s *Server) handlePull(c *gin.Context) {
	var req ollama.PullRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Model == "" {
		writeError(c, http.StatusBadRequest, "model is required")
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)

	const total = 4 * 1024 * 1024
	steps := []ollama.PullProgress{{Status: "pulling manifest"}}
	for done := int64(0); done <= total; done += total / 4 {
		steps = append(steps, ollama.PullProgress{Status: "downloading", Digest: "sha256:mock", Total: total, Completed: done})
	}
	steps = append(steps, ollama.PullProgress{Status: "verifying sha256 digest"}, ollama.PullProgress{Status: "success"})

	for i, step := range steps {
		if i == len(steps)-1 {
			s.install(req.Model)
		}
		if !writeLine(c, step) || !s.pause(c, s.opts.Delay) {
			return
		}
	}
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": Version})
}

// ============================================================================
// HELPERS
// ============================================================================

// writeLine writes v as one NDJSON line and flushes it.
func writeLine(c *gin.Context, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	if _, err := c.Writer.Write(append(data, '\n')); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}

// writeError writes an Ollama-style error body.
func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ollama.OllamaError{Error: message})
}
