// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/ollama"
)

// newTestServer starts s behind httptest and returns a client for it.
func newTestServer(t *testing.T, opts Options) (*Server, *ollama.Client) {
	t.Helper()
	if opts.Delay == 0 {
		opts.Delay = -1
	}
	s := New(opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: ts.URL + "/api"})
}

func chat(t *testing.T, client *ollama.Client, req ollama.ChatRequest) ([]ollama.Fragment, error) {
	t.Helper()
	dec, err := client.ChatStream(context.Background(), req)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var frags []ollama.Fragment
	for dec.Next() {
		frags = append(frags, dec.Fragment())
	}
	return frags, dec.Err()
}

func joined(frags []ollama.Fragment) string {
	var sb strings.Builder
	for _, f := range frags {
		sb.WriteString(f.Content)
	}
	return sb.String()
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat_StreamsScriptWordByWord(t *testing.T) {
	script := "Hello there,\n\n```go\nfmt.Println(1)\n```\n"
	_, client := newTestServer(t, Options{Script: script})

	frags, err := chat(t, client, ollama.ChatRequest{
		Model:    "llama3.2",
		Messages: []ollama.Message{ollama.NewUserMessage("hi there")},
		Stream:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, script, joined(frags))
	assert.Greater(t, len(frags), 3, "reply arrives in pieces")

	last := frags[len(frags)-1]
	require.True(t, last.Done)
	require.NotNil(t, last.Stats)
	assert.Equal(t, len(frags)-1, last.Stats.CompletionTokens)
	assert.Equal(t, 2, last.Stats.PromptTokens)
	assert.Equal(t, "llama3.2:latest", last.Model)
}

func TestChat_EchoesWithoutScript(t *testing.T) {
	_, client := newTestServer(t, Options{})

	frags, err := chat(t, client, ollama.ChatRequest{
		Model: "mistral:7b",
		Messages: []ollama.Message{
			ollama.NewUserMessage("first"),
			ollama.NewAssistantMessage("You said: first"),
			ollama.NewUserMessage("second question"),
		},
		Stream: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "You said: second question", joined(frags))
}

func TestChat_NonStreaming(t *testing.T) {
	_, client := newTestServer(t, Options{Script: "all at once"})

	frags, err := chat(t, client, ollama.ChatRequest{Model: "llama3.2", Stream: false})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, "all at once", frags[0].Content)
	assert.True(t, frags[0].Done)
}

func TestChat_UnknownModel(t *testing.T) {
	_, client := newTestServer(t, Options{})

	_, err := chat(t, client, ollama.ChatRequest{Model: "phi3", Stream: true})
	require.Error(t, err)
	assert.True(t, ollama.IsModelNotFound(err), "got %v", err)
}

func TestChat_DropAfter(t *testing.T) {
	_, client := newTestServer(t, Options{Script: "one two three four", DropAfter: 2})

	frags, err := chat(t, client, ollama.ChatRequest{Model: "llama3.2", Stream: true})
	require.Error(t, err)
	assert.Equal(t, "one two ", joined(frags))
	for _, f := range frags {
		assert.False(t, f.Done)
	}
}

func TestChat_ClientCancel(t *testing.T) {
	_, client := newTestServer(t, Options{Script: "slow reply", FirstByteDelay: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	dec, err := client.ChatStream(ctx, ollama.ChatRequest{Model: "llama3.2", Stream: true})
	if err == nil {
		defer dec.Close()
		assert.False(t, dec.Next())
		err = dec.Err()
	}
	require.Error(t, err)
}

func TestChat_BadRequest(t *testing.T) {
	s := New(Options{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"one", []string{"one"}},
		{"one two", []string{"one ", "two"}},
		{"  lead", []string{"  ", "lead"}},
		{"a\n\nb ", []string{"a\n\n", "b "}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, splitWords(tc.in), "%q", tc.in)
	}
}

// =============================================================================
// MODEL TESTS
// =============================================================================

func TestTags(t *testing.T) {
	_, client := newTestServer(t, Options{Models: []string{"zeta:1b", "alpha:latest"}})

	names, err := client.ModelNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha:latest", "zeta:1b"}, names)
}

func TestShow(t *testing.T) {
	_, client := newTestServer(t, Options{})

	info, err := client.GetModel(context.Background(), "llama3.2")
	require.NoError(t, err)
	assert.Equal(t, "llama", info.Details.Family)
	assert.Contains(t, info.Modelfile, "FROM /models/llama3.2-latest.gguf")

	_, err = client.GetModel(context.Background(), "nope")
	assert.True(t, ollama.IsModelNotFound(err))
}

func TestPull_InstallsModel(t *testing.T) {
	_, client := newTestServer(t, Options{})

	var statuses []string
	err := client.Pull(context.Background(), "phi3", func(p ollama.PullProgress) {
		statuses = append(statuses, p.Status)
	})
	require.NoError(t, err)
	require.NotEmpty(t, statuses)
	assert.Equal(t, "pulling manifest", statuses[0])
	assert.Equal(t, "success", statuses[len(statuses)-1])

	_, err = client.GetModel(context.Background(), "phi3")
	assert.NoError(t, err, "pulled model is installed")
}

func TestVersion(t *testing.T) {
	_, client := newTestServer(t, Options{})
	assert.NoError(t, client.CheckRunning(context.Background()))
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Options{Delay: -1})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: "http://" + ln.Addr().String() + "/api"})
	require.Eventually(t, func() bool {
		return client.CheckRunning(context.Background()) == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	s := New(Options{})
	s.engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
