// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithConfig(&ClientConfig{BaseURL: server.URL + "/api/"})
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestNewClientWithConfig_Defaults(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{})
	cfg := c.config

	assert.Equal(t, "http://localhost:11434/api", cfg.BaseURL)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, defaultConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, "llama3.2", cfg.DefaultModel)
}

func TestNewClientWithConfig_TrimsTrailingSlash(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{BaseURL: "http://example.test/api//"})
	assert.Equal(t, "http://example.test/api", c.config.BaseURL)
}

// =============================================================================
// CHAT STREAM TESTS
// =============================================================================

func TestChatStream_SendsHistoryAndDecodes(t *testing.T) {
	var got ChatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hel"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true,"eval_count":2}`)
	})

	history := []Message{
		NewSystemMessage("be brief"),
		NewUserMessage("hi"),
	}
	dec, err := client.ChatStream(context.Background(), ChatRequest{
		Model:    "mistral",
		Messages: history,
		Stream:   true,
	})
	require.NoError(t, err)
	defer dec.Close()

	var text string
	for dec.Next() {
		text += dec.Fragment().Content
	}
	require.NoError(t, dec.Err())
	assert.Equal(t, "Hello", text)

	assert.Equal(t, "mistral", got.Model)
	assert.True(t, got.Stream)
	assert.Equal(t, history, got.Messages)
}

func TestChatStream_DefaultModel(t *testing.T) {
	var got ChatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprintln(w, `{"done":true}`)
	})

	dec, err := client.ChatStream(context.Background(), ChatRequest{})
	require.NoError(t, err)
	dec.Close()
	assert.Equal(t, "llama3.2", got.Model)
}

func TestChatStream_NonStreamingReply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"whole reply"},"done":true}`)
	})

	dec, err := client.ChatStream(context.Background(), ChatRequest{Model: "m"})
	require.NoError(t, err)
	defer dec.Close()

	require.True(t, dec.Next())
	frag := dec.Fragment()
	assert.Equal(t, "whole reply", frag.Content)
	assert.True(t, frag.Done)
	assert.False(t, dec.Next())
	assert.NoError(t, dec.Err())
}

func TestChatStream_StatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
		wantMsg  string
	}{
		{"not found with body", http.StatusNotFound, `{"error":"model 'x' not found"}`, ErrTypeModelNotFound, "model 'x' not found"},
		{"not found empty", http.StatusNotFound, ``, ErrTypeModelNotFound, "model not found"},
		{"server error with body", http.StatusInternalServerError, `{"error":"boom"}`, ErrTypeRemote, "boom"},
		{"server error empty", http.StatusBadGateway, ``, ErrTypeInvalidResponse, "chat request failed: 502 Bad Gateway"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})

			_, err := client.ChatStream(context.Background(), ChatRequest{Model: "x"})
			require.Error(t, err)
			var clientErr *ClientError
			require.ErrorAs(t, err, &clientErr)
			assert.Equal(t, tc.wantType, clientErr.Type)
			assert.Equal(t, tc.wantMsg, clientErr.Message)
		})
	}
}

func TestChatStream_NotRunning(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: url + "/api", ConnectTimeout: time.Second})
	_, err := client.ChatStream(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.True(t, IsNotRunning(err), "got %v", err)
}

func TestChatStream_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ChatStream(ctx, ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.True(t, IsCanceled(err), "got %v", err)
}

// =============================================================================
// MODEL TESTS
// =============================================================================

func TestModelNames(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[{"name":"llama3.2:latest","size":2000000000},{"name":""},{"name":"mistral:7b"}]}`)
	})

	names, err := client.ModelNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2:latest", "mistral:7b"}, names)
}

func TestGetModel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ShowModelRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Model != "llama3.2" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"modelfile":"FROM llama3.2\n","parameters":"stop <|eot|>","details":{"family":"llama","parameter_size":"3.2B","quantization_level":"Q4_K_M"}}`)
	})

	info, err := client.GetModel(context.Background(), "llama3.2")
	require.NoError(t, err)
	assert.Equal(t, "llama", info.Details.Family)
	assert.Equal(t, "3.2B", info.Details.ParameterSize)

	_, err = client.GetModel(context.Background(), "nope")
	assert.True(t, IsModelNotFound(err))
}

func TestPull_ReportsProgress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pull", r.URL.Path)
		fmt.Fprintln(w, `{"status":"pulling manifest"}`)
		fmt.Fprintln(w, `{"status":"downloading","total":100,"completed":50}`)
		fmt.Fprintln(w, `{"status":"success"}`)
	})

	var seen []PullProgress
	err := client.Pull(context.Background(), "llama3.2", func(p PullProgress) {
		seen = append(seen, p)
	})
	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.Equal(t, -1.0, seen[0].Percent())
	assert.Equal(t, 50.0, seen[1].Percent())
	assert.Equal(t, "success", seen[2].Status)
}

func TestPull_RemoteError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"status":"pulling manifest"}`)
		fmt.Fprintln(w, `{"error":"pull model manifest: file does not exist"}`)
	})

	err := client.Pull(context.Background(), "nope", nil)
	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, ErrTypeRemote, clientErr.Type)
}

func TestCheckRunning(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/version", r.URL.Path)
		fmt.Fprint(w, `{"version":"0.5.0"}`)
	})
	assert.NoError(t, client.CheckRunning(context.Background()))
}

// =============================================================================
// TYPE TESTS
// =============================================================================

func TestModelInfo_FormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{2019393189, "1.9 GB"},
	}
	for _, tc := range tests {
		m := ModelInfo{Size: tc.size}
		assert.Equal(t, tc.want, m.FormatSize(), "size %d", tc.size)
	}
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "protocol", ErrTypeProtocol.String())
	assert.Equal(t, "unknown", ErrorType(99).String())
}
