// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// The client covers the endpoints an interactive chat needs: streaming chat,
// model listing, model details and model pulls.
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - ChatRequest: Request structure for chat completions
//   - Decoder: pull iterator over a newline-delimited JSON reply
//   - Fragment: one decoded reply line (delta, metadata or completion)
//   - ClientError: typed error with an ErrorType for handling
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL: "http://localhost:11434/api",
//	})
//	dec, err := client.ChatStream(ctx, ollama.ChatRequest{
//	    Model:    "llama3.2",
//	    Messages: []ollama.Message{ollama.NewUserMessage("Hello")},
//	    Stream:   true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer dec.Close()
//	for dec.Next() {
//	    fmt.Print(dec.Fragment().Content)
//	}
//	return dec.Err()
//
// Lines that are not JSON objects surface as fragments with Err set and do not
// stop the stream. A reply that ends without a done line reports
// ErrTruncatedStream.
package ollama
