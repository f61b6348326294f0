// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for rigchat.
//
// # Configuration Precedence
//
// Configuration is loaded from (highest first):
//   - Command-line flags (applied by the cli package)
//   - Environment variables (RIGCHAT_HOST, RIGCHAT_MODEL, RIGCHAT_TURN_TIMEOUT,
//     RIGCHAT_NO_STREAM, NO_COLOR)
//   - ~/.rigchat/config.toml
//   - ~/.rigchat/config.yaml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: cfg.Host})
package config
