// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small file helpers shared by config, logging and the
// prompt history.
//
//   - AtomicWriteFile: crash-safe file replacement with fsync
//   - AppDir, AppPath: locations under ~/.rigchat
//   - ExpandHome: "~/" expansion for paths read from config
package util
