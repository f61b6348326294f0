// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for rigchat.

Colors (colors.go) are Lip Gloss AdaptiveColors so one palette serves light
and dark terminals. A Theme (theme.go) binds the palette to a single output
stream through its own lipgloss renderer: output that is not a terminal, or
a theme of "plain", renders without escape sequences.

Animations (animations.go) hold the spinner frame sets for the thinking
indicator, reusing bubbles' presets where they fit, and the block progress
bar used while a model downloads.

	theme := styles.NewTheme(os.Stdout, "auto", true)
	fmt.Println(theme.RenderStatus(styles.StatusWarning, "Interrupted"))
*/
package styles
