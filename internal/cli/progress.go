// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

const (
	// progressBarWidth is the width of the download bar in cells.
	progressBarWidth = 30

	// progressInterval is the minimum time between two redraws of the
	// same pull step.
	progressInterval = 100 * time.Millisecond
)

// pullProgress draws /pull progress on a single line.
//
// A new status is always drawn. Byte-count updates for the same status are
// throttled. Without inPlace every status gets its own line and byte counts
// are not shown.
type pullProgress struct {
	out     io.Writer
	theme   *styles.Theme
	inPlace bool
	limiter *rate.Limiter

	status string
	drawn  bool
}

func newPullProgress(out io.Writer, theme *styles.Theme, inPlace bool) *pullProgress {
	return &pullProgress{
		out:     out,
		theme:   theme,
		inPlace: inPlace,
		limiter: rate.NewLimiter(rate.Every(progressInterval), 1),
	}
}

// Update handles one progress line from the server.
func (p *pullProgress) Update(pp ollama.PullProgress) {
	changed := pp.Status != p.status
	p.status = pp.Status

	if !p.inPlace {
		if changed {
			fmt.Fprintln(p.out, p.theme.Hint.Render(pp.Status))
		}
		return
	}
	if !changed && !p.limiter.Allow() {
		return
	}
	fmt.Fprintf(p.out, "\r\033[K%s", formatPull(pp))
	p.drawn = true
}

// Finish ends the progress line.
func (p *pullProgress) Finish() {
	if p.drawn {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
}

// formatPull renders one progress line. Steps without a size show only
// their status.
func formatPull(pp ollama.PullProgress) string {
	pct := pp.Percent()
	if pct < 0 {
		return pp.Status
	}
	return fmt.Sprintf("%s %s %5.1f%% (%s / %s)",
		pp.Status,
		styles.RenderProgressBar(progressBarWidth, pct),
		pct,
		formatBytes(pp.Completed),
		formatBytes(pp.Total),
	)
}
