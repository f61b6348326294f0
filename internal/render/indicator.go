// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// indicator is one run of the thinking animation.
type indicator struct {
	stop chan struct{}
	done chan struct{}
}

// startIndicator launches the animation unless it is disabled or running.
func (r *Renderer) startIndicator() {
	if !r.opts.Indicator || r.ind != nil {
		return
	}
	ind := &indicator{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	r.ind = ind
	go r.animate(ind, time.Now())
}

// stopIndicator stops the animation, waits for its goroutine and erases the
// indicator line. It is a no-op when nothing is running.
func (r *Renderer) stopIndicator() {
	ind := r.ind
	if ind == nil {
		return
	}
	r.ind = nil
	close(ind.stop)
	<-ind.done

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lineWidth > 0 {
		fmt.Fprint(r.out, "\r"+strings.Repeat(" ", r.lineWidth)+"\r")
		r.lineWidth = 0
	}
}

func (r *Renderer) animate(ind *indicator, start time.Time) {
	defer close(ind.done)

	interval := r.spin.FPS
	if interval <= 0 {
		interval = time.Second / 10
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		r.drawFrame(frame, time.Since(start))
		select {
		case <-ind.stop:
			return
		case <-ticker.C:
		}
	}
}

// drawFrame overwrites the indicator line with the given frame.
func (r *Renderer) drawFrame(frame int, elapsed time.Duration) {
	glyph := r.spin.Frames[frame%len(r.spin.Frames)]
	text := "Thinking..."
	timer := fmt.Sprintf("%.1fs", elapsed.Seconds())

	plain := glyph + " " + text + " " + timer
	width := runewidth.StringWidth(plain)

	line := r.theme.Spinner.Render(glyph) + " " +
		r.theme.ThinkingText.Render(text) + " " +
		r.theme.ThinkingTime.Render(timer)

	r.mu.Lock()
	defer r.mu.Unlock()
	pad := ""
	if r.lineWidth > width {
		pad = strings.Repeat(" ", r.lineWidth-width)
	}
	fmt.Fprint(r.out, "\r"+line+pad)
	if width > r.lineWidth {
		r.lineWidth = width
	}
}
