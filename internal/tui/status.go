package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// StatusWriter keeps one spinning status line on a terminal while a
// blocking call runs outside a bubbletea program, such as a version lookup
// that may sit in retry backoff for several seconds.
type StatusWriter struct {
	w       io.Writer
	frames  spinner.Spinner
	mu      sync.Mutex
	message string
	since   time.Time
	done    chan struct{}
	stopped bool
}

// NewStatusWriter starts rendering msg to w in the background.
func NewStatusWriter(w io.Writer, msg string) *StatusWriter {
	sw := &StatusWriter{
		w:       w,
		frames:  spinner.Dot,
		message: msg,
		since:   time.Now(),
		done:    make(chan struct{}),
	}
	go sw.loop()
	return sw
}

// Update replaces the status message and restarts the elapsed timer.
func (sw *StatusWriter) Update(msg string) {
	sw.mu.Lock()
	sw.message = msg
	sw.since = time.Now()
	sw.mu.Unlock()
}

// Retry reports a failed attempt and the wait before the next one. Its
// signature matches resolve.Resolver.OnRetry.
func (sw *StatusWriter) Retry(attempt int, err error, wait time.Duration) {
	sw.Update(fmt.Sprintf("attempt %d failed (%v), retrying in %s", attempt, err, wait))
}

// Stop clears the status line and stops the spinner.
func (sw *StatusWriter) Stop() {
	sw.mu.Lock()
	if sw.stopped {
		sw.mu.Unlock()
		return
	}
	sw.stopped = true
	sw.mu.Unlock()
	close(sw.done)
	fmt.Fprintf(sw.w, "\r\033[K")
}

func (sw *StatusWriter) loop() {
	tick := 0
	ticker := time.NewTicker(sw.frames.FPS)
	defer ticker.Stop()

	for {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
			sw.mu.Lock()
			msg := sw.message
			since := sw.since
			sw.mu.Unlock()

			frame := sw.frames.Frames[tick%len(sw.frames.Frames)]
			tick++
			fmt.Fprintf(sw.w, "\r\033[K%s %s (%s)", frame, msg, formatElapsed(time.Since(since)))
		}
	}
}

// formatElapsed formats a duration for display in the status line.
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < 10*time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
