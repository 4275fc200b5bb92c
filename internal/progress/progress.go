// Package progress provides progress display for local clusterun runs.
package progress

import (
	"fmt"
	"io"
	"time"
)

// Tracker tracks and displays progress for a sequential permutation run
type Tracker struct {
	total     int
	completed int
	failed    int
	startTime time.Time
	writer    io.Writer
	enabled   bool
}

// NewTracker creates a new progress tracker
func NewTracker(total int, writer io.Writer, enabled bool) *Tracker {
	return &Tracker{
		total:     total,
		startTime: time.Now(),
		writer:    writer,
		enabled:   enabled,
	}
}

// Update records the outcome of one permutation and redraws the line
func (t *Tracker) Update(success bool) {
	if success {
		t.completed++
	} else {
		t.failed++
	}
	if t.enabled {
		t.draw()
	}
}

// Finish completes the progress tracking and shows final stats
func (t *Tracker) Finish() {
	if t.enabled {
		t.drawFinal()
	}
}

// draw renders the current progress line
func (t *Tracker) draw() {
	done := t.completed + t.failed
	if t.total == 0 {
		return
	}

	percentage := float64(done) / float64(t.total) * 100
	elapsed := time.Since(t.startTime)

	var eta string
	if done > 0 {
		remaining := time.Duration(t.total-done) * (elapsed / time.Duration(done))
		eta = fmt.Sprintf("ETA: %v", remaining.Round(time.Second))
	} else {
		eta = "ETA: calculating..."
	}

	fmt.Fprintf(t.writer, "\r%.1f%% (%d/%d) ok:%d failed:%d [%v] %s",
		percentage, done, t.total, t.completed, t.failed,
		elapsed.Round(time.Second), eta)
}

// drawFinal renders the final progress summary
func (t *Tracker) drawFinal() {
	done := t.completed + t.failed
	elapsed := time.Since(t.startTime)

	fmt.Fprintf(t.writer, "\r%80s\r", "")
	if t.failed == 0 {
		fmt.Fprintf(t.writer, "completed %d/%d permutations in %v\n",
			t.completed, t.total, elapsed.Round(time.Second))
	} else {
		fmt.Fprintf(t.writer, "completed %d/%d permutations (%d ok, %d failed) in %v\n",
			done, t.total, t.completed, t.failed, elapsed.Round(time.Second))
	}
}

// Stats returns current progress statistics
func (t *Tracker) Stats() (completed, failed, total int) {
	return t.completed, t.failed, t.total
}
