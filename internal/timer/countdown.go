// Package timer runs the post-impact countdown and renders its overlay.
package timer

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/model"
)

// Countdown ticks once per second from a starting value down to zero and
// then fires its expiry callback, unless cancelled first.
type Countdown struct {
	// Interval between ticks; one second unless a test shortens it.
	Interval time.Duration

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	remaining int
	total     int
}

// NewCountdown creates an idle countdown.
func NewCountdown() *Countdown {
	return &Countdown{Interval: time.Second}
}

// Start begins counting down from seconds. onTick receives each new value
// (seconds-1 ... 0); onExpire runs on the countdown goroutine after the tick
// that reaches zero. Either callback may be nil. Cancelling ctx or calling
// Cancel stops the countdown without calling onExpire.
func (c *Countdown) Start(ctx context.Context, seconds int, onTick func(remaining int), onExpire func()) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return errors.ErrAlertInProgress
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.remaining = seconds
	c.total = seconds
	interval := c.Interval
	c.mu.Unlock()

	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			c.mu.Lock()
			if ctx.Err() != nil {
				c.mu.Unlock()
				return
			}
			c.remaining--
			left := c.remaining
			if left <= 0 {
				c.cancel = nil
			}
			c.mu.Unlock()

			if onTick != nil {
				onTick(left)
			}
			if left <= 0 {
				cancel()
				if onExpire != nil {
					onExpire()
				}
				return
			}
		}
	}()
	return nil
}

// Cancel stops a running countdown and reports whether one was running.
// Calling it again, or on an idle countdown, is a no-op.
func (c *Countdown) Cancel() bool {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Running reports whether a countdown is in progress.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Remaining returns the seconds left and the starting value.
func (c *Countdown) Remaining() (remaining, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining, c.total
}

// Wait blocks until the current countdown goroutine exits.
func (c *Countdown) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// CountdownHint tells the rider how to react.
const CountdownHint = "Press C to cancel, S to send now"

// CountdownDisplay renders the countdown overlay.
type CountdownDisplay struct {
	Writer   io.Writer
	UseColor bool
}

// NewCountdownDisplay creates a new countdown display.
func NewCountdownDisplay() *CountdownDisplay {
	return &CountdownDisplay{
		Writer:   os.Stdout,
		UseColor: true,
	}
}

var (
	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444")) // Red

	timerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F59E0B")) // Amber

	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")) // Gray

	statusStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#6B7280"))
)

// FormatDuration formats a duration as MM:SS or HH:MM:SS.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// LocationLine describes fix for the overlay.
func LocationLine(fix *model.Fix) string {
	if fix == nil {
		return "Getting location..."
	}
	line := fmt.Sprintf("Location: %.6f, %.6f", fix.Latitude, fix.Longitude)
	if fix.Accuracy > 0 {
		line += fmt.Sprintf("\nAccuracy: %d meters", int64(math.Round(fix.Accuracy)))
	}
	return line
}

// RenderCountdown renders the overlay shown while an alert is pending.
func (cd *CountdownDisplay) RenderCountdown(remaining, total int, fix *model.Fix) string {
	var b strings.Builder

	b.WriteString(cd.style(alertStyle, "ALERT TRIGGERED!"))
	b.WriteString("\n\n")
	b.WriteString(cd.style(timerStyle, fmt.Sprintf("Sending emergency alert in %d", remaining)))
	b.WriteString("\n\n")

	progress := 1.0
	if total > 0 {
		progress = 1.0 - float64(remaining)/float64(total)
	}
	progress = math.Max(0, math.Min(1, progress))
	b.WriteString(cd.style(progressStyle, cd.renderProgressBar(progress, 30)))
	b.WriteString("\n\n")

	b.WriteString(LocationLine(fix))
	b.WriteString("\n\n")
	b.WriteString(cd.style(statusStyle, CountdownHint))
	return b.String()
}

func (cd *CountdownDisplay) style(s lipgloss.Style, text string) string {
	if cd.UseColor {
		return s.Render(text)
	}
	return text
}

// renderProgressBar creates a progress bar string.
func (cd *CountdownDisplay) renderProgressBar(progress float64, width int) string {
	filled := int(progress * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %d%%", bar, int(progress*100))
}

// ClearScreen clears the terminal screen.
func (cd *CountdownDisplay) ClearScreen() {
	fmt.Fprint(cd.Writer, "\033[H\033[2J")
}

// MoveCursorHome moves cursor to home position.
func (cd *CountdownDisplay) MoveCursorHome() {
	fmt.Fprint(cd.Writer, "\033[H")
}
