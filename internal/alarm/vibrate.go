package alarm

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/manav03panchal/bikeguard/internal/model"
)

// VibrationPattern alternates on and off durations, starting with on.
var VibrationPattern = []time.Duration{
	500 * time.Millisecond,
	200 * time.Millisecond,
	500 * time.Millisecond,
	200 * time.Millisecond,
	500 * time.Millisecond,
}

// Vibrator renders the vibration pattern as terminal bells, one per pulse.
type Vibrator struct {
	Out     io.Writer
	Pattern []time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewVibrator writes bells to w.
func NewVibrator(w io.Writer) *Vibrator {
	return &Vibrator{Out: w, Pattern: VibrationPattern}
}

// Start plays the pattern once in the background. Starting again restarts it.
func (v *Vibrator) Start(model.Settings) {
	v.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	v.mu.Lock()
	v.cancel = cancel
	v.done = done
	v.mu.Unlock()

	go func() {
		defer close(done)
		v.play(ctx)
	}()
}

func (v *Vibrator) play(ctx context.Context) {
	for i, d := range v.Pattern {
		if i%2 == 0 {
			_, _ = io.WriteString(v.Out, "\a")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}
	}
}

// Stop ends the pattern early and waits for the player to exit.
func (v *Vibrator) Stop() {
	v.mu.Lock()
	cancel, done := v.cancel, v.done
	v.cancel, v.done = nil, nil
	v.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the current pattern finishes or is stopped.
func (v *Vibrator) Wait() {
	v.mu.Lock()
	done := v.done
	v.mu.Unlock()
	if done != nil {
		<-done
	}
}
