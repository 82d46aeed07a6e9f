// Package location tracks the rider's latest position from a GPS receiver,
// an MQTT topic, or a fixed configuration.
package location

import (
	"context"
	"sync"
	"time"

	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/model"
)

// Fix is a position report.
type Fix = model.Fix

// Status lines shown next to the sensor status.
const (
	StatusActive  = "GPS: Active"
	StatusError   = "GPS: Error"
	StatusWaiting = "GPS: Waiting"
)

// Source produces fixes until ctx is done.
type Source interface {
	Fixes(ctx context.Context) (<-chan Fix, error)
}

// Tracker keeps the most recent fix.
type Tracker struct {
	mu      sync.RWMutex
	fix     *Fix
	status  string
	updated chan struct{}

	maxAge  time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewTracker creates a tracker. Fixes older than maxAge are stale; Acquire
// waits at most timeout for a fresh one.
func NewTracker(maxAge, timeout time.Duration) *Tracker {
	return &Tracker{
		status:  StatusWaiting,
		updated: make(chan struct{}),
		maxAge:  maxAge,
		timeout: timeout,
		now:     time.Now,
	}
}

// Update records a new fix. A zero At is stamped with the current time.
func (t *Tracker) Update(f Fix) {
	if f.At.IsZero() {
		f.At = t.now()
	}

	t.mu.Lock()
	t.fix = &f
	t.status = StatusActive
	close(t.updated)
	t.updated = make(chan struct{})
	t.mu.Unlock()
}

// Fail marks the source as failing. The last fix is kept until it goes stale.
func (t *Tracker) Fail(err error) {
	logging.Component("location").Warn("GPS Error", logging.KeyError, err)
	t.mu.Lock()
	t.status = StatusError
	t.mu.Unlock()
}

// Status returns the GPS status line.
func (t *Tracker) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Last returns the latest fix regardless of age.
func (t *Tracker) Last() *Fix {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.fix == nil {
		return nil
	}
	f := *t.fix
	return &f
}

// Current returns the latest fix if it is younger than the max age.
func (t *Tracker) Current() *Fix {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.freshLocked()
}

func (t *Tracker) freshLocked() *Fix {
	if t.fix == nil {
		return nil
	}
	if t.maxAge > 0 && t.now().Sub(t.fix.At) > t.maxAge {
		return nil
	}
	f := *t.fix
	return &f
}

// Acquire returns a fresh fix, waiting up to the tracker timeout for one.
// It returns nil when none arrives in time; that is not an error.
func (t *Tracker) Acquire(ctx context.Context) *Fix {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	for {
		t.mu.RLock()
		f := t.freshLocked()
		wait := t.updated
		t.mu.RUnlock()
		if f != nil {
			return f
		}

		select {
		case <-ctx.Done():
			return nil
		case <-wait:
		}
	}
}

// Run feeds the tracker from src until ctx is done or src ends.
func (t *Tracker) Run(ctx context.Context, src Source) error {
	ch, err := src.Fixes(ctx)
	if err != nil {
		t.Fail(err)
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-ch:
			if !ok {
				return nil
			}
			t.Update(f)
		}
	}
}
