package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/notify"
	"github.com/manav03panchal/bikeguard/internal/sensor"
)

// Monitor is the part of the guard the watchdog inspects.
type Monitor interface {
	Status() guard.Status
	SetSensorStatus(status string)
}

// Watchdog warns the rider once when protection is on but no samples have
// arrived for a while.
type Watchdog struct {
	monitor    Monitor
	notifier   notify.Notifier
	staleAfter time.Duration
	now        func() time.Time
	started    time.Time

	mu     sync.Mutex
	warned bool
}

// NewWatchdog creates a watchdog. A non-positive staleAfter disables it.
func NewWatchdog(m Monitor, n notify.Notifier, staleAfter time.Duration) *Watchdog {
	return &Watchdog{
		monitor:    m,
		notifier:   n,
		staleAfter: staleAfter,
		now:        time.Now,
		started:    time.Now(),
	}
}

// Check runs one watchdog pass and reports whether the sensor is stale.
func (w *Watchdog) Check() bool {
	if w.staleAfter <= 0 {
		return false
	}
	st := w.monitor.Status()
	if !st.Active {
		w.reset()
		return false
	}

	last := w.started
	if !st.ActivatedAt.IsZero() && st.ActivatedAt.After(last) {
		last = st.ActivatedAt
	}
	if st.LastReading != nil && st.LastReading.At.After(last) {
		last = st.LastReading.At
	}

	silent := w.now().Sub(last)
	if silent < w.staleAfter {
		w.reset()
		return false
	}

	w.monitor.SetSensorStatus(sensor.StatusWaiting)

	w.mu.Lock()
	already := w.warned
	w.warned = true
	w.mu.Unlock()

	if !already {
		logging.Warn("no motion data", "silent", silent.Round(time.Second))
		if w.notifier != nil {
			w.notifier.Notify(sensor.StatusWaiting,
				fmt.Sprintf("No motion data for %s. Impacts cannot be detected.", silent.Round(time.Second)))
		}
	}
	return true
}

func (w *Watchdog) reset() {
	w.mu.Lock()
	w.warned = false
	w.mu.Unlock()
}

// PendingStore finds and updates incidents left open.
type PendingStore interface {
	Pending() ([]*model.Incident, error)
	Update(inc *model.Incident) error
}

// RecoverPending closes incidents whose countdown was interrupted by a
// restart. Nothing was sent for them, so they are marked cancelled.
func RecoverPending(store PendingStore, now time.Time) (int, error) {
	pending, err := store.Pending()
	if err != nil {
		return 0, fmt.Errorf("listing pending incidents: %w", err)
	}

	recovered := 0
	for _, inc := range pending {
		inc.Resolve(model.OutcomeCancelled, now)
		if err := store.Update(inc); err != nil {
			logging.Warn("could not close interrupted incident",
				logging.KeyIncidentID, inc.ID,
				logging.KeyError, err)
			continue
		}
		recovered++
	}
	if recovered > 0 {
		logging.Info("closed interrupted incidents", logging.KeyCount, recovered)
	}
	return recovered, nil
}
