package motion

import (
	"math"
	"sync"
	"time"

	"github.com/manav03panchal/bikeguard/internal/validate"
)

// Config tunes the detector.
type Config struct {
	Threshold     float64
	JerkThreshold float64
	HistoryLength int
	WarmUp        time.Duration
}

// DefaultConfig returns the stock heuristic: 3.5 g, jerk above 1.5, ten
// readings of history and a three second warm-up.
func DefaultConfig() Config {
	return Config{
		Threshold:     3.5,
		JerkThreshold: 1.5,
		HistoryLength: 10,
		WarmUp:        3 * time.Second,
	}
}

// Detector keeps the recent g-force history and flags impacts.
// It is safe for concurrent use.
type Detector struct {
	mu      sync.Mutex
	cfg     Config
	history *ring
}

// NewDetector creates a detector. Zero fields in cfg take their defaults.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.JerkThreshold <= 0 {
		cfg.JerkThreshold = def.JerkThreshold
	}
	if cfg.HistoryLength < 2 {
		cfg.HistoryLength = def.HistoryLength
	}
	if cfg.WarmUp < 0 {
		cfg.WarmUp = 0
	}
	return &Detector{cfg: cfg, history: newRing(cfg.HistoryLength)}
}

// Config returns the current configuration.
func (d *Detector) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Threshold returns the impact threshold in g.
func (d *Detector) Threshold() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Threshold
}

// SetThreshold changes the impact threshold. Values outside 1-16 g are rejected.
func (d *Detector) SetThreshold(g float64) error {
	if err := validate.Threshold(g); err != nil {
		return err
	}
	d.mu.Lock()
	d.cfg.Threshold = g
	d.mu.Unlock()
	return nil
}

// Observe pushes a reading into the history and evaluates it.
func (d *Detector) Observe(a Acceleration, at time.Time) Reading {
	g := Magnitude(a)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.history.push(g)
	r := Reading{
		GForce:    g,
		Progress:  Progress(g, d.cfg.Threshold),
		Severity:  Classify(g, d.cfg.Threshold),
		Threshold: d.cfg.Threshold,
		At:        at,
	}
	if d.history.len() >= 2 {
		r.HasJerk = true
		r.Jerk = math.Abs(d.history.last(0) - d.history.last(1))
		r.Impact = g > d.cfg.Threshold && r.Jerk > d.cfg.JerkThreshold
	}
	return r
}

// Armed reports whether readings taken elapsed after activation may trigger.
func (d *Detector) Armed(elapsed time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return elapsed >= d.cfg.WarmUp
}

// Triggers reports whether r, taken elapsed after activation, should raise
// an alert: the jerk gate passes and Window accepts the magnitude.
func (d *Detector) Triggers(r Reading, elapsed time.Duration) bool {
	d.mu.Lock()
	jerk, warmUp := d.cfg.JerkThreshold, d.cfg.WarmUp
	d.mu.Unlock()
	return r.HasJerk && r.Jerk > jerk && Window(r.GForce, r.Threshold, elapsed, warmUp)
}

// History returns the stored g-force values, oldest first.
func (d *Detector) History() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history.slice()
}

// Reset clears the history.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.history.reset()
	d.mu.Unlock()
}
