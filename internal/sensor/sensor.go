// Package sensor delivers accelerometer samples to the guard from an MQTT
// topic, a recorded CSV file, or a channel fed by the API.
package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/manav03panchal/bikeguard/internal/motion"
)

// Status lines shown next to the g-force readout.
const (
	StatusActive       = "Sensors: Active"
	StatusNotAvailable = "Sensors: Not Available"
	StatusWaiting      = "Sensors: Waiting"
)

// Sample is one accelerometer reading. A nil Accel is a null reading.
type Sample struct {
	Accel *motion.Acceleration `json:"accel"`
	At    time.Time            `json:"at"`
}

// NewSample wraps a full three-axis reading taken at at.
func NewSample(x, y, z float64, at time.Time) Sample {
	a := motion.NewAcceleration(x, y, z)
	return Sample{Accel: &a, At: at}
}

// Source produces samples until ctx is done. The returned channel is closed
// when the source ends. An error means the sensor could not be opened.
type Source interface {
	Samples(ctx context.Context) (<-chan Sample, error)
}

// ChanSource is a Source fed programmatically.
type ChanSource struct {
	ch     chan Sample
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// NewChanSource creates a source with the given buffer size.
func NewChanSource(buffer int) *ChanSource {
	return &ChanSource{ch: make(chan Sample, buffer)}
}

// Samples returns the underlying channel.
func (c *ChanSource) Samples(context.Context) (<-chan Sample, error) {
	return c.ch, nil
}

// Push queues a sample without blocking. It returns false if the buffer is
// full or the source is closed.
func (c *ChanSource) Push(s Sample) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.ch <- s:
		return true
	default:
		return false
	}
}

// Close ends the stream.
func (c *ChanSource) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.ch)
		c.mu.Unlock()
	})
}
