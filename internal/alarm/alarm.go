// Package alarm plays the local alarm while a countdown runs: a siren through
// the speaker and a vibration pattern.
package alarm

import (
	"sync"

	"github.com/manav03panchal/bikeguard/internal/model"
)

// Alarm is started when an impact is detected and stopped on cancel or send.
type Alarm interface {
	Start(settings model.Settings)
	Stop()
}

// Multi drives a sound and a vibration alarm together. Start honours the
// rider's toggles; Stop always stops both.
type Multi struct {
	Sound     Alarm
	Vibration Alarm

	mu      sync.Mutex
	running bool
}

// NewMulti combines sound and vibration. Either may be nil.
func NewMulti(sound, vibration Alarm) *Multi {
	return &Multi{Sound: sound, Vibration: vibration}
}

// Start begins the alarms enabled in settings.
func (m *Multi) Start(settings model.Settings) {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	if settings.EnableSound && m.Sound != nil {
		m.Sound.Start(settings)
	}
	if settings.EnableVibration && m.Vibration != nil {
		m.Vibration.Start(settings)
	}
}

// Stop silences everything.
func (m *Multi) Stop() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	if m.Sound != nil {
		m.Sound.Stop()
	}
	if m.Vibration != nil {
		m.Vibration.Stop()
	}
}

// Running reports whether Start was called without a matching Stop.
func (m *Multi) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Silent is an Alarm that does nothing.
type Silent struct{}

func (Silent) Start(model.Settings) {}
func (Silent) Stop()                {}
