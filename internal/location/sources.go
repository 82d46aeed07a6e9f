package location

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/manav03panchal/bikeguard/internal/broker"
	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/validate"
)

// mqttFix is the JSON published by GPS producers. Producers that forward raw
// RMC data also send "validity"; "V" marks a void fix.
type mqttFix struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lon"`
	Accuracy  float64  `json:"accuracy"`
	Validity  string   `json:"validity"`
}

// ParseFixPayload decodes one MQTT GPS message.
func ParseFixPayload(data []byte, now time.Time) (Fix, error) {
	var m mqttFix
	if err := json.Unmarshal(data, &m); err != nil {
		return Fix{}, err
	}
	if m.Latitude == nil || m.Longitude == nil {
		return Fix{}, fmt.Errorf("fix has no lat/lon")
	}
	if m.Validity == "V" {
		return Fix{}, fmt.Errorf("void fix")
	}
	if err := validate.Coordinates(*m.Latitude, *m.Longitude); err != nil {
		return Fix{}, err
	}
	return Fix{Latitude: *m.Latitude, Longitude: *m.Longitude, Accuracy: m.Accuracy, At: now}, nil
}

// MQTTFixSource subscribes to a GPS topic.
type MQTTFixSource struct {
	MQTT  config.MQTTConfig
	Topic string
}

// Fixes connects and streams decoded fixes.
func (m *MQTTFixSource) Fixes(ctx context.Context) (<-chan Fix, error) {
	out := make(chan Fix, 1)
	var (
		mu     sync.Mutex
		closed bool
	)

	err := broker.Subscribe(ctx, m.MQTT, "gps", m.Topic, func(data []byte) {
		fix, err := ParseFixPayload(data, time.Now())
		if err != nil {
			logging.Component("location").Debug("dropping GPS payload", logging.KeyError, err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		// keep only the newest fix
		select {
		case <-out:
		default:
		}
		out <- fix
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrLocationUnavailable, "%v", err)
	}

	go func() {
		<-ctx.Done()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out, nil
}

// StaticSource reports one configured position, refreshed so it never goes stale.
type StaticSource struct {
	Fix      Fix
	Interval time.Duration
}

// Fixes emits the configured fix now and then every Interval.
func (s *StaticSource) Fixes(ctx context.Context) (<-chan Fix, error) {
	if err := validate.Coordinates(s.Fix.Latitude, s.Fix.Longitude); err != nil {
		return nil, err
	}
	interval := s.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	out := make(chan Fix)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			f := s.Fix
			f.At = time.Now()
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// FromConfig builds the configured source. It returns nil for source "none".
func FromConfig(cfg *config.RuntimeConfig) (Source, error) {
	loc := cfg.Location
	switch loc.Source {
	case "nmea":
		return NewNMEASource(loc.SerialPort, loc.BaudRate), nil
	case "mqtt":
		return &MQTTFixSource{MQTT: cfg.MQTT, Topic: loc.Topic}, nil
	case "static":
		return &StaticSource{
			Fix:      Fix{Latitude: loc.Latitude, Longitude: loc.Longitude, Accuracy: loc.Accuracy},
			Interval: loc.MaxAge / 2,
		}, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown location source %q", loc.Source)
	}
}

// NewTrackerFromConfig creates a tracker with the configured max age and timeout.
func NewTrackerFromConfig(cfg *config.RuntimeConfig) *Tracker {
	return NewTracker(cfg.Location.MaxAge, cfg.Location.Timeout)
}
