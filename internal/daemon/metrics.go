package daemon

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/notify"
)

// Metrics tracks daemon operational metrics.
type Metrics struct {
	// Counters
	samplesProcessed atomic.Int64
	impactsDetected  atomic.Int64
	alertsCancelled  atomic.Int64
	alertsSent       atomic.Int64
	webhooksSent     atomic.Int64
	webhooksFailed   atomic.Int64
	errorsTotal      atomic.Int64

	mu               sync.RWMutex
	peakG            float64
	webhookLatencyMs int64
	lastImpactAt     time.Time
	lastAlertAt      time.Time
	lastError        string
	lastErrorAt      time.Time
	errorsByCategory map[string]int64
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{
		errorsByCategory: make(map[string]int64),
	}
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	SamplesProcessed int64            `json:"samples_processed_total"`
	ImpactsDetected  int64            `json:"impacts_detected_total"`
	AlertsCancelled  int64            `json:"alerts_cancelled_total"`
	AlertsSent       int64            `json:"alerts_sent_total"`
	WebhooksSent     int64            `json:"webhooks_sent_total"`
	WebhooksFailed   int64            `json:"webhooks_failed_total"`
	ErrorsTotal      int64            `json:"errors_total"`
	PeakG            float64          `json:"peak_g"`
	WebhookLatencyMs int64            `json:"webhook_latency_ms"`
	LastImpactAt     *time.Time       `json:"last_impact_at,omitempty"`
	LastAlertAt      *time.Time       `json:"last_alert_at,omitempty"`
	LastError        string           `json:"last_error,omitempty"`
	LastErrorAt      *time.Time       `json:"last_error_at,omitempty"`
	ErrorsByCategory map[string]int64 `json:"errors_by_category,omitempty"`
}

// Snapshot returns a copy of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		SamplesProcessed: m.samplesProcessed.Load(),
		ImpactsDetected:  m.impactsDetected.Load(),
		AlertsCancelled:  m.alertsCancelled.Load(),
		AlertsSent:       m.alertsSent.Load(),
		WebhooksSent:     m.webhooksSent.Load(),
		WebhooksFailed:   m.webhooksFailed.Load(),
		ErrorsTotal:      m.errorsTotal.Load(),
		PeakG:            m.peakG,
		WebhookLatencyMs: m.webhookLatencyMs,
		LastError:        m.lastError,
		ErrorsByCategory: make(map[string]int64, len(m.errorsByCategory)),
	}
	if !m.lastImpactAt.IsZero() {
		t := m.lastImpactAt
		snap.LastImpactAt = &t
	}
	if !m.lastAlertAt.IsZero() {
		t := m.lastAlertAt
		snap.LastAlertAt = &t
	}
	if !m.lastErrorAt.IsZero() {
		t := m.lastErrorAt
		snap.LastErrorAt = &t
	}
	for k, v := range m.errorsByCategory {
		snap.ErrorsByCategory[k] = v
	}
	return snap
}

// JSON returns metrics as JSON.
func (m *Metrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m.Snapshot(), "", "  ")
}

// Observe updates the counters from a guard event. It is a guard listener
// and does not block.
func (m *Metrics) Observe(e guard.Event) {
	switch e.Type {
	case guard.EventReading:
		m.samplesProcessed.Add(1)
		if e.Reading != nil {
			m.mu.Lock()
			if e.Reading.GForce > m.peakG {
				m.peakG = e.Reading.GForce
			}
			m.mu.Unlock()
		}
	case guard.EventAlert:
		m.impactsDetected.Add(1)
		m.mu.Lock()
		m.lastImpactAt = e.At
		m.mu.Unlock()
	case guard.EventCancelled:
		m.alertsCancelled.Add(1)
	case guard.EventSent:
		m.alertsSent.Add(1)
		m.mu.Lock()
		m.lastAlertAt = e.At
		m.mu.Unlock()
	}
}

// RecordDispatch counts webhook deliveries.
func (m *Metrics) RecordDispatch(results []notify.DispatchResult) {
	for _, r := range results {
		if r.Success {
			m.webhooksSent.Add(1)
			m.mu.Lock()
			m.webhookLatencyMs = r.Duration.Milliseconds()
			m.mu.Unlock()
			continue
		}
		m.webhooksFailed.Add(1)
		if r.Error != nil {
			m.RecordError("webhook", r.Error)
		}
	}
}

// RecordError records an error with category.
func (m *Metrics) RecordError(category string, err error) {
	m.errorsTotal.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastError = err.Error()
	m.lastErrorAt = time.Now()
	if category != "" {
		m.errorsByCategory[category]++
	}
}

// SamplesProcessed returns the number of readings seen.
func (m *Metrics) SamplesProcessed() int64 {
	return m.samplesProcessed.Load()
}

// ImpactsDetected returns the number of countdowns started.
func (m *Metrics) ImpactsDetected() int64 {
	return m.impactsDetected.Load()
}

// ErrorsTotal returns the total errors.
func (m *Metrics) ErrorsTotal() int64 {
	return m.errorsTotal.Load()
}

// Reset resets all metrics to zero.
func (m *Metrics) Reset() {
	m.samplesProcessed.Store(0)
	m.impactsDetected.Store(0)
	m.alertsCancelled.Store(0)
	m.alertsSent.Store(0)
	m.webhooksSent.Store(0)
	m.webhooksFailed.Store(0)
	m.errorsTotal.Store(0)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.peakG = 0
	m.webhookLatencyMs = 0
	m.lastImpactAt = time.Time{}
	m.lastAlertAt = time.Time{}
	m.lastError = ""
	m.lastErrorAt = time.Time{}
	m.errorsByCategory = make(map[string]int64)
}
