package daemon

import (
	"encoding/json"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus is the current health of the daemon.
type HealthStatus struct {
	Status               string        `json:"status"`
	UptimeSeconds        int64         `json:"uptime_seconds"`
	MemoryMB             float64       `json:"memory_mb"`
	PendingNotifications int           `json:"pending_notifications"`
	LastCheck            time.Time     `json:"last_check"`
	Version              string        `json:"version,omitempty"`
	Goroutines           int           `json:"goroutines"`
	Checks               []CheckResult `json:"checks,omitempty"`
}

// CheckResult is the result of a single health check.
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthChecker runs named checks against the daemon's components.
type HealthChecker struct {
	mu        sync.RWMutex
	startTime time.Time
	version   string
	pending   func() int
	checks    map[string]func() error
}

// NewHealthChecker creates a health checker.
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		version:   version,
		checks:    make(map[string]func() error),
	}
}

// SetPendingFunc reports the retry queue depth in each check.
func (h *HealthChecker) SetPendingFunc(fn func() int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = fn
}

// AddCheck adds a named check. A non-nil error marks the daemon unhealthy.
func (h *HealthChecker) AddCheck(name string, check func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RemoveCheck removes a named check.
func (h *HealthChecker) RemoveCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.checks, name)
}

// Check runs every check and returns the status. Results are sorted by name.
func (h *HealthChecker) Check() *HealthStatus {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := &HealthStatus{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		MemoryMB:      float64(memStats.Alloc) / 1024 / 1024,
		LastCheck:     time.Now(),
		Version:       h.version,
		Goroutines:    runtime.NumGoroutine(),
	}
	if h.pending != nil {
		status.PendingNotifications = h.pending()
	}
	for _, name := range names {
		result := CheckResult{Name: name, Healthy: true}
		if err := h.checks[name](); err != nil {
			result.Healthy = false
			result.Error = err.Error()
			status.Status = "unhealthy"
		}
		status.Checks = append(status.Checks, result)
	}
	h.mu.RUnlock()

	return status
}

// IsHealthy reports whether every check passes.
func (h *HealthChecker) IsHealthy() bool {
	return h.Check().Status == "healthy"
}

// Uptime returns how long the daemon has been running.
func (h *HealthChecker) Uptime() time.Duration {
	return time.Since(h.startTime)
}

// JSON returns the health status as JSON.
func (h *HealthChecker) JSON() ([]byte, error) {
	return json.MarshalIndent(h.Check(), "", "  ")
}
