package guard

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/bikeguard/internal/alert"
	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/motion"
	"github.com/manav03panchal/bikeguard/internal/notify"
	"github.com/manav03panchal/bikeguard/internal/sensor"
)

// =============================================================================
// Fakes
// =============================================================================

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeAlarm struct {
	mu       sync.Mutex
	starts   int
	stops    int
	settings model.Settings
}

func (a *fakeAlarm) Start(s model.Settings) {
	a.mu.Lock()
	a.starts++
	a.settings = s
	a.mu.Unlock()
}

func (a *fakeAlarm) Stop() {
	a.mu.Lock()
	a.stops++
	a.mu.Unlock()
}

func (a *fakeAlarm) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.starts, a.stops
}

type fakeSender struct {
	mu       sync.Mutex
	calls    int
	contacts []model.Contact
	fix      *model.Fix
}

func (s *fakeSender) SendAll(_ context.Context, contacts []model.Contact, fix *model.Fix) *alert.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.contacts = contacts
	s.fix = fix
	report := &alert.Report{Location: fix}
	for _, c := range contacts {
		report.Results = append(report.Results, alert.Result{Contact: c})
	}
	return report
}

func (s *fakeSender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeLocator struct {
	current  *model.Fix
	acquired *model.Fix
	acquires int
}

func (l *fakeLocator) Current() *model.Fix { return l.current }
func (l *fakeLocator) Acquire(context.Context) *model.Fix {
	l.acquires++
	return l.acquired
}
func (l *fakeLocator) Status() string { return "GPS: Active" }

type notes struct {
	mu     sync.Mutex
	titles []string
}

func (n *notes) Notify(title, _ string) {
	n.mu.Lock()
	n.titles = append(n.titles, title)
	n.mu.Unlock()
}

func (n *notes) All() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.titles...)
}

type memIncidents struct {
	mu   sync.Mutex
	byID map[string]model.Incident
}

func (m *memIncidents) Create(inc *model.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byID == nil {
		m.byID = make(map[string]model.Incident)
	}
	m.byID[inc.ID] = *inc
	return nil
}

func (m *memIncidents) Update(inc *model.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[inc.ID]; !ok {
		return fmt.Errorf("incident %s: %w", inc.ID, errors.ErrIncidentNotFound)
	}
	m.byID[inc.ID] = *inc
	return nil
}

func (m *memIncidents) only(t *testing.T) model.Incident {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.byID, 1)
	for _, inc := range m.byID {
		return inc
	}
	return model.Incident{}
}

type fakeRelay struct {
	mu    sync.Mutex
	types []model.NotificationType
}

func (r *fakeRelay) SendNotification(_ context.Context, n *model.Notification) []notify.DispatchResult {
	r.mu.Lock()
	r.types = append(r.types, n.Type)
	r.mu.Unlock()
	return nil
}

type harness struct {
	g         *Guard
	clock     *clock
	alarm     *fakeAlarm
	sender    *fakeSender
	locator   *fakeLocator
	notes     *notes
	incidents *memIncidents
	relay     *fakeRelay
}

func newHarness(t *testing.T, tick time.Duration) *harness {
	t.Helper()
	h := &harness{
		clock:     &clock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)},
		alarm:     &fakeAlarm{},
		sender:    &fakeSender{},
		locator:   &fakeLocator{},
		notes:     &notes{},
		incidents: &memIncidents{},
		relay:     &fakeRelay{},
	}
	profile := model.DefaultProfile()
	profile.CountdownTime = 3
	profile.Contacts = []model.Contact{{ID: 1, Name: "Alex", Phone: "+1 555 0100"}}

	h.g = New(Options{
		Profile:      profile,
		Detection:    config.DetectionConfig{WarmUp: 3 * time.Second, JerkThreshold: 1.5, HistoryLength: 10},
		Alarm:        h.alarm,
		Sender:       h.sender,
		Locator:      h.locator,
		Notifier:     h.notes,
		Relay:        h.relay,
		Incidents:    h.incidents,
		TickInterval: tick,
		Now:          h.clock.Now,
	})
	t.Cleanup(h.g.Close)
	return h
}

// sample builds a reading of g along the z axis.
func sample(g float64) sensor.Sample {
	return sensor.NewSample(0, 0, g*motion.StandardGravity, time.Time{})
}

// crash feeds a quiet reading followed by a hard one.
func (h *harness) crash() {
	h.g.HandleSample(sample(1))
	h.g.HandleSample(sample(6))
}

func (h *harness) armed() {
	h.g.Activate()
	h.clock.Advance(4 * time.Second)
}

// =============================================================================
// Activation Tests
// =============================================================================

func TestActivateDeactivate(t *testing.T) {
	h := newHarness(t, time.Hour)

	s := h.g.Status()
	assert.Equal(t, StateInactive, s.State)
	assert.False(t, s.Armed)

	h.g.Activate()
	h.g.Activate()
	s = h.g.Status()
	assert.Equal(t, StateActive, s.State)
	assert.False(t, s.Armed, "still warming up")
	assert.Equal(t, h.clock.Now(), s.ActivatedAt)

	h.clock.Advance(3 * time.Second)
	assert.True(t, h.g.Status().Armed)

	h.g.Deactivate()
	h.g.Deactivate()
	assert.False(t, h.g.Active())
	assert.Equal(t, []string{"Protection Activated", "Protection Deactivated"}, h.notes.All())
}

func TestToggle(t *testing.T) {
	h := newHarness(t, time.Hour)
	assert.True(t, h.g.Toggle())
	assert.False(t, h.g.Toggle())
	assert.True(t, h.g.Toggle())
}

func TestStatusEvents(t *testing.T) {
	h := newHarness(t, time.Hour)

	var got []Event
	unsubscribe := h.g.Subscribe(func(e Event) { got = append(got, e) })
	h.g.Activate()
	unsubscribe()
	h.g.Deactivate()

	require.Len(t, got, 1)
	assert.Equal(t, EventStatus, got[0].Type)
	require.NotNil(t, got[0].Status)
	assert.True(t, got[0].Status.Active)
}

// =============================================================================
// Detection Tests
// =============================================================================

func TestHandleSampleIgnoresNull(t *testing.T) {
	h := newHarness(t, time.Hour)

	var events int
	h.g.Subscribe(func(Event) { events++ })
	h.g.HandleSample(sensor.Sample{})

	assert.Zero(t, events)
	assert.Nil(t, h.g.Status().LastReading)
	assert.Equal(t, sensor.StatusWaiting, h.g.Status().SensorStatus)
}

func TestHandleSamplePublishesReading(t *testing.T) {
	h := newHarness(t, time.Hour)

	var readings []motion.Reading
	h.g.Subscribe(func(e Event) {
		if e.Type == EventReading {
			readings = append(readings, *e.Reading)
		}
	})
	h.g.HandleSample(sample(1))
	h.g.HandleSample(sample(3))

	require.Len(t, readings, 2)
	assert.False(t, readings[0].HasJerk)
	assert.InDelta(t, 2.0, readings[1].Jerk, 1e-9)
	assert.Equal(t, motion.SeverityElevated, readings[1].Severity)

	s := h.g.Status()
	assert.Equal(t, sensor.StatusActive, s.SensorStatus)
	assert.InDelta(t, 3.0, s.LastReading.GForce, 1e-9)
}

func TestImpactIgnoredWhenInactive(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.crash()
	assert.False(t, h.g.Detecting())
}

func TestImpactIgnoredDuringWarmUp(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.g.Activate()
	h.clock.Advance(time.Second)

	h.crash()
	assert.False(t, h.g.Detecting())

	h.clock.Advance(2 * time.Second)
	h.crash()
	assert.True(t, h.g.Detecting())
}

func TestImpactNeedsJerk(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.armed()

	h.g.HandleSample(sample(5))
	h.g.HandleSample(sample(5.5))
	assert.False(t, h.g.Detecting(), "sustained high g without a jolt")
}

func TestImpactStartsAlert(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.armed()

	var alerts []Event
	h.g.Subscribe(func(e Event) {
		if e.Type == EventAlert {
			alerts = append(alerts, e)
		}
	})
	h.crash()
	h.crash()

	require.Len(t, alerts, 1, "one alert while detecting")
	assert.Equal(t, 3, alerts[0].Remaining)
	assert.Equal(t, model.IncidentImpact, alerts[0].Incident.Kind)

	s := h.g.Status()
	assert.Equal(t, StateTriggered, s.State)
	assert.Equal(t, 3, s.Remaining)
	require.NotNil(t, s.Incident)
	assert.InDelta(t, 6.0, s.Incident.GForce, 1e-9)

	starts, _ := h.alarm.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, model.DefaultSettings(), h.alarm.settings)
	assert.Equal(t, model.OutcomePending, h.incidents.only(t).Outcome)
}

// =============================================================================
// Countdown Tests
// =============================================================================

func TestCountdownExpirySendsAlert(t *testing.T) {
	h := newHarness(t, 5*time.Millisecond)
	h.locator.current = &model.Fix{Latitude: 51.5, Longitude: -0.12, Accuracy: 9}
	h.armed()

	sent := make(chan Event, 1)
	var ticks []int
	var mu sync.Mutex
	h.g.Subscribe(func(e Event) {
		switch e.Type {
		case EventTick:
			mu.Lock()
			ticks = append(ticks, e.Remaining)
			mu.Unlock()
		case EventSent:
			sent <- e
		}
	})
	h.crash()

	select {
	case e := <-sent:
		assert.Equal(t, 1, e.Delivered)
		assert.Equal(t, model.OutcomeSent, e.Incident.Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("emergency never sent")
	}

	mu.Lock()
	assert.Equal(t, []int{2, 1, 0}, ticks)
	mu.Unlock()

	assert.Equal(t, 1, h.sender.Calls())
	assert.Equal(t, h.locator.current, h.sender.fix)
	assert.Zero(t, h.locator.acquires, "fresh fix reused")
	assert.False(t, h.g.Detecting())

	inc := h.incidents.only(t)
	assert.Equal(t, model.OutcomeSent, inc.Outcome)
	assert.Equal(t, 1, inc.ContactsNotified)
	require.NotNil(t, inc.Location)

	_, stops := h.alarm.counts()
	assert.Equal(t, 1, stops)
	assert.Contains(t, h.notes.All(), "Emergency alert sent!")
}

func TestCancel(t *testing.T) {
	h := newHarness(t, time.Hour)
	assert.True(t, errors.Is(h.g.Cancel(), errors.ErrNoAlert))

	h.armed()
	h.crash()
	require.True(t, h.g.Detecting())

	require.NoError(t, h.g.Cancel())
	assert.True(t, errors.Is(h.g.Cancel(), errors.ErrNoAlert))
	assert.False(t, h.g.Detecting())
	assert.Equal(t, StateActive, h.g.Status().State)
	assert.Zero(t, h.sender.Calls())

	_, stops := h.alarm.counts()
	assert.Equal(t, 1, stops)
	assert.Equal(t, model.OutcomeCancelled, h.incidents.only(t).Outcome)
	assert.Contains(t, h.notes.All(), "Alert cancelled")

	h.crash()
	assert.True(t, h.g.Detecting(), "monitoring resumes after cancel")
}

func TestSendNowAcquiresLocation(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.locator.acquired = &model.Fix{Latitude: 1, Longitude: 2}
	h.armed()
	h.crash()

	report, err := h.g.SendNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered())
	assert.Equal(t, 1, h.locator.acquires)
	assert.Equal(t, h.locator.acquired, h.sender.fix)
	assert.Equal(t, h.g.Profile().Contacts, h.sender.contacts)

	_, err = h.g.SendNow(context.Background())
	assert.True(t, errors.Is(err, errors.ErrNoAlert))
}

func TestDeactivateCancelsCountdown(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.armed()
	h.crash()

	h.g.Deactivate()
	assert.False(t, h.g.Detecting())
	assert.Equal(t, model.OutcomeCancelled, h.incidents.only(t).Outcome)
	assert.NotContains(t, h.notes.All(), "Alert cancelled")
}

// =============================================================================
// Test Alert Tests
// =============================================================================

func TestTestAlertRequiresActive(t *testing.T) {
	h := newHarness(t, time.Hour)

	err := h.g.TestAlert()
	assert.True(t, errors.Is(err, errors.ErrNotActive))
	assert.Equal(t, []string{"Please activate system first"}, h.notes.All())
	assert.False(t, h.g.Detecting())
}

func TestTestAlert(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.g.Activate()

	require.NoError(t, h.g.TestAlert(), "warm-up does not block a test")
	assert.True(t, h.g.Detecting())
	assert.Contains(t, h.notes.All(), "Test Alert Started")

	inc := h.incidents.only(t)
	assert.Equal(t, model.IncidentTest, inc.Kind)
	assert.InDelta(t, model.DefaultThreshold+1, inc.GForce, 1e-9)

	assert.True(t, errors.Is(h.g.TestAlert(), errors.ErrAlertInProgress))
}

// =============================================================================
// Profile Tests
// =============================================================================

func TestApplyProfile(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.armed()

	p := h.g.Profile()
	p.Threshold = 8
	p.Settings.EnableSound = false
	h.g.ApplyProfile(p)

	h.crash()
	assert.False(t, h.g.Detecting(), "6 g is below the new threshold")
	assert.Equal(t, 8.0, h.g.Status().Threshold)

	p.Threshold = 40
	h.g.ApplyProfile(p)
	assert.Equal(t, 8.0, h.g.Status().Threshold, "invalid threshold ignored")
	assert.False(t, h.g.Status().Settings.EnableSound)

	p.Threshold = 2
	h.g.ApplyProfile(p)
	h.crash()
	assert.True(t, h.g.Detecting())
	assert.False(t, h.alarm.settings.EnableSound)
}

// =============================================================================
// Run Tests
// =============================================================================

func TestRun(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.armed()

	src := sensor.NewChanSource(4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.g.Run(ctx, src) }()

	src.Push(sample(1))
	src.Push(sample(6))
	require.Eventually(t, h.g.Detecting, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRunSourceClosed(t *testing.T) {
	h := newHarness(t, time.Hour)
	src := sensor.NewChanSource(1)
	src.Close()
	assert.NoError(t, h.g.Run(context.Background(), src))
}

type brokenSource struct{}

func (brokenSource) Samples(context.Context) (<-chan sensor.Sample, error) {
	return nil, errors.ErrSensorUnavailable
}

func TestRunSourceUnavailable(t *testing.T) {
	h := newHarness(t, time.Hour)

	err := h.g.Run(context.Background(), brokenSource{})
	assert.True(t, errors.Is(err, errors.ErrSensorUnavailable))
	assert.Equal(t, sensor.StatusNotAvailable, h.g.Status().SensorStatus)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, h.g.Run(ctx, nil))
}

// =============================================================================
// Relay Tests
// =============================================================================

func TestRelayNotifications(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.armed()
	h.crash()
	require.NoError(t, h.g.Cancel())
	h.g.Close()

	h.relay.mu.Lock()
	defer h.relay.mu.Unlock()
	assert.ElementsMatch(t, []model.NotificationType{
		model.NotifyStatus, model.NotifyImpact, model.NotifyCancelled,
	}, h.relay.types)
}
