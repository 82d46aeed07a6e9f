// Package guard holds the protection state: whether monitoring is on, whether
// a countdown is running, and what happens when an impact is detected.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/manav03panchal/bikeguard/internal/alarm"
	"github.com/manav03panchal/bikeguard/internal/alert"
	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/location"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/motion"
	"github.com/manav03panchal/bikeguard/internal/notify"
	"github.com/manav03panchal/bikeguard/internal/sensor"
	"github.com/manav03panchal/bikeguard/internal/timer"
)

// Sender delivers the emergency message.
type Sender interface {
	SendAll(ctx context.Context, contacts []model.Contact, fix *model.Fix) *alert.Report
}

// Locator supplies the rider's position.
type Locator interface {
	Current() *model.Fix
	Acquire(ctx context.Context) *model.Fix
	Status() string
}

// IncidentStore persists incidents.
type IncidentStore interface {
	Create(inc *model.Incident) error
	Update(inc *model.Incident) error
}

// Options wires a Guard. Only Profile is required; nil collaborators are
// replaced with no-ops.
type Options struct {
	Profile   *model.Profile
	Detection config.DetectionConfig
	Alarm     alarm.Alarm
	Sender    Sender
	Locator   Locator
	Notifier  notify.Notifier
	Relay     alert.Relay
	Incidents IncidentStore
	// TickInterval is the countdown step; one second when zero.
	TickInterval time.Duration
	Now          func() time.Time
}

// Guard is the single owner of protection state. All exported methods are
// safe for concurrent use.
type Guard struct {
	mu          sync.Mutex
	profile     *model.Profile
	active      bool
	detecting   bool
	sending     bool
	activatedAt time.Time
	lastReading *motion.Reading
	incident    *model.Incident
	sensorState string

	detector  *motion.Detector
	countdown *timer.Countdown
	alarm     alarm.Alarm
	sender    Sender
	locator   Locator
	notifier  notify.Notifier
	relay     alert.Relay
	incidents IncidentStore
	now       func() time.Time

	listenerMu sync.RWMutex
	listeners  map[int]func(Event)
	nextID     int

	background sync.WaitGroup
}

// New creates an inactive guard.
func New(opts Options) *Guard {
	p := opts.Profile
	if p == nil {
		p = model.DefaultProfile()
	}
	p = p.Clone()
	p.Normalize()

	g := &Guard{
		profile:     p,
		sensorState: sensor.StatusWaiting,
		detector: motion.NewDetector(motion.Config{
			Threshold:     p.Threshold,
			JerkThreshold: opts.Detection.JerkThreshold,
			HistoryLength: opts.Detection.HistoryLength,
			WarmUp:        opts.Detection.WarmUp,
		}),
		countdown: timer.NewCountdown(),
		alarm:     opts.Alarm,
		sender:    opts.Sender,
		locator:   opts.Locator,
		notifier:  opts.Notifier,
		relay:     opts.Relay,
		incidents: opts.Incidents,
		now:       opts.Now,
		listeners: make(map[int]func(Event)),
	}
	if opts.TickInterval > 0 {
		g.countdown.Interval = opts.TickInterval
	}
	if g.alarm == nil {
		g.alarm = alarm.Silent{}
	}
	if g.notifier == nil {
		g.notifier = notify.NotifierFunc(func(title, body string) {
			logging.Info(title, "body", body)
		})
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Subscribe registers fn for every event and returns a function that
// removes it. fn runs on the goroutine that caused the event and must not
// block.
func (g *Guard) Subscribe(fn func(Event)) func() {
	g.listenerMu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.listenerMu.Unlock()

	return func() {
		g.listenerMu.Lock()
		delete(g.listeners, id)
		g.listenerMu.Unlock()
	}
}

func (g *Guard) publish(e Event) {
	if e.At.IsZero() {
		e.At = g.now()
	}
	g.listenerMu.RLock()
	fns := make([]func(Event), 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.listenerMu.RUnlock()

	for _, fn := range fns {
		ev := e
		if e.Reading != nil {
			r := *e.Reading
			ev.Reading = &r
		}
		ev.Incident = copyIncident(e.Incident)
		fn(ev)
	}
}

// Activate turns protection on. The warm-up period starts now.
func (g *Guard) Activate() {
	g.mu.Lock()
	if g.active {
		g.mu.Unlock()
		return
	}
	g.active = true
	g.activatedAt = g.now()
	g.mu.Unlock()

	g.detector.Reset()
	logging.Info("protection activated", logging.KeyThreshold, g.detector.Threshold())
	g.notifier.Notify("Protection Activated", "BikeGuard is now monitoring for accidents")
	g.relayAsync(model.NewNotification(model.NotifyStatus, "Protection Activated", "BikeGuard is now monitoring for accidents"))
	g.publishStatus()
}

// Deactivate turns protection off and abandons a running countdown.
func (g *Guard) Deactivate() {
	g.mu.Lock()
	if !g.active {
		g.mu.Unlock()
		return
	}
	g.active = false
	detecting := g.detecting && !g.sending
	g.mu.Unlock()

	if detecting {
		_ = g.cancel(false)
	}
	logging.Info("protection deactivated")
	g.notifier.Notify("Protection Deactivated", "BikeGuard is not monitoring")
	g.relayAsync(model.NewNotification(model.NotifyStatus, "Protection Deactivated", "BikeGuard is not monitoring"))
	g.publishStatus()
}

// Toggle flips protection and returns the new state.
func (g *Guard) Toggle() bool {
	if g.Active() {
		g.Deactivate()
		return false
	}
	g.Activate()
	return true
}

// Active reports whether protection is on.
func (g *Guard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Detecting reports whether a countdown is in progress.
func (g *Guard) Detecting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.detecting
}

// ApplyProfile replaces the rider's contacts and settings. The new threshold
// applies from the next sample; a running countdown keeps its length.
func (g *Guard) ApplyProfile(p *model.Profile) {
	if p == nil {
		return
	}
	p = p.Clone()
	p.Normalize()
	if err := g.detector.SetThreshold(p.Threshold); err != nil {
		logging.Warn("ignoring invalid threshold", logging.KeyThreshold, p.Threshold, logging.KeyError, err)
		p.Threshold = g.detector.Threshold()
	}

	g.mu.Lock()
	g.profile = p
	g.mu.Unlock()
}

// Profile returns a copy of the profile in use.
func (g *Guard) Profile() *model.Profile {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.profile.Clone()
}

// HandleSample evaluates one accelerometer sample. Null readings are ignored.
func (g *Guard) HandleSample(s sensor.Sample) {
	if s.Accel == nil {
		return
	}
	now := g.now()
	at := s.At
	if at.IsZero() {
		at = now
	}
	r := g.detector.Observe(*s.Accel, at)

	g.mu.Lock()
	g.lastReading = &r
	g.sensorState = sensor.StatusActive
	trigger := g.active && !g.detecting && g.detector.Triggers(r, now.Sub(g.activatedAt))
	g.mu.Unlock()

	g.publish(Event{Type: EventReading, Reading: &r, At: at})

	if trigger {
		if err := g.detectImpact(r.GForce, r.Jerk, model.IncidentImpact); err != nil {
			logging.DebugLog("impact ignored", logging.KeyError, err)
		}
	}
}

// TestAlert simulates an impact just above the threshold.
func (g *Guard) TestAlert() error {
	if !g.Active() {
		g.notifier.Notify("Please activate system first", `Click "Start Protection" to begin monitoring`)
		return errors.ErrNotActive
	}
	if err := g.detectImpact(g.detector.Threshold()+1, 0, model.IncidentTest); err != nil {
		return err
	}
	g.notifier.Notify("Test Alert Started", "Countdown initiated - cancel to stop test")
	return nil
}

func (g *Guard) detectImpact(gForce, jerk float64, kind model.IncidentKind) error {
	g.mu.Lock()
	if g.detecting {
		g.mu.Unlock()
		return errors.ErrAlertInProgress
	}
	g.detecting = true
	inc := model.NewIncident(kind, gForce, jerk, g.now())
	g.incident = inc
	created := copyIncident(inc)
	settings := g.profile.Settings
	seconds := g.profile.CountdownTime
	g.mu.Unlock()

	logging.Warn("impact detected",
		logging.KeyGForce, gForce,
		logging.KeyJerk, jerk,
		logging.KeyIncidentID, created.ID,
		"kind", kind)

	g.storeIncident(created, true)
	g.alarm.Start(settings)
	g.publish(Event{Type: EventAlert, Remaining: seconds, Incident: created})
	g.relayAsync(model.NewNotification(model.NotifyImpact, "Impact detected",
		"Emergency alert will be sent unless the rider cancels.").
		WithField("G-Force", formatG(gForce)).
		WithField("Countdown", formatSeconds(seconds)))

	err := g.countdown.Start(context.Background(), seconds,
		func(left int) { g.publish(Event{Type: EventTick, Remaining: left}) },
		func() {
			if _, err := g.SendEmergency(context.Background()); err != nil {
				logging.DebugLog("countdown expired without sending", logging.KeyError, err)
			}
		})
	if err != nil {
		g.mu.Lock()
		g.detecting = false
		g.incident = nil
		g.mu.Unlock()
		g.alarm.Stop()
		return err
	}
	return nil
}

// Cancel stops a pending alert.
func (g *Guard) Cancel() error {
	return g.cancel(true)
}

func (g *Guard) cancel(announce bool) error {
	g.mu.Lock()
	if !g.detecting || g.sending {
		g.mu.Unlock()
		return errors.ErrNoAlert
	}
	g.detecting = false
	inc := g.incident
	g.incident = nil
	g.mu.Unlock()

	g.countdown.Cancel()
	g.alarm.Stop()

	if inc != nil {
		inc.Resolve(model.OutcomeCancelled, g.now())
		g.storeIncident(inc, false)
	}
	logging.Info("alert cancelled", logging.KeyIncidentID, incidentID(inc))
	if announce {
		g.notifier.Notify("Alert cancelled", "System is back to monitoring")
	}
	g.relayAsync(model.NewNotification(model.NotifyCancelled, "Alert cancelled", "System is back to monitoring"))
	g.publish(Event{Type: EventCancelled, Incident: inc})
	return nil
}

// SendNow skips the rest of the countdown.
func (g *Guard) SendNow(ctx context.Context) (*alert.Report, error) {
	return g.SendEmergency(ctx)
}

// SendEmergency stops the countdown and alarm, finds a position if none is
// current, and messages every contact. It runs on the caller's goroutine.
func (g *Guard) SendEmergency(ctx context.Context) (*alert.Report, error) {
	g.mu.Lock()
	if !g.detecting {
		g.mu.Unlock()
		return nil, errors.ErrNoAlert
	}
	if g.sending {
		g.mu.Unlock()
		return nil, errors.ErrAlertInProgress
	}
	g.sending = true
	contacts := append([]model.Contact(nil), g.profile.Contacts...)
	inc := g.incident
	g.mu.Unlock()

	g.countdown.Cancel()
	g.alarm.Stop()

	fix := g.position(ctx)
	report := &alert.Report{Location: fix, SentAt: g.now()}
	if g.sender != nil {
		report = g.sender.SendAll(ctx, contacts, fix)
	} else {
		logging.Warn("no sender configured; emergency not delivered")
	}

	g.mu.Lock()
	g.detecting = false
	g.sending = false
	g.incident = nil
	g.mu.Unlock()

	if inc != nil {
		inc.Resolve(model.OutcomeSent, g.now())
		inc.Location = fix
		inc.ContactsNotified = report.Delivered()
		g.storeIncident(inc, false)
	}

	logging.Warn("emergency alert sent",
		logging.KeyIncidentID, incidentID(inc),
		logging.KeyCount, report.Delivered())
	g.notifier.Notify("Emergency alert sent!", "Your contacts have been notified")
	g.publish(Event{Type: EventSent, Incident: inc, Delivered: report.Delivered()})
	return report, nil
}

func (g *Guard) position(ctx context.Context) *model.Fix {
	if g.locator == nil {
		return nil
	}
	if fix := g.locator.Current(); fix != nil {
		return fix
	}
	return g.locator.Acquire(ctx)
}

// SetSensorStatus records the sensor state shown in Status.
func (g *Guard) SetSensorStatus(status string) {
	g.mu.Lock()
	g.sensorState = status
	g.mu.Unlock()
}

// Status returns a snapshot.
func (g *Guard) Status() Status {
	remaining, _ := g.countdown.Remaining()

	g.mu.Lock()
	s := Status{
		Active:        g.active,
		Detecting:     g.detecting,
		ActivatedAt:   g.activatedAt,
		Threshold:     g.detector.Threshold(),
		CountdownTime: g.profile.CountdownTime,
		SensorStatus:  g.sensorState,
		GPSStatus:     location.StatusWaiting,
		Incident:      copyIncident(g.incident),
		Contacts:      append([]model.Contact{}, g.profile.Contacts...),
		Settings:      g.profile.Settings,
	}
	if g.lastReading != nil {
		r := *g.lastReading
		s.LastReading = &r
	}
	g.mu.Unlock()

	switch {
	case s.Detecting:
		s.State = StateTriggered
		s.Remaining = remaining
	case s.Active:
		s.State = StateActive
	default:
		s.State = StateInactive
	}
	s.Armed = s.Active && g.detector.Armed(g.now().Sub(s.ActivatedAt))
	if g.locator != nil {
		s.GPSStatus = g.locator.Status()
		s.Location = g.locator.Current()
	}
	return s
}

func (g *Guard) publishStatus() {
	s := g.Status()
	g.publish(Event{Type: EventStatus, Status: &s})
}

// Run feeds samples from src into the guard until ctx is done or the source
// ends. A source that cannot be opened leaves the guard running without
// sensors and returns the error.
func (g *Guard) Run(ctx context.Context, src sensor.Source) error {
	if src == nil {
		g.SetSensorStatus(sensor.StatusNotAvailable)
		<-ctx.Done()
		return nil
	}

	samples, err := src.Samples(ctx)
	if err != nil {
		g.SetSensorStatus(sensor.StatusNotAvailable)
		logging.Warn("motion sensor unavailable", logging.KeyError, err)
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-samples:
			if !ok {
				return nil
			}
			g.HandleSample(s)
		}
	}
}

// Close abandons any pending alert silently and waits for background
// webhook relays.
func (g *Guard) Close() {
	g.countdown.Cancel()
	g.countdown.Wait()
	g.alarm.Stop()
	g.background.Wait()
}

func (g *Guard) relayAsync(n *model.Notification) {
	if g.relay == nil {
		return
	}
	g.background.Add(1)
	go func() {
		defer g.background.Done()
		g.relay.SendNotification(context.Background(), n)
	}()
}

func (g *Guard) storeIncident(inc *model.Incident, create bool) {
	if g.incidents == nil {
		return
	}
	var err error
	if create {
		err = g.incidents.Create(inc)
	} else {
		err = g.incidents.Update(inc)
	}
	if err != nil {
		logging.Warn("could not record incident", logging.KeyIncidentID, inc.ID, logging.KeyError, err)
	}
}

func incidentID(inc *model.Incident) string {
	if inc == nil {
		return ""
	}
	return inc.ID
}
