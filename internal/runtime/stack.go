package runtime

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/manav03panchal/bikeguard/internal/alarm"
	"github.com/manav03panchal/bikeguard/internal/alert"
	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/location"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/notify"
	"github.com/manav03panchal/bikeguard/internal/sensor"
)

// StackOptions overrides parts of the guard wiring. Zero values use the
// configured defaults.
type StackOptions struct {
	Notifier notify.Notifier
	Alarm    alarm.Alarm
	Opener   alert.Opener
	// Bell receives the vibration pattern; os.Stderr when nil.
	Bell io.Writer
	// Extra is merged with the configured sensor source, e.g. samples
	// pushed through the HTTP API.
	Extra sensor.Source
	// OnDispatch sees every batch of webhook results.
	OnDispatch func([]notify.DispatchResult)
}

// Stack is a guard together with the services that feed it.
type Stack struct {
	Guard      *guard.Guard
	Tracker    *location.Tracker
	Dispatcher *notify.Dispatcher
	Queue      *notify.RetryQueue
	// Relay is the dispatcher as seen by the guard, including OnDispatch.
	Relay alert.Relay

	sensor   sensor.Source
	location location.Source
}

// BuildStack wires a guard from the stored profile and the loaded config.
func (c *Context) BuildStack(opts StackOptions) (*Stack, error) {
	cfg := c.Config

	profile, err := c.Profiles.Get()
	if err != nil {
		return nil, err
	}

	sensorSrc, err := sensor.FromConfig(cfg)
	if err != nil {
		return nil, errors.NewUserErrorWithField("sensor.source", cfg.Sensor.Source, err.Error(),
			errors.GetSuggestion(errors.ErrSensorUnavailable)).WithCause(errors.ErrSensorUnavailable)
	}
	locSrc, err := location.FromConfig(cfg)
	if err != nil {
		return nil, errors.NewUserErrorWithField("location.source", cfg.Location.Source, err.Error(),
			errors.GetSuggestion(errors.ErrLocationUnavailable)).WithCause(errors.ErrLocationUnavailable)
	}

	client := notify.NewHTTPClientWith(cfg.HTTP.Timeout, cfg.HTTP.RetryDelays)
	queue := notify.NewRetryQueue(client)
	dispatcher := notify.NewDispatcher(c.Webhooks, c.NotifyConfig).WithClient(client).WithQueue(queue)

	var relay alert.Relay = dispatcher
	if opts.OnDispatch != nil {
		relay = observedRelay{next: dispatcher, fn: opts.OnDispatch}
	}

	opener := opts.Opener
	if opener == nil {
		opener = c.opener()
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewDesktop(cfg.Alert.Desktop)
	}

	al := opts.Alarm
	if al == nil {
		bell := opts.Bell
		if bell == nil {
			bell = os.Stderr
		}
		al = alarm.NewMulti(alarm.NewSoundAlarm(), alarm.NewVibrator(bell))
	}

	tracker := location.NewTrackerFromConfig(cfg)
	g := guard.New(guard.Options{
		Profile:   profile,
		Detection: cfg.Detection,
		Alarm:     al,
		Sender:    alert.NewSender(opener, relay, cfg.Alert),
		Locator:   tracker,
		Notifier:  notifier,
		Relay:     relay,
		Incidents: c.Incidents,
	})

	return &Stack{
		Guard:      g,
		Tracker:    tracker,
		Dispatcher: dispatcher,
		Queue:      queue,
		Relay:      relay,
		sensor:     sensor.Merge(sensorSrc, opts.Extra),
		location:   locSrc,
	}, nil
}

type observedRelay struct {
	next alert.Relay
	fn   func([]notify.DispatchResult)
}

func (r observedRelay) SendNotification(ctx context.Context, n *model.Notification) []notify.DispatchResult {
	results := r.next.SendNotification(ctx, n)
	r.fn(results)
	return results
}

// opener returns the platform URL opener, or one that always fails when
// none is installed so contacts are still reported as undelivered.
func (c *Context) opener() alert.Opener {
	o, err := alert.NewExecOpener(c.Config.Alert.Opener)
	if err != nil {
		logging.Warn("no URL opener available", logging.KeyError, err)
		return alert.OpenerFunc(func(context.Context, string) error {
			return errors.ErrOpenerUnavailable
		})
	}
	return o
}

// Run starts the retry queue and location tracking, then feeds the guard
// until ctx is done. The guard is closed before Run returns.
func (s *Stack) Run(ctx context.Context) error {
	s.Queue.Start(ctx)
	defer s.Queue.Stop()

	var wg sync.WaitGroup
	if s.location != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Tracker.Run(ctx, s.location); err != nil && ctx.Err() == nil {
				logging.Warn("location source stopped", logging.KeyError, err)
			}
		}()
	}

	err := s.Guard.Run(ctx, s.sensor)
	if err != nil {
		// Keep serving without sensors; API samples and test alerts still work.
		<-ctx.Done()
	}
	wg.Wait()
	s.Guard.Close()
	return err
}
