package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/manav03panchal/bikeguard/internal/alert"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/model"
)

// IncidentLister lists incidents detected since a time.
type IncidentLister interface {
	ListSince(since time.Time) ([]*model.Incident, error)
}

// SummaryGenerator sends a digest of the last day's incidents to webhooks.
type SummaryGenerator struct {
	incidents IncidentLister
	relay     alert.Relay
	window    time.Duration
	now       func() time.Time
}

// NewSummaryGenerator creates a generator covering the previous 24 hours.
func NewSummaryGenerator(incidents IncidentLister, relay alert.Relay) *SummaryGenerator {
	return &SummaryGenerator{
		incidents: incidents,
		relay:     relay,
		window:    24 * time.Hour,
		now:       time.Now,
	}
}

// Summary tallies incidents by outcome.
type Summary struct {
	Since     time.Time
	Total     int
	Tests     int
	Cancelled int
	Sent      int
	Pending   int
	PeakG     float64
}

// Build collects the summary for the current window.
func (g *SummaryGenerator) Build() (*Summary, error) {
	since := g.now().Add(-g.window)
	list, err := g.incidents.ListSince(since)
	if err != nil {
		return nil, err
	}

	s := &Summary{Since: since, Total: len(list)}
	for _, inc := range list {
		if inc.Kind == model.IncidentTest {
			s.Tests++
		}
		switch inc.Outcome {
		case model.OutcomeCancelled:
			s.Cancelled++
		case model.OutcomeSent:
			s.Sent++
		default:
			s.Pending++
		}
		if inc.Kind == model.IncidentImpact && inc.GForce > s.PeakG {
			s.PeakG = inc.GForce
		}
	}
	return s, nil
}

// Notification renders s.
func (s *Summary) Notification() *model.Notification {
	msg := "No impacts detected in the last 24 hours."
	if s.Total > 0 {
		msg = fmt.Sprintf("%d incident(s) in the last 24 hours.", s.Total)
	}
	n := model.NewNotification(model.NotifyStatus, "BikeGuard daily summary", msg).
		WithField("Alerts sent", strconv.Itoa(s.Sent)).
		WithField("Cancelled", strconv.Itoa(s.Cancelled)).
		WithField("Tests", strconv.Itoa(s.Tests))
	if s.PeakG > 0 {
		n.WithField("Peak impact", strconv.FormatFloat(s.PeakG, 'f', 2, 64)+" g")
	}
	return n
}

// Send builds and relays the summary. Errors are logged.
func (g *SummaryGenerator) Send() {
	s, err := g.Build()
	if err != nil {
		logging.Warn("could not build incident summary", logging.KeyError, err)
		return
	}
	if g.relay == nil {
		return
	}
	g.relay.SendNotification(context.Background(), s.Notification())
}
