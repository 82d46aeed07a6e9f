package alert

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/notify"
)

// Relay forwards notifications to webhooks.
type Relay interface {
	SendNotification(ctx context.Context, n *model.Notification) []notify.DispatchResult
}

// Result is the delivery outcome for one contact.
type Result struct {
	Contact  model.Contact `json:"contact"`
	WhatsApp string        `json:"whatsapp"`
	SMS      string        `json:"sms,omitempty"`
	Error    error         `json:"-"`
}

// Report summarises one emergency send.
type Report struct {
	Results  []Result               `json:"results"`
	Webhooks []notify.DispatchResult `json:"webhooks,omitempty"`
	Location *model.Fix             `json:"location,omitempty"`
	SentAt   time.Time              `json:"sent_at"`
}

// Delivered counts contacts whose WhatsApp link opened.
func (r *Report) Delivered() int {
	n := 0
	for _, res := range r.Results {
		if res.Error == nil {
			n++
		}
	}
	return n
}

// Sender delivers the emergency message to every contact.
type Sender struct {
	composer    *Composer
	opener      Opener
	relay       Relay
	smsFallback bool
	smsDelay    time.Duration
	now         func() time.Time
}

// NewSender creates a sender. relay may be nil when no webhooks are wired.
func NewSender(opener Opener, relay Relay, cfg config.AlertConfig) *Sender {
	return &Sender{
		composer:    DefaultComposer(),
		opener:      opener,
		relay:       relay,
		smsFallback: cfg.SMSFallback,
		smsDelay:    cfg.SMSFallbackDelay,
		now:         time.Now,
	}
}

// SendAll opens a WhatsApp link for each contact, then SMS links after the
// fallback delay, then relays the alert to webhooks. A failing contact does
// not stop the rest. With no contacts only the webhook relay runs.
func (s *Sender) SendAll(ctx context.Context, contacts []model.Contact, fix *model.Fix) *Report {
	now := s.now()
	report := &Report{Location: fix, SentAt: now}

	msg := s.composer.Message(fix, now)
	for _, c := range contacts {
		res := Result{Contact: c, WhatsApp: WhatsAppLink(c.Phone, msg)}
		if s.smsFallback {
			res.SMS = SMSLink(c.Phone, msg)
		}
		if err := s.opener.Open(ctx, res.WhatsApp); err != nil {
			res.Error = err
			logging.Warn("could not open WhatsApp link",
				logging.KeyContact, c.Name,
				logging.KeyPhone, c.Phone,
				logging.KeyError, err)
		} else {
			logging.Info("emergency alert opened",
				logging.KeyContact, c.Name,
				logging.KeyPhone, c.Phone)
		}
		report.Results = append(report.Results, res)
	}

	if s.smsFallback && len(contacts) > 0 {
		s.openSMS(ctx, report)
	}

	if s.relay != nil {
		report.Webhooks = s.relay.SendNotification(ctx, s.notification(fix, now, len(contacts)))
	}
	return report
}

func (s *Sender) openSMS(ctx context.Context, report *Report) {
	if s.smsDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.smsDelay):
		}
	}
	for _, res := range report.Results {
		if err := s.opener.Open(ctx, res.SMS); err != nil {
			logging.DebugLog("could not open SMS link",
				logging.KeyContact, res.Contact.Name,
				logging.KeyError, err)
		}
	}
}

func (s *Sender) notification(fix *model.Fix, now time.Time, contacts int) *model.Notification {
	n := model.NewNotification(model.NotifyEmergency, "Bike Accident Detected!", s.composer.Message(fix, now)).
		WithField("Contacts", strconv.Itoa(contacts))
	if fix != nil {
		n.WithField("Location", fmt.Sprintf("%s, %s", formatCoord(fix.Latitude), formatCoord(fix.Longitude))).
			WithURL(MapsURL(fix))
	}
	return n
}
