package guard

import (
	"time"

	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/motion"
)

// EventType names what changed.
type EventType string

const (
	EventReading   EventType = "reading"
	EventStatus    EventType = "status"
	EventAlert     EventType = "alert"
	EventTick      EventType = "countdown"
	EventCancelled EventType = "cancelled"
	EventSent      EventType = "sent"
)

// Event is delivered to listeners. Listeners receive their own copy.
type Event struct {
	Type      EventType       `json:"type"`
	At        time.Time       `json:"at"`
	Reading   *motion.Reading `json:"reading,omitempty"`
	Remaining int             `json:"remaining,omitempty"`
	Incident  *model.Incident `json:"incident,omitempty"`
	Status    *Status         `json:"status,omitempty"`
	Delivered int             `json:"delivered,omitempty"`
}

// Headline values for Status.State.
const (
	StateActive    = "ACTIVE"
	StateInactive  = "INACTIVE"
	StateTriggered = "ALERT TRIGGERED!"
)

// Status is a point-in-time snapshot of the guard.
type Status struct {
	State         string          `json:"state"`
	Active        bool            `json:"active"`
	Detecting     bool            `json:"detecting"`
	Armed         bool            `json:"armed"`
	ActivatedAt   time.Time       `json:"activated_at,omitzero"`
	Threshold     float64         `json:"threshold"`
	CountdownTime int             `json:"countdown_time"`
	Remaining     int             `json:"remaining,omitempty"`
	LastReading   *motion.Reading `json:"last_reading,omitempty"`
	SensorStatus  string          `json:"sensor_status"`
	GPSStatus     string          `json:"gps_status"`
	Location      *model.Fix      `json:"location,omitempty"`
	Incident      *model.Incident `json:"incident,omitempty"`
	Contacts      []model.Contact `json:"contacts"`
	Settings      model.Settings  `json:"settings"`
}

func copyIncident(inc *model.Incident) *model.Incident {
	if inc == nil {
		return nil
	}
	c := *inc
	if inc.Location != nil {
		loc := *inc.Location
		c.Location = &loc
	}
	return &c
}
