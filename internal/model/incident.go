package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IncidentKind tells a real detection apart from a manual test.
type IncidentKind string

const (
	IncidentImpact IncidentKind = "impact"
	IncidentTest   IncidentKind = "test"
)

// Outcome is how the countdown ended.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeSent      Outcome = "sent"
)

// Incident records one detected impact and how it was resolved.
type Incident struct {
	Key              string       `json:"key"`
	ID               string       `json:"id"`
	Kind             IncidentKind `json:"kind"`
	GForce           float64      `json:"g_force"`
	Jerk             float64      `json:"jerk"`
	DetectedAt       time.Time    `json:"detected_at"`
	ResolvedAt       time.Time    `json:"resolved_at,omitzero"`
	Outcome          Outcome      `json:"outcome"`
	Location         *Fix         `json:"location,omitempty"`
	ContactsNotified int          `json:"contacts_notified"`
}

func (i *Incident) SetKey(key string) {
	i.Key = key
}

func (i *Incident) GetKey() string {
	return i.Key
}

// GenerateIncidentKey returns "incident:<id>".
func GenerateIncidentKey(id string) string {
	return fmt.Sprintf("%s:%s", PrefixIncident, id)
}

// NewIncident creates a pending incident with a time-ordered UUIDv7 id.
func NewIncident(kind IncidentKind, gForce, jerk float64, at time.Time) *Incident {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Incident{
		Key:        GenerateIncidentKey(id.String()),
		ID:         id.String(),
		Kind:       kind,
		GForce:     gForce,
		Jerk:       jerk,
		DetectedAt: at,
		Outcome:    OutcomePending,
	}
}

// Resolve marks the incident finished.
func (i *Incident) Resolve(outcome Outcome, at time.Time) {
	i.Outcome = outcome
	i.ResolvedAt = at
}

// IsPending reports whether the countdown is still running.
func (i *Incident) IsPending() bool {
	return i.Outcome == OutcomePending
}

// Duration is the time from detection to resolution, or zero while pending.
func (i *Incident) Duration() time.Duration {
	if i.ResolvedAt.IsZero() {
		return 0
	}
	return i.ResolvedAt.Sub(i.DetectedAt)
}
