package output

import (
	"time"

	"github.com/manav03panchal/bikeguard/internal/alert"
	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/model"
)

// JSONFormatter provides JSON-specific formatting.
type JSONFormatter struct {
	*Formatter
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(f *Formatter) *JSONFormatter {
	return &JSONFormatter{Formatter: f}
}

// ErrorResponse represents an error in JSON output.
type ErrorResponse struct {
	Status     string `json:"status"`
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ContactsResponse lists contacts.
type ContactsResponse struct {
	Contacts []model.Contact `json:"contacts"`
	Total    int             `json:"total"`
}

// IncidentOutput represents an incident in JSON output.
type IncidentOutput struct {
	ID               string     `json:"id"`
	Kind             string     `json:"kind"`
	GForce           float64    `json:"g_force"`
	Jerk             float64    `json:"jerk"`
	DetectedAt       string     `json:"detected_at"`
	ResolvedAt       string     `json:"resolved_at,omitempty"`
	Outcome          string     `json:"outcome"`
	DurationSeconds  int64      `json:"duration_seconds"`
	Location         *model.Fix `json:"location,omitempty"`
	ContactsNotified int        `json:"contacts_notified"`
}

// NewIncidentOutput creates an IncidentOutput from an Incident.
func NewIncidentOutput(inc *model.Incident) *IncidentOutput {
	out := &IncidentOutput{
		ID:               inc.ID,
		Kind:             string(inc.Kind),
		GForce:           inc.GForce,
		Jerk:             inc.Jerk,
		DetectedAt:       inc.DetectedAt.Format(time.RFC3339),
		Outcome:          string(inc.Outcome),
		DurationSeconds:  int64(inc.Duration().Seconds()),
		Location:         inc.Location,
		ContactsNotified: inc.ContactsNotified,
	}
	if !inc.ResolvedAt.IsZero() {
		out.ResolvedAt = inc.ResolvedAt.Format(time.RFC3339)
	}
	return out
}

// IncidentsResponse lists incidents.
type IncidentsResponse struct {
	Incidents []*IncidentOutput `json:"incidents"`
	Total     int               `json:"total"`
}

// WebhookOutput represents a webhook in JSON output. The URL is masked.
type WebhookOutput struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	Enabled   bool   `json:"enabled"`
	LastUsed  string `json:"last_used,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// NewWebhookOutput creates a WebhookOutput from a Webhook.
func NewWebhookOutput(w *model.Webhook) *WebhookOutput {
	out := &WebhookOutput{
		Name:      w.Name,
		Type:      w.Type,
		URL:       w.MaskedURL(),
		Enabled:   w.Enabled,
		LastError: w.LastError,
	}
	if !w.LastUsed.IsZero() {
		out.LastUsed = w.LastUsed.Format(time.RFC3339)
	}
	return out
}

// ReportOutput summarises an emergency send.
type ReportOutput struct {
	Status    string       `json:"status"`
	Delivered int          `json:"delivered"`
	Contacts  []ResultLine `json:"contacts"`
	Webhooks  []ResultLine `json:"webhooks,omitempty"`
	Location  *model.Fix   `json:"location,omitempty"`
	SentAt    string       `json:"sent_at"`
}

// ResultLine is one delivery outcome.
type ResultLine struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewReportOutput creates a ReportOutput from a Report.
func NewReportOutput(r *alert.Report) *ReportOutput {
	out := &ReportOutput{
		Status:    "sent",
		Delivered: r.Delivered(),
		Contacts:  []ResultLine{},
		Location:  r.Location,
		SentAt:    r.SentAt.Format(time.RFC3339),
	}
	for _, res := range r.Results {
		line := ResultLine{Name: res.Contact.Name, OK: res.Error == nil}
		if res.Error != nil {
			line.Error = res.Error.Error()
		}
		out.Contacts = append(out.Contacts, line)
	}
	for _, w := range r.Webhooks {
		line := ResultLine{Name: w.WebhookName, OK: w.Success}
		if w.Error != nil {
			line.Error = w.Error.Error()
		}
		out.Webhooks = append(out.Webhooks, line)
	}
	return out
}

// PrintStatus outputs a guard snapshot.
func (j *JSONFormatter) PrintStatus(st guard.Status) error {
	if st.Contacts == nil {
		st.Contacts = []model.Contact{}
	}
	return j.JSON(st)
}

// PrintProfile outputs the stored profile in its persisted shape.
func (j *JSONFormatter) PrintProfile(p *model.Profile) error {
	return j.JSON(p)
}

// PrintContacts outputs the contact list.
func (j *JSONFormatter) PrintContacts(contacts []model.Contact) error {
	if contacts == nil {
		contacts = []model.Contact{}
	}
	return j.JSON(ContactsResponse{Contacts: contacts, Total: len(contacts)})
}

// PrintIncidents outputs incident history.
func (j *JSONFormatter) PrintIncidents(incidents []*model.Incident) error {
	resp := IncidentsResponse{Incidents: make([]*IncidentOutput, 0, len(incidents)), Total: len(incidents)}
	for _, inc := range incidents {
		resp.Incidents = append(resp.Incidents, NewIncidentOutput(inc))
	}
	return j.JSON(resp)
}

// PrintWebhooks outputs configured webhooks.
func (j *JSONFormatter) PrintWebhooks(webhooks []*model.Webhook) error {
	out := make([]*WebhookOutput, 0, len(webhooks))
	for _, w := range webhooks {
		out = append(out, NewWebhookOutput(w))
	}
	return j.JSON(map[string]any{"webhooks": out, "total": len(out)})
}

// PrintReport outputs an emergency send summary.
func (j *JSONFormatter) PrintReport(r *alert.Report) error {
	return j.JSON(NewReportOutput(r))
}

// PrintError outputs an error in JSON format.
func (j *JSONFormatter) PrintError(status, errMsg, message string) error {
	return j.JSON(ErrorResponse{
		Status:  status,
		Error:   errMsg,
		Message: message,
	})
}
