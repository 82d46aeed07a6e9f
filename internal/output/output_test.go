package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/bikeguard/internal/alert"
	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/motion"
	"github.com/manav03panchal/bikeguard/internal/notify"
)

func plainCLI() (*CLIFormatter, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewCLIFormatter(&Formatter{Writer: &buf, Format: FormatPlain, ColorMode: ColorNever}), &buf
}

func jsonOut() (*JSONFormatter, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewJSONFormatter(&Formatter{Writer: &buf, Format: FormatJSON, ColorMode: ColorNever}), &buf
}

// =============================================================================
// Formatter Tests
// =============================================================================

func TestNewFormatter(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, FormatCLI, f.Format)
	assert.Equal(t, ColorAuto, f.ColorMode)
}

func TestFormatterIsColorEnabled(t *testing.T) {
	tests := []struct {
		name string
		mode ColorMode
		want bool
	}{
		{"always", ColorAlways, true},
		{"never", ColorNever, false},
		{"auto_non_terminal", ColorAuto, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Formatter{Writer: &bytes.Buffer{}, ColorMode: tt.mode}
			assert.Equal(t, tt.want, f.IsColorEnabled())
		})
	}
}

func TestFormatterPrinting(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{Writer: &buf}

	f.Print("a")
	f.Println("b")
	f.Printf("%d g", 3)
	assert.Equal(t, "ab\n3 g", buf.String())
}

func TestFormatterJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{Writer: &buf}

	require.NoError(t, f.JSON(map[string]int{"count": 42}))
	assert.Contains(t, buf.String(), `"count": 42`)
}

// =============================================================================
// Value Formatting Tests
// =============================================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{0, "0s"},
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m 30s"},
		{5 * time.Minute, "5m"},
		{90 * time.Minute, "1h 30m"},
		{2 * time.Hour, "2h"},
		{1500 * time.Millisecond, "2s"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.duration))
		})
	}
}

func TestFormatG(t *testing.T) {
	assert.Equal(t, "3.50 g", FormatG(3.5))
	assert.Equal(t, "0.00 g", FormatG(0))
	assert.Equal(t, "12.35 g", FormatG(12.345))
}

func TestFormatTime(t *testing.T) {
	tm := time.Date(2026, 3, 7, 14, 30, 45, 0, time.Local)
	assert.Equal(t, "2026-03-07 14:30:45", FormatTime(tm))
}

func TestOnOff(t *testing.T) {
	assert.Equal(t, "on", OnOff(true))
	assert.Equal(t, "off", OnOff(false))
}

func TestSeverityLabel(t *testing.T) {
	assert.Equal(t, "IMPACT", SeverityLabel(motion.SeverityImpact))
	assert.Equal(t, "elevated", SeverityLabel(motion.SeverityElevated))
	assert.Equal(t, "normal", SeverityLabel(motion.SeverityNormal))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", ProgressBar(50, 10))
	assert.Equal(t, "██████████", ProgressBar(150, 10))
	assert.Equal(t, "░░░░░", ProgressBar(-5, 5))
}

// =============================================================================
// CLIFormatter Tests
// =============================================================================

func TestCLIFormatterMessages(t *testing.T) {
	c, buf := plainCLI()

	c.Title("Settings")
	c.Success("saved")
	c.Warning("careful")
	c.Error("failed")
	c.Muted("quiet")

	assert.Equal(t, "Settings\n✓ saved\n⚠ careful\n✗ failed\nquiet\n", buf.String())
}

func TestCLIFormatterPrintStatus(t *testing.T) {
	t.Run("inactive_no_contacts", func(t *testing.T) {
		c, buf := plainCLI()
		c.PrintStatus(guard.Status{
			State:         guard.StateInactive,
			Threshold:     3.5,
			CountdownTime: 10,
			SensorStatus:  "Sensors: Waiting",
			GPSStatus:     "GPS: Waiting",
		})
		out := buf.String()
		assert.Contains(t, out, "Protection: INACTIVE")
		assert.Contains(t, out, "Threshold: 3.50 g  Countdown: 10s")
		assert.Contains(t, out, "Sensors: Waiting")
		assert.Contains(t, out, "No emergency contacts")
	})

	t.Run("triggered", func(t *testing.T) {
		c, buf := plainCLI()
		c.PrintStatus(guard.Status{
			State:       guard.StateTriggered,
			Active:      true,
			Detecting:   true,
			Remaining:   7,
			ActivatedAt: time.Now(),
			LastReading: &motion.Reading{GForce: 5.2, Progress: 100, Severity: motion.SeverityImpact},
			Contacts:    []model.Contact{{ID: 1, Name: "Alex", Phone: "555"}},
		})
		out := buf.String()
		assert.Contains(t, out, "Protection: ALERT TRIGGERED!")
		assert.Contains(t, out, "Sending emergency alert in 7s")
		assert.Contains(t, out, "G-Force: 5.20 g (IMPACT)")
		assert.Contains(t, out, "Contacts: 1")
		assert.NotContains(t, out, "No emergency contacts")
	})
}

func TestCLIFormatterPrintProfile(t *testing.T) {
	c, buf := plainCLI()
	p := model.DefaultProfile()
	p.Settings.EnableVibration = false

	c.PrintProfile(p)
	out := buf.String()
	assert.Contains(t, out, "Impact threshold: 3.50 g")
	assert.Contains(t, out, "Countdown: 10s")
	assert.Contains(t, out, "Sound: on")
	assert.Contains(t, out, "Vibration: off")
}

func TestCLIFormatterPrintContacts(t *testing.T) {
	c, buf := plainCLI()
	c.PrintContacts(nil)
	assert.Contains(t, buf.String(), "No emergency contacts.")

	c, buf = plainCLI()
	c.PrintContacts([]model.Contact{
		{ID: 1709800000000, Name: "Alex", Phone: "+1 555 0100"},
		{ID: 1709800000001, Name: "Sam", Phone: "+44 20 7946"},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[2], "Alex")
	assert.Contains(t, lines[3], "+44 20 7946")
}

func TestCLIFormatterPrintContactAdded(t *testing.T) {
	c, buf := plainCLI()
	c.PrintContactAdded(model.Contact{ID: 42, Name: "Alex", Phone: "555"})
	assert.Contains(t, buf.String(), "✓ Alex added to emergency contacts")
	assert.Contains(t, buf.String(), "ID: 42")
}

func TestCLIFormatterPrintIncidents(t *testing.T) {
	c, buf := plainCLI()
	c.PrintIncidents(nil)
	assert.Contains(t, buf.String(), "No incidents recorded.")

	inc := model.NewIncident(model.IncidentImpact, 6.4, 2.1, time.Now())
	inc.Resolve(model.OutcomeSent, time.Now())
	inc.Location = &model.Fix{Latitude: 52.52, Longitude: 13.405}
	inc.ContactsNotified = 2

	c, buf = plainCLI()
	c.PrintIncidents([]*model.Incident{inc})
	out := buf.String()
	assert.Contains(t, out, "6.40 g")
	assert.Contains(t, out, "sent")
	assert.Contains(t, out, "52.52000,13.40500")
}

func TestCLIFormatterPrintWebhooks(t *testing.T) {
	c, buf := plainCLI()
	c.PrintWebhooks(nil)
	assert.Contains(t, buf.String(), "No webhooks configured.")

	c, buf = plainCLI()
	c.PrintWebhooks([]*model.Webhook{{
		Name:    "family",
		Type:    "discord",
		URL:     "https://discord.com/api/webhooks/123456/very-secret-token",
		Enabled: true,
	}})
	out := buf.String()
	assert.Contains(t, out, "family")
	assert.Contains(t, out, "never")
	assert.NotContains(t, out, "very-secret-token")
}

func TestCLIFormatterPrintReport(t *testing.T) {
	c, buf := plainCLI()
	c.PrintReport(&alert.Report{
		Results: []alert.Result{
			{Contact: model.Contact{Name: "Alex"}},
			{Contact: model.Contact{Name: "Sam"}, Error: errors.New("no opener")},
		},
		Webhooks: []notify.DispatchResult{
			{WebhookName: "family", Success: true},
			{WebhookName: "ops", Queued: true, Error: errors.New("status 502")},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "✓ Opened WhatsApp for Alex")
	assert.Contains(t, out, "✗ Sam: no opener")
	assert.Contains(t, out, "✓ Relayed to webhook family")
	assert.Contains(t, out, "webhook ops: status 502 (queued for retry)")
	assert.Contains(t, out, "Location unavailable")

	c, buf = plainCLI()
	c.PrintReport(&alert.Report{})
	assert.Contains(t, buf.String(), "No emergency contacts to message.")
}

func TestCLIFormatterPrintTable(t *testing.T) {
	c, buf := plainCLI()
	c.PrintTable([]string{"A", "B"}, nil)
	assert.Empty(t, buf.String())

	c.PrintTable([]string{"NAME", "X"}, []TableRow{{Columns: []string{"long-name", "1"}}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "NAME       X", lines[0])
	assert.Equal(t, "long-name  1", lines[2])
}

// =============================================================================
// JSONFormatter Tests
// =============================================================================

func TestJSONFormatterPrintStatus(t *testing.T) {
	j, buf := jsonOut()
	require.NoError(t, j.PrintStatus(guard.Status{State: guard.StateActive, Active: true}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "ACTIVE", got["state"])
	assert.Equal(t, []any{}, got["contacts"])
}

func TestJSONFormatterPrintProfile(t *testing.T) {
	j, buf := jsonOut()
	require.NoError(t, j.PrintProfile(model.DefaultProfile()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 3.5, got["threshold"])
	assert.Equal(t, 10.0, got["countdownTime"])
	assert.Contains(t, got, "settings")
}

func TestJSONFormatterPrintContacts(t *testing.T) {
	j, buf := jsonOut()
	require.NoError(t, j.PrintContacts(nil))

	var got ContactsResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.NotNil(t, got.Contacts)
	assert.Zero(t, got.Total)
}

func TestNewIncidentOutput(t *testing.T) {
	at := time.Date(2026, 3, 7, 14, 0, 0, 0, time.UTC)
	inc := model.NewIncident(model.IncidentTest, 4.5, 0, at)

	out := NewIncidentOutput(inc)
	assert.Equal(t, "test", out.Kind)
	assert.Equal(t, "pending", out.Outcome)
	assert.Equal(t, "2026-03-07T14:00:00Z", out.DetectedAt)
	assert.Empty(t, out.ResolvedAt)

	inc.Resolve(model.OutcomeCancelled, at.Add(8*time.Second))
	out = NewIncidentOutput(inc)
	assert.Equal(t, int64(8), out.DurationSeconds)
	assert.Equal(t, "2026-03-07T14:00:08Z", out.ResolvedAt)
}

func TestJSONFormatterPrintIncidents(t *testing.T) {
	j, buf := jsonOut()
	incs := []*model.Incident{
		model.NewIncident(model.IncidentImpact, 5, 2, time.Now()),
		model.NewIncident(model.IncidentImpact, 6, 2, time.Now()),
	}
	require.NoError(t, j.PrintIncidents(incs))

	var got IncidentsResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got.Total)
	assert.Len(t, got.Incidents, 2)
}

func TestJSONFormatterPrintWebhooks(t *testing.T) {
	j, buf := jsonOut()
	require.NoError(t, j.PrintWebhooks([]*model.Webhook{{
		Name: "family",
		Type: "slack",
		URL:  "https://hooks.slack.com/services/T000/B000/XXXXXXXXXXXXXXXX",
	}}))
	assert.NotContains(t, buf.String(), "XXXXXXXXXXXXXXXX")
	assert.Contains(t, buf.String(), `"total": 1`)
}

func TestNewReportOutput(t *testing.T) {
	sentAt := time.Date(2026, 3, 7, 14, 0, 0, 0, time.UTC)
	out := NewReportOutput(&alert.Report{
		Results: []alert.Result{
			{Contact: model.Contact{Name: "Alex"}},
			{Contact: model.Contact{Name: "Sam"}, Error: errors.New("no opener")},
		},
		Webhooks: []notify.DispatchResult{{WebhookName: "family", Success: true}},
		SentAt:   sentAt,
	})

	assert.Equal(t, 1, out.Delivered)
	require.Len(t, out.Contacts, 2)
	assert.True(t, out.Contacts[0].OK)
	assert.Equal(t, "no opener", out.Contacts[1].Error)
	require.Len(t, out.Webhooks, 1)
	assert.True(t, out.Webhooks[0].OK)
	assert.Equal(t, "2026-03-07T14:00:00Z", out.SentAt)
}

func TestJSONFormatterPrintError(t *testing.T) {
	j, buf := jsonOut()
	require.NoError(t, j.PrintError("error", "protection is not active", "Run 'bikeguard daemon start'"))

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "error", got.Status)
	assert.Equal(t, "protection is not active", got.Error)
}
