package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/bikeguard/internal/alert"
	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/motion"
)

// Styles for CLI output.
var (
	// Colors
	colorPrimary = lipgloss.Color("#7C3AED") // Purple
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorWarning = lipgloss.Color("#F59E0B") // Yellow
	colorError   = lipgloss.Color("#EF4444") // Red
	colorSuccess = lipgloss.Color("#10B981") // Green

	// Styles
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleError = lipgloss.NewStyle().
			Foreground(colorError)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleBold = lipgloss.NewStyle().
			Bold(true)

	styleName = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleAlert = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)
)

// CLIFormatter provides CLI-specific formatting.
type CLIFormatter struct {
	*Formatter
}

// NewCLIFormatter creates a new CLI formatter.
func NewCLIFormatter(f *Formatter) *CLIFormatter {
	return &CLIFormatter{Formatter: f}
}

func (c *CLIFormatter) render(s lipgloss.Style, text string) string {
	if c.IsColorEnabled() {
		return s.Render(text)
	}
	return text
}

// Title prints a title.
func (c *CLIFormatter) Title(text string) {
	c.Println(c.render(styleTitle, text))
}

// Success prints a success message.
func (c *CLIFormatter) Success(text string) {
	c.Println(c.render(styleSuccess, "✓ "+text))
}

// Warning prints a warning message.
func (c *CLIFormatter) Warning(text string) {
	c.Println(c.render(styleWarning, "⚠ "+text))
}

// Error prints an error message.
func (c *CLIFormatter) Error(text string) {
	c.Println(c.render(styleError, "✗ "+text))
}

// Muted prints muted text.
func (c *CLIFormatter) Muted(text string) {
	c.Println(c.render(styleMuted, text))
}

// Name formats a contact or webhook name.
func (c *CLIFormatter) Name(name string) string {
	return c.render(styleName, name)
}

// State formats a protection state headline.
func (c *CLIFormatter) State(st guard.Status) string {
	switch {
	case st.Detecting:
		return c.render(styleAlert, st.State)
	case st.Active:
		return c.render(styleSuccess, st.State)
	default:
		return c.render(styleMuted, st.State)
	}
}

// OnOff renders a toggle.
func OnOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

// PrintStatus prints a guard snapshot.
func (c *CLIFormatter) PrintStatus(st guard.Status) {
	c.Printf("Protection: %s\n", c.State(st))
	if st.Active && !st.ActivatedAt.IsZero() {
		c.Printf("  Since: %s (%s)\n", FormatTime(st.ActivatedAt), FormatDuration(time.Since(st.ActivatedAt)))
	}
	if st.Detecting {
		c.Printf("  Sending emergency alert in %ds\n", st.Remaining)
	}
	if r := st.LastReading; r != nil {
		c.Printf("  G-Force: %s (%s)\n", FormatG(r.GForce), SeverityLabel(r.Severity))
		c.Printf("  %s\n", ProgressBar(r.Progress, 20))
	}
	c.Printf("  Threshold: %s  Countdown: %ds\n", FormatG(st.Threshold), st.CountdownTime)
	c.Printf("  %s\n", st.SensorStatus)
	c.Printf("  %s\n", st.GPSStatus)
	c.Printf("  Contacts: %d\n", len(st.Contacts))
	if len(st.Contacts) == 0 {
		c.Warning("No emergency contacts. Add one with 'bikeguard contact add <name> <phone>'.")
	}
}

// PrintProfile prints the stored settings.
func (c *CLIFormatter) PrintProfile(p *model.Profile) {
	c.Title("Settings")
	c.Printf("  Impact threshold: %s\n", FormatG(p.Threshold))
	c.Printf("  Countdown: %ds\n", p.CountdownTime)
	c.Printf("  Sound: %s\n", OnOff(p.Settings.EnableSound))
	c.Printf("  Vibration: %s\n", OnOff(p.Settings.EnableVibration))
	c.Printf("  Contacts: %d\n", len(p.Contacts))
}

// PrintContacts prints the contact list.
func (c *CLIFormatter) PrintContacts(contacts []model.Contact) {
	if len(contacts) == 0 {
		c.Muted("No emergency contacts.")
		c.Muted("Use 'bikeguard contact add <name> <phone>' to add one.")
		return
	}

	rows := make([]TableRow, 0, len(contacts))
	for _, ct := range contacts {
		rows = append(rows, TableRow{Columns: []string{
			fmt.Sprintf("%d", ct.ID),
			ct.Name,
			ct.Phone,
		}})
	}
	c.PrintTable([]string{"ID", "NAME", "PHONE"}, rows)
}

// PrintContactAdded confirms a saved contact.
func (c *CLIFormatter) PrintContactAdded(ct model.Contact) {
	c.Success(fmt.Sprintf("%s added to emergency contacts", c.Name(ct.Name)))
	c.Printf("  ID: %d\n", ct.ID)
	c.Printf("  Phone: %s\n", ct.Phone)
}

// PrintIncidents prints incident history.
func (c *CLIFormatter) PrintIncidents(incidents []*model.Incident) {
	if len(incidents) == 0 {
		c.Muted("No incidents recorded.")
		return
	}

	rows := make([]TableRow, 0, len(incidents))
	for _, inc := range incidents {
		where := "-"
		if inc.Location != nil {
			where = fmt.Sprintf("%.5f,%.5f", inc.Location.Latitude, inc.Location.Longitude)
		}
		rows = append(rows, TableRow{Columns: []string{
			FormatTime(inc.DetectedAt),
			string(inc.Kind),
			FormatG(inc.GForce),
			string(inc.Outcome),
			fmt.Sprintf("%d", inc.ContactsNotified),
			where,
		}})
	}
	c.PrintTable([]string{"DETECTED", "KIND", "PEAK", "OUTCOME", "NOTIFIED", "LOCATION"}, rows)
}

// PrintWebhooks prints configured webhooks with masked URLs.
func (c *CLIFormatter) PrintWebhooks(webhooks []*model.Webhook) {
	if len(webhooks) == 0 {
		c.Muted("No webhooks configured.")
		c.Muted("Use 'bikeguard webhook add <name> <url>' to add one.")
		return
	}

	rows := make([]TableRow, 0, len(webhooks))
	for _, w := range webhooks {
		lastUsed := "never"
		if !w.LastUsed.IsZero() {
			lastUsed = FormatTime(w.LastUsed)
		}
		rows = append(rows, TableRow{Columns: []string{
			w.Name,
			w.Type,
			OnOff(w.Enabled),
			w.MaskedURL(),
			lastUsed,
		}})
	}
	c.PrintTable([]string{"NAME", "TYPE", "ENABLED", "URL", "LAST USED"}, rows)
}

// PrintReport summarises an emergency send.
func (c *CLIFormatter) PrintReport(r *alert.Report) {
	if r == nil {
		return
	}
	if len(r.Results) == 0 {
		c.Warning("No emergency contacts to message.")
	}
	for _, res := range r.Results {
		if res.Error != nil {
			c.Error(fmt.Sprintf("%s: %v", res.Contact.Name, res.Error))
			continue
		}
		c.Success(fmt.Sprintf("Opened WhatsApp for %s", c.Name(res.Contact.Name)))
	}
	for _, w := range r.Webhooks {
		if !w.Success {
			msg := fmt.Sprintf("webhook %s failed", w.WebhookName)
			if w.Error != nil {
				msg = fmt.Sprintf("webhook %s: %v", w.WebhookName, w.Error)
			}
			if w.Queued {
				msg += " (queued for retry)"
			}
			c.Error(msg)
			continue
		}
		c.Success(fmt.Sprintf("Relayed to webhook %s", w.WebhookName))
	}
	if r.Location == nil {
		c.Muted("Location unavailable")
	}
}

// SeverityLabel names a reading's band.
func SeverityLabel(s motion.Severity) string {
	switch s {
	case motion.SeverityImpact:
		return "IMPACT"
	case motion.SeverityElevated:
		return "elevated"
	default:
		return "normal"
	}
}

// ProgressBar creates a simple progress bar.
func ProgressBar(percentage float64, width int) string {
	if percentage > 100 {
		percentage = 100
	}
	if percentage < 0 {
		percentage = 0
	}

	filled := int(float64(width) * percentage / 100)
	empty := width - filled

	return strings.Repeat("█", filled) + strings.Repeat("░", empty)
}

// TableRow is one row for PrintTable.
type TableRow struct {
	Columns []string
}

// PrintTable prints a simple table.
func (c *CLIFormatter) PrintTable(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, col := range row.Columns {
			if i < len(widths) && len(col) > widths[i] {
				widths[i] = len(col)
			}
		}
	}

	var headerLine strings.Builder
	for i, h := range headers {
		headerLine.WriteString(fmt.Sprintf("%-*s  ", widths[i], h))
	}
	c.Println(c.render(styleBold, strings.TrimRight(headerLine.String(), " ")))

	var sep strings.Builder
	for _, w := range widths {
		sep.WriteString(strings.Repeat("─", w) + "  ")
	}
	c.Println(strings.TrimRight(sep.String(), " "))

	for _, row := range rows {
		var rowLine strings.Builder
		for i, col := range row.Columns {
			if i < len(widths) {
				rowLine.WriteString(fmt.Sprintf("%-*s  ", widths[i], col))
			}
		}
		c.Println(strings.TrimRight(rowLine.String(), " "))
	}
}
