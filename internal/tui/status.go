package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/motion"
	"github.com/manav03panchal/bikeguard/internal/timer"
)

// StatusComponent shows protection state, the live reading and device status.
type StatusComponent struct {
	Status guard.Status
	Width  int
}

// NewStatusComponent creates a new status component.
func NewStatusComponent(st guard.Status, width int) *StatusComponent {
	return &StatusComponent{Status: st, Width: width}
}

// StateStyle picks the headline style for a guard state.
func StateStyle(st guard.Status) lipgloss.Style {
	switch {
	case st.Detecting:
		return StyleTriggered
	case st.Active:
		return StyleActive
	default:
		return StyleInactive
	}
}

// View renders the status component.
func (sc *StatusComponent) View() string {
	st := sc.Status
	var content strings.Builder

	state := st.State
	if state == "" {
		state = guard.StateInactive
	}
	content.WriteString(StateStyle(st).Render("● " + state))
	if st.Active && !st.Armed && !st.Detecting {
		content.WriteString("  ")
		content.WriteString(StyleWarning.Render("warming up"))
	}
	content.WriteString("\n\n")

	gForce, jerk, progress := 0.0, "-", 0.0
	severity := motion.SeverityNormal
	if r := st.LastReading; r != nil {
		gForce = r.GForce
		progress = r.Progress
		severity = r.Severity
		if r.HasJerk {
			jerk = fmt.Sprintf("%.2f", r.Jerk)
		}
	}

	content.WriteString(fmt.Sprintf("G-Force: %s   Jerk: %s\n",
		StyleValue.Render(fmt.Sprintf("%.2f g", gForce)),
		StyleValue.Render(jerk)))

	barWidth := sc.Width - 12
	if barWidth < 10 {
		barWidth = 10
	}
	content.WriteString(ProgressBar(progress, barWidth, SeverityColor(severity)))
	content.WriteString("\n")
	content.WriteString(StyleSubtitle.Render(fmt.Sprintf("Threshold %.1f g, countdown %ds", st.Threshold, st.CountdownTime)))
	content.WriteString("\n\n")

	content.WriteString(StyleSubtitle.Render(st.SensorStatus))
	content.WriteString("\n")
	content.WriteString(StyleSubtitle.Render(st.GPSStatus))

	box := StyleStatusBox
	if st.Active {
		box = StyleActiveStatusBox
	}
	return box.Width(sc.Width - 4).Render(content.String())
}

// ContactsComponent lists the emergency contacts.
type ContactsComponent struct {
	Contacts []model.Contact
	Width    int
}

// NewContactsComponent creates a new contacts component.
func NewContactsComponent(contacts []model.Contact, width int) *ContactsComponent {
	return &ContactsComponent{Contacts: contacts, Width: width}
}

// View renders the contacts component.
func (cc *ContactsComponent) View() string {
	var content strings.Builder

	content.WriteString(StyleTitle.Render("Emergency Contacts"))
	content.WriteString("\n")

	if len(cc.Contacts) == 0 {
		content.WriteString(StyleWarning.Render("No contacts. Add one with 'bikeguard contact add'."))
	} else {
		for i, c := range cc.Contacts {
			if i > 0 {
				content.WriteString("\n")
			}
			content.WriteString(StyleContact.Render(c.Name))
			content.WriteString("  ")
			content.WriteString(StyleSubtitle.Render(c.Phone))
		}
	}

	return StyleContactsBox.Width(cc.Width - 4).Render(content.String())
}

// CountdownComponent is the overlay shown while an alert is pending.
type CountdownComponent struct {
	Remaining int
	Total     int
	Location  *model.Fix
	Width     int
}

// View renders the countdown overlay.
func (cc *CountdownComponent) View() string {
	var content strings.Builder

	content.WriteString(StyleTriggered.Render(guard.StateTriggered))
	content.WriteString("\n\n")
	content.WriteString(fmt.Sprintf("Sending emergency alert in %s", StyleTriggered.Render(fmt.Sprintf("%d", cc.Remaining))))
	content.WriteString("\n")

	progress := 0.0
	if cc.Total > 0 {
		progress = float64(cc.Total-cc.Remaining) / float64(cc.Total) * 100
	}
	barWidth := cc.Width - 12
	if barWidth < 10 {
		barWidth = 10
	}
	content.WriteString(ProgressBar(progress, barWidth, ColorError))
	content.WriteString("\n\n")
	content.WriteString(StyleSubtitle.Render(timer.LocationLine(cc.Location)))
	content.WriteString("\n\n")
	content.WriteString(StyleWarning.Render(timer.CountdownHint))

	return StyleAlertBox.Width(cc.Width - 4).Render(content.String())
}

type keyHelp struct {
	key  string
	desc string
}

// HelpBar renders the key bar at the bottom. The cancel and send keys only
// show while a countdown runs.
func HelpBar(detecting bool) string {
	keys := []keyHelp{{"a", "toggle"}, {"t", "test"}, {"q", "quit"}}
	if detecting {
		keys = []keyHelp{{"c", "cancel"}, {"s", "send now"}, {"q", "quit"}}
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts, StyleHelpKey.Render(k.key)+" "+StyleHelpDesc.Render(k.desc))
	}

	return StyleHelp.Render(strings.Join(parts, "  •  "))
}
