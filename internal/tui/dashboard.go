package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/bikeguard/internal/alert"
	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/guard"
)

// Controller is the guard surface the dashboard drives.
type Controller interface {
	Status() guard.Status
	Toggle() bool
	TestAlert() error
	Cancel() error
	SendNow(ctx context.Context) (*alert.Report, error)
	Subscribe(fn func(guard.Event)) func()
}

// tickMsg is sent when the refresh timer fires.
type tickMsg time.Time

// eventMsg carries a guard event into the update loop.
type eventMsg guard.Event

// sentMsg reports the outcome of a send-now.
type sentMsg struct {
	report *alert.Report
	err    error
}

// DashboardModel is the bubbletea model for the live dashboard.
type DashboardModel struct {
	guard  Controller
	status guard.Status

	// UI state
	width      int
	height     int
	err        error
	message    string
	messageExp time.Time
	sending    bool

	refreshInterval time.Duration
	now             func() time.Time
}

// DashboardConfig holds configuration for the dashboard.
type DashboardConfig struct {
	Guard           Controller
	RefreshInterval time.Duration
}

// NewDashboardModel creates a new dashboard model.
func NewDashboardModel(config DashboardConfig) *DashboardModel {
	if config.RefreshInterval == 0 {
		config.RefreshInterval = time.Second
	}
	return &DashboardModel{
		guard:           config.Guard,
		status:          config.Guard.Status(),
		refreshInterval: config.RefreshInterval,
		now:             time.Now,
	}
}

// Init starts the refresh ticker.
func (m *DashboardModel) Init() tea.Cmd {
	return m.tickCmd()
}

// Update handles messages and updates the model.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if !m.messageExp.IsZero() && m.now().After(m.messageExp) {
			m.message = ""
			m.messageExp = time.Time{}
		}
		m.status = m.guard.Status()
		return m, m.tickCmd()

	case eventMsg:
		m.applyEvent(guard.Event(msg))
		return m, nil

	case sentMsg:
		m.sending = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.setMessage(fmt.Sprintf("Emergency alert sent to %d contact(s)", msg.report.Delivered()), 5*time.Second)
		}
		m.status = m.guard.Status()
		return m, nil
	}

	return m, nil
}

func (m *DashboardModel) applyEvent(e guard.Event) {
	switch e.Type {
	case guard.EventReading:
		if e.Reading != nil {
			r := *e.Reading
			m.status.LastReading = &r
		}
	case guard.EventTick:
		m.status.Remaining = e.Remaining
	case guard.EventStatus:
		if e.Status != nil {
			m.status = *e.Status
		}
	case guard.EventAlert:
		m.status = m.guard.Status()
		m.setMessage("Impact detected!", 3*time.Second)
	case guard.EventCancelled:
		m.status = m.guard.Status()
		m.setMessage("Alert cancelled", 3*time.Second)
	case guard.EventSent:
		m.status = m.guard.Status()
	}
}

// handleKeyPress handles keyboard input.
func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "a":
		if m.guard.Toggle() {
			m.setMessage("Protection Activated", 2*time.Second)
		} else {
			m.setMessage("Protection Deactivated", 2*time.Second)
		}
		m.err = nil

	case "t":
		if err := m.guard.TestAlert(); err != nil {
			if errors.Is(err, errors.ErrNotActive) {
				m.setMessage("Please activate system first", 3*time.Second)
			} else {
				m.err = err
			}
		} else {
			m.setMessage("Test Alert Started", 2*time.Second)
		}

	case "c":
		if err := m.guard.Cancel(); err == nil {
			m.setMessage("Alert cancelled", 2*time.Second)
		}

	case "s":
		if !m.status.Detecting || m.sending {
			return m, nil
		}
		m.sending = true
		m.setMessage("Sending emergency alert...", 10*time.Second)
		return m, m.sendCmd()

	default:
		return m, nil
	}

	m.status = m.guard.Status()
	return m, nil
}

// View renders the dashboard.
func (m *DashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	if m.err != nil {
		sections = append(sections, StyleError.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	if m.message != "" {
		sections = append(sections, StyleWarning.Render(m.message))
	}

	if m.status.Detecting {
		overlay := &CountdownComponent{
			Remaining: m.status.Remaining,
			Total:     m.status.CountdownTime,
			Location:  m.status.Location,
			Width:     m.width,
		}
		sections = append(sections, overlay.View())
	}

	sections = append(sections, NewStatusComponent(m.status, m.width).View())
	sections = append(sections, NewContactsComponent(m.status.Contacts, m.width).View())
	sections = append(sections, HelpBar(m.status.Detecting))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *DashboardModel) renderHeader() string {
	title := StyleTitle.Render("BikeGuard")
	timeStr := StyleSubtitle.Render(m.now().Format("Mon Jan 2, 15:04:05"))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", timeStr) + "\n"
}

// setMessage sets a temporary message.
func (m *DashboardModel) setMessage(msg string, duration time.Duration) {
	m.message = msg
	m.messageExp = m.now().Add(duration)
}

func (m *DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// sendCmd runs the send off the update loop; locating and opening links
// can take seconds.
func (m *DashboardModel) sendCmd() tea.Cmd {
	g := m.guard
	return func() tea.Msg {
		report, err := g.SendNow(context.Background())
		return sentMsg{report: report, err: err}
	}
}

// Run starts the dashboard and forwards guard events into it until the
// user quits.
func Run(config DashboardConfig) error {
	m := NewDashboardModel(config)
	p := tea.NewProgram(m, tea.WithAltScreen())

	unsubscribe := config.Guard.Subscribe(func(e guard.Event) {
		go p.Send(eventMsg(e))
	})
	defer unsubscribe()

	_, err := p.Run()
	return err
}
