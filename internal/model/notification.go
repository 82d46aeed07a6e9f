package model

import (
	"time"
)

// NotificationType defines the type of notification.
type NotificationType string

// Notification types.
const (
	NotifyEmergency NotificationType = "emergency"
	NotifyImpact    NotificationType = "impact"
	NotifyCancelled NotificationType = "cancelled"
	NotifyStatus    NotificationType = "status"
	NotifyTest      NotificationType = "test"
)

// AllNotificationTypes lists every type in display order.
func AllNotificationTypes() []NotificationType {
	return []NotificationType{NotifyEmergency, NotifyImpact, NotifyCancelled, NotifyStatus, NotifyTest}
}

// Notification is a message fanned out to desktop and webhook channels.
type Notification struct {
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Color     int               `json:"color,omitempty"`
	// URL is an optional link (maps location) rendered by formatters that support one.
	URL string `json:"url,omitempty"`
}

// NewNotification creates a new notification with the type's default color.
func NewNotification(t NotificationType, title, message string) *Notification {
	return &Notification{
		Type:      t,
		Title:     title,
		Message:   message,
		Fields:    make(map[string]string),
		Timestamp: time.Now(),
		Color:     DefaultColorForType(t),
	}
}

// WithField adds a field to the notification.
func (n *Notification) WithField(key, value string) *Notification {
	if n.Fields == nil {
		n.Fields = make(map[string]string)
	}
	n.Fields[key] = value
	return n
}

// WithColor sets the embed color.
func (n *Notification) WithColor(color int) *Notification {
	n.Color = color
	return n
}

// WithURL attaches a link.
func (n *Notification) WithURL(url string) *Notification {
	n.URL = url
	return n
}

// Notification colors (Discord-compatible hex values).
const (
	ColorSuccess = 0x57F287
	ColorWarning = 0xFEE75C
	ColorInfo    = 0x5865F2
	ColorError   = 0xED4245
	ColorPrimary = 0x3498DB
)

// DefaultColorForType returns the default color for a notification type.
func DefaultColorForType(t NotificationType) int {
	switch t {
	case NotifyEmergency:
		return ColorError
	case NotifyImpact:
		return ColorWarning
	case NotifyCancelled:
		return ColorSuccess
	case NotifyTest:
		return ColorPrimary
	default:
		return ColorInfo
	}
}

// Icon returns a Slack-style emoji shortcode for the notification type.
func (n *Notification) Icon() string {
	switch n.Type {
	case NotifyEmergency:
		return "rotating_light"
	case NotifyImpact:
		return "warning"
	case NotifyCancelled:
		return "white_check_mark"
	case NotifyStatus:
		return "bicyclist"
	case NotifyTest:
		return "test_tube"
	default:
		return "bell"
	}
}

// TypeLabel returns a human-readable label for the notification type.
func (n *Notification) TypeLabel() string {
	switch n.Type {
	case NotifyEmergency:
		return "Emergency Alert"
	case NotifyImpact:
		return "Impact Detected"
	case NotifyCancelled:
		return "Alert Cancelled"
	case NotifyStatus:
		return "Status"
	case NotifyTest:
		return "Test Notification"
	default:
		return "Notification"
	}
}

// IsUrgent reports whether the notification should bypass quiet channels.
func (n *Notification) IsUrgent() bool {
	return n.Type == NotifyEmergency || n.Type == NotifyImpact
}
