// Package notify relays BikeGuard notifications to chat webhooks and to the
// desktop notification center.
package notify

import (
	"slices"

	"github.com/manav03panchal/bikeguard/internal/model"
)

// footer names the sender in chat formatters.
const footer = "BikeGuard"

// Formatter formats notifications for a specific webhook type.
type Formatter interface {
	// Format converts a notification into the webhook-specific payload.
	Format(n *model.Notification) ([]byte, error)

	// ContentType returns the HTTP Content-Type for the payload.
	ContentType() string
}

// FormatterFor returns the formatter for a webhook, taking its template and
// chat id into account.
func FormatterFor(wh *model.Webhook) Formatter {
	switch wh.Type {
	case model.WebhookTypeDiscord:
		return &DiscordFormatter{}
	case model.WebhookTypeSlack:
		return &SlackFormatter{}
	case model.WebhookTypeTeams:
		return &TeamsFormatter{}
	case model.WebhookTypeTelegram:
		return &TelegramFormatter{ChatID: wh.ChatID}
	default:
		return NewGenericFormatter(wh.Template)
	}
}

// sortedFields returns the notification fields ordered by key so payloads are stable.
func sortedFields(n *model.Notification) []string {
	keys := make([]string, 0, len(n.Fields))
	for k := range n.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func colorOf(n *model.Notification) int {
	if n.Color != 0 {
		return n.Color
	}
	return model.DefaultColorForType(n.Type)
}
