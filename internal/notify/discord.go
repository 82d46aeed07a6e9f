package notify

import (
	"encoding/json"
	"time"

	"github.com/manav03panchal/bikeguard/internal/model"
)

// DiscordFormatter formats notifications as a single Discord embed.
type DiscordFormatter struct{}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

// Format converts a notification to Discord webhook format. Emergencies also
// set the plain content so they show up in push previews.
func (f *DiscordFormatter) Format(n *model.Notification) ([]byte, error) {
	embed := discordEmbed{
		Title:       n.Title,
		Description: n.Message,
		URL:         n.URL,
		Color:       colorOf(n),
		Timestamp:   n.Timestamp.UTC().Format(time.RFC3339),
		Footer:      &discordEmbedFooter{Text: footer},
	}
	for _, key := range sortedFields(n) {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   key,
			Value:  n.Fields[key],
			Inline: true,
		})
	}

	payload := discordPayload{Embeds: []discordEmbed{embed}}
	if n.IsUrgent() {
		payload.Content = "@here " + n.Title
	}
	return json.Marshal(payload)
}

// ContentType returns the content type for Discord webhooks.
func (f *DiscordFormatter) ContentType() string {
	return "application/json"
}
