package model

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Webhook type constants.
const (
	WebhookTypeDiscord  = "discord"
	WebhookTypeSlack    = "slack"
	WebhookTypeTeams    = "teams"
	WebhookTypeTelegram = "telegram"
	WebhookTypeGeneric  = "generic"
)

// Webhook is a relay endpoint that receives emergency notifications as chat
// messages. Telegram webhooks carry the bot API URL and a chat id.
type Webhook struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	Enabled   bool      `json:"enabled"`
	Template  string    `json:"template,omitempty"`
	ChatID    string    `json:"chat_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

func (w *Webhook) SetKey(key string) { w.Key = key }

func (w *Webhook) GetKey() string { return w.Key }

func (w *Webhook) IsEnabled() bool {
	return w.Enabled
}

// MaskedURL keeps the scheme and host and hides the path, which carries the
// webhook token or, for Telegram, the bot token.
func (w *Webhook) MaskedURL() string {
	u, err := url.Parse(w.URL)
	if err != nil || u.Host == "" {
		if len(w.URL) > 12 {
			return w.URL[:12] + "***"
		}
		return w.URL
	}
	if strings.Trim(u.Path, "/") == "" && u.RawQuery == "" {
		return u.Scheme + "://" + u.Host
	}
	return u.Scheme + "://" + u.Host + "/***"
}

// MarkUsed records a delivery attempt. A nil err clears the last error.
func (w *Webhook) MarkUsed(at time.Time, err error) {
	w.LastUsed = at
	w.LastError = ""
	if err != nil {
		w.LastError = err.Error()
	}
}

// GenerateWebhookKey returns "webhook:<name>".
func GenerateWebhookKey(name string) string {
	return PrefixWebhook + ":" + name
}

// NewWebhook creates a new enabled webhook.
func NewWebhook(name, webhookType, url string) *Webhook {
	return &Webhook{
		Key:       GenerateWebhookKey(name),
		Name:      name,
		Type:      webhookType,
		URL:       url,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
}

// ValidWebhookTypes lists the supported chat formats.
func ValidWebhookTypes() []string {
	return []string{WebhookTypeDiscord, WebhookTypeSlack, WebhookTypeTeams, WebhookTypeTelegram, WebhookTypeGeneric}
}

func IsValidWebhookType(t string) bool {
	return slices.Contains(ValidWebhookTypes(), t)
}

// Names start with a letter or digit, then letters, digits, '-' or '_'.
var webhookNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,49}$`)

func IsValidWebhookName(name string) bool {
	return webhookNameRegex.MatchString(name)
}

// webhookHosts maps URL fragments to the chat service they belong to.
var webhookHosts = []struct {
	fragment string
	kind     string
}{
	{"discord.com/api/webhooks", WebhookTypeDiscord},
	{"discordapp.com/api/webhooks", WebhookTypeDiscord},
	{"hooks.slack.com", WebhookTypeSlack},
	{"outlook.office.com/webhook", WebhookTypeTeams},
	{"webhook.office.com", WebhookTypeTeams},
	{"api.telegram.org/bot", WebhookTypeTelegram},
}

// DetectWebhookType guesses the chat service from rawURL, falling back to
// generic JSON.
func DetectWebhookType(rawURL string) string {
	lower := strings.ToLower(rawURL)
	for _, h := range webhookHosts {
		if strings.Contains(lower, h.fragment) {
			return h.kind
		}
	}
	return WebhookTypeGeneric
}
