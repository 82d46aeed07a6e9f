package notify

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/manav03panchal/bikeguard/internal/model"
)

// TelegramFormatter formats notifications for the Bot API sendMessage method.
// The webhook URL is https://api.telegram.org/bot<token>/sendMessage.
type TelegramFormatter struct {
	ChatID string
}

type telegramPayload struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Format converts a notification to an HTML sendMessage body.
func (f *TelegramFormatter) Format(n *model.Notification) ([]byte, error) {
	if f.ChatID == "" {
		return nil, fmt.Errorf("telegram webhook has no chat id")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n%s", html.EscapeString(n.Title), html.EscapeString(n.Message))
	if len(n.Fields) > 0 {
		b.WriteString("\n")
		for _, key := range sortedFields(n) {
			fmt.Fprintf(&b, "\n<b>%s:</b> %s", html.EscapeString(key), html.EscapeString(n.Fields[key]))
		}
	}
	if n.URL != "" {
		fmt.Fprintf(&b, "\n\n<a href=\"%s\">Open location</a>", html.EscapeString(n.URL))
	}

	return json.Marshal(telegramPayload{
		ChatID:    f.ChatID,
		Text:      b.String(),
		ParseMode: "HTML",
	})
}

// ContentType returns the content type for Telegram.
func (f *TelegramFormatter) ContentType() string {
	return "application/json"
}
