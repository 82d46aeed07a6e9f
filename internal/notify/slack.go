package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/manav03panchal/bikeguard/internal/model"
)

// SlackFormatter formats notifications as Slack blocks.
type SlackFormatter struct{}

type slackPayload struct {
	Text        string        `json:"text,omitempty"`
	Blocks      []slackBlock  `json:"blocks,omitempty"`
	Attachments []slackAttach `json:"attachments,omitempty"`
}

type slackBlock struct {
	Type     string           `json:"type"`
	Text     *slackBlockText  `json:"text,omitempty"`
	Fields   []slackBlockText `json:"fields,omitempty"`
	Elements []slackBlockText `json:"elements,omitempty"`
}

type slackBlockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackAttach struct {
	Color    string `json:"color,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// Format converts a notification to Slack webhook format.
func (f *SlackFormatter) Format(n *model.Notification) ([]byte, error) {
	title := fmt.Sprintf(":%s: %s", n.Icon(), n.Title)
	blocks := []slackBlock{
		{Type: "header", Text: &slackBlockText{Type: "plain_text", Text: n.Title}},
		{Type: "section", Text: &slackBlockText{Type: "mrkdwn", Text: slackEscape(n.Message)}},
	}

	if len(n.Fields) > 0 {
		var fields []slackBlockText
		for _, key := range sortedFields(n) {
			fields = append(fields, slackBlockText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*%s*\n%s", key, slackEscape(n.Fields[key])),
			})
		}
		blocks = append(blocks, slackBlock{Type: "section", Fields: fields})
	}

	if n.URL != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackBlockText{Type: "mrkdwn", Text: fmt.Sprintf("<%s|Open location>", n.URL)},
		})
	}

	blocks = append(blocks, slackBlock{
		Type: "context",
		Elements: []slackBlockText{{
			Type: "mrkdwn",
			Text: fmt.Sprintf("%s | %s", footer, n.Timestamp.Format("Jan 2, 3:04 PM")),
		}},
	})

	payload := slackPayload{
		Text:        title,
		Blocks:      blocks,
		Attachments: []slackAttach{{Color: colorToHex(colorOf(n)), Fallback: n.Title}},
	}
	return json.Marshal(payload)
}

// ContentType returns the content type for Slack webhooks.
func (f *SlackFormatter) ContentType() string {
	return "application/json"
}

func colorToHex(color int) string {
	return fmt.Sprintf("#%06X", color)
}

// slackEscape escapes the characters Slack mrkdwn treats as control sequences.
func slackEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
