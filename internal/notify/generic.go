package notify

import (
	"bytes"
	"encoding/json"
	"sync"
	"text/template"
	"time"

	"github.com/manav03panchal/bikeguard/internal/model"
)

// GenericFormatter posts a flat JSON document. A webhook may instead carry a
// text/template body; it sees the same fields as the default payload and a
// "json" function for quoting values.
type GenericFormatter struct {
	Template string

	once sync.Once
	tmpl *template.Template
	err  error
}

type genericPayload struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	URL       string            `json:"url,omitempty"`
	Timestamp string            `json:"timestamp"`
	Color     int               `json:"color,omitempty"`
}

func NewGenericFormatter(tmpl string) *GenericFormatter {
	return &GenericFormatter{Template: tmpl}
}

func (f *GenericFormatter) Format(n *model.Notification) ([]byte, error) {
	p := genericPayload{
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Fields:    n.Fields,
		URL:       n.URL,
		Timestamp: n.Timestamp.UTC().Format(time.RFC3339),
		Color:     colorOf(n),
	}
	if f.Template == "" {
		return json.Marshal(p)
	}

	f.once.Do(func() {
		f.tmpl, f.err = template.New("webhook").Funcs(template.FuncMap{"json": jsonQuote}).Parse(f.Template)
	})
	if f.err != nil {
		return nil, f.err
	}
	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *GenericFormatter) ContentType() string {
	return "application/json"
}

func jsonQuote(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}
