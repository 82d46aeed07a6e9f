package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

const (
	MaskChar = "*"
	// URLMaskLength is how many characters of a URL stay visible.
	URLMaskLength = 30
	// PhoneVisibleDigits is how many trailing digits of a phone number stay visible.
	PhoneVisibleDigits = 4
)

// SensitiveFields are attribute names whose values are always fully masked.
var SensitiveFields = []string{
	"token",
	"secret",
	"password",
	"api_key",
	"authorization",
	"bearer",
	"credential",
	"private_key",
}

var (
	urlPattern = regexp.MustCompile(`https?://[^\s"']+`)
	// wa.me and sms: links embed the recipient number in the path.
	phoneLinkPattern = regexp.MustCompile(`(wa\.me/|sms:)(\d+)`)
)

// MaskURL keeps the first URLMaskLength characters of a URL.
func MaskURL(url string) string {
	if len(url) <= URLMaskLength {
		return url
	}
	return url[:URLMaskLength] + strings.Repeat(MaskChar, 3)
}

// MaskValue masks a sensitive value completely.
func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	return strings.Repeat(MaskChar, min(len(value), 8))
}

// MaskPhone replaces every digit except the last four.
// "+44 7700 900123" becomes "+** **** **0123".
func MaskPhone(phone string) string {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	keep := digits - PhoneVisibleDigits

	var b strings.Builder
	b.Grow(len(phone))
	seen := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			if seen < keep {
				b.WriteString(MaskChar)
			} else {
				b.WriteRune(r)
			}
			seen++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsSensitiveField reports whether an attribute key names a secret.
func IsSensitiveField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, keyword := range SensitiveFields {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// IsPhoneField reports whether an attribute key carries a phone number.
func IsPhoneField(fieldName string) bool {
	return strings.Contains(strings.ToLower(fieldName), "phone")
}

// MaskString masks remote URLs and phone numbers embedded in message links.
func MaskString(s string) string {
	s = phoneLinkPattern.ReplaceAllStringFunc(s, func(m string) string {
		parts := phoneLinkPattern.FindStringSubmatch(m)
		return parts[1] + MaskPhone(parts[2])
	})
	return urlPattern.ReplaceAllStringFunc(s, func(url string) string {
		if strings.Contains(url, "localhost") || strings.Contains(url, "127.0.0.1") {
			return url
		}
		if strings.Contains(url, "wa.me/") {
			return url
		}
		return MaskURL(url)
	})
}

// MaskMap masks sensitive values in a map, recursing into nested maps.
func MaskMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for key, value := range m {
		switch v := value.(type) {
		case string:
			result[key] = maskAttrString(key, v)
		case map[string]any:
			result[key] = MaskMap(v)
		default:
			if IsSensitiveField(key) {
				result[key] = strings.Repeat(MaskChar, 8)
			} else {
				result[key] = value
			}
		}
	}
	return result
}

func maskAttrString(key, value string) string {
	switch {
	case IsSensitiveField(key):
		return MaskValue(value)
	case IsPhoneField(key):
		return MaskPhone(value)
	default:
		return MaskString(value)
	}
}

// MaskingHandler wraps a slog.Handler and masks string attributes.
type MaskingHandler struct {
	next slog.Handler
}

// NewMaskingHandler wraps next.
func NewMaskingHandler(next slog.Handler) *MaskingHandler {
	return &MaskingHandler{next: next}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, MaskString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(maskAttr(a))
		return true
	})
	return h.next.Handle(ctx, masked)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = maskAttr(a)
	}
	return &MaskingHandler{next: h.next.WithAttrs(out)}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

func maskAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, maskAttrString(a.Key, v.String()))
	case slog.KindGroup:
		group := v.Group()
		out := make([]any, len(group))
		for i, ga := range group {
			out[i] = maskAttr(ga)
		}
		return slog.Group(a.Key, out...)
	default:
		return a
	}
}
