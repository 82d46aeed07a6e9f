package validate

import (
	"strings"
	"unicode"
)

// SanitizeName trims a display name and drops control characters.
func SanitizeName(name string) string {
	return strings.TrimSpace(StripControlChars(strings.ReplaceAll(name, "\n", " ")))
}

// StripControlChars removes control characters except newline and tab.
func StripControlChars(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// TruncateString truncates to maxLen runes, adding "..." if truncated.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// SafeFilename converts a string to a safe filename.
func SafeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		"\x00", "",
	)
	s = strings.Trim(replacer.Replace(s), " .")
	if s == "" {
		return "unnamed"
	}
	return TruncateString(s, 200)
}
