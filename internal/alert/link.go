package alert

import (
	"strings"
)

// PhoneDigits strips every non-digit from phone.
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// WhatsAppLink returns the wa.me deep link carrying msg.
func WhatsAppLink(phone, msg string) string {
	return "https://wa.me/" + PhoneDigits(phone) + "?text=" + EncodeComponent(msg)
}

// SMSLink returns the sms: deep link carrying msg.
func SMSLink(phone, msg string) string {
	return "sms:" + PhoneDigits(phone) + "?body=" + EncodeComponent(msg)
}

// EncodeComponent percent-encodes s the way browsers encode a URI component:
// everything except A-Z a-z 0-9 and -_.!~*'() is escaped byte by byte, and a
// space becomes %20.
func EncodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
