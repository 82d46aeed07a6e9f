// Package alert builds the emergency message and delivers it to the rider's
// contacts as WhatsApp and SMS deep links.
package alert

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/manav03panchal/bikeguard/internal/model"
)

const (
	// DefaultTimeLayout matches an en-US locale time string.
	DefaultTimeLayout = "3:04:05 PM"
	// DefaultDateLayout matches an en-US locale date string.
	DefaultDateLayout = "1/2/2006"

	notAvailable        = "N/A"
	locationUnavailable = "Location unavailable"
)

// Composer renders the emergency text.
type Composer struct {
	TimeLayout string
	DateLayout string
}

// DefaultComposer returns a composer using en-US layouts.
func DefaultComposer() *Composer {
	return &Composer{TimeLayout: DefaultTimeLayout, DateLayout: DefaultDateLayout}
}

// MapsURL returns the Google Maps link for f.
func MapsURL(f *model.Fix) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("https://maps.google.com/?q=%s,%s", formatCoord(f.Latitude), formatCoord(f.Longitude))
}

// Message builds the emergency text. fix may be nil. A zero coordinate
// prints as N/A.
func (c *Composer) Message(fix *model.Fix, now time.Time) string {
	link := locationUnavailable
	lat, lon, acc := notAvailable, notAvailable, notAvailable
	if fix != nil {
		link = MapsURL(fix)
		if fix.Latitude != 0 {
			lat = formatCoord(fix.Latitude)
		}
		if fix.Longitude != 0 {
			lon = formatCoord(fix.Longitude)
		}
		if fix.Accuracy > 0 {
			acc = fmt.Sprintf("%d meters", int64(math.Round(fix.Accuracy)))
		}
	}

	var b strings.Builder
	b.WriteString("🚨 EMERGENCY ALERT 🚨\n\n")
	b.WriteString("Bike Accident Detected!\n\n")
	b.WriteString("👤 User needs immediate assistance\n")
	fmt.Fprintf(&b, "📍 Location: %s\n", link)
	fmt.Fprintf(&b, "🕒 Time: %s\n", now.Format(c.timeLayout()))
	fmt.Fprintf(&b, "📅 Date: %s\n\n", now.Format(c.dateLayout()))
	b.WriteString("This is an automated alert from BikeGuard.\n")
	b.WriteString("If you receive this message, please check on the user immediately.\n\n")
	fmt.Fprintf(&b, "Latitude: %s\n", lat)
	fmt.Fprintf(&b, "Longitude: %s\n", lon)
	fmt.Fprintf(&b, "Accuracy: %s\n\n", acc)
	b.WriteString("⚠️ Please take appropriate action!")
	return b.String()
}

func (c *Composer) timeLayout() string {
	if c.TimeLayout == "" {
		return DefaultTimeLayout
	}
	return c.TimeLayout
}

func (c *Composer) dateLayout() string {
	if c.DateLayout == "" {
		return DefaultDateLayout
	}
	return c.DateLayout
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
