package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/manav03panchal/bikeguard/internal/logging"
)

// Notifier shows a short user-facing message.
type Notifier interface {
	Notify(title, body string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, body string)

// Notify calls f.
func (f NotifierFunc) Notify(title, body string) { f(title, body) }

// Desktop shows notifications through notify-send on Linux and osascript on
// macOS. Every notification is also logged, so nothing is lost when neither
// tool is installed.
type Desktop struct {
	Enabled bool

	// run executes a command; replaced in tests.
	run      func(ctx context.Context, name string, args ...string) error
	lookPath func(string) (string, error)
	goos     string
}

// NewDesktop creates a desktop notifier.
func NewDesktop(enabled bool) *Desktop {
	return &Desktop{
		Enabled: enabled,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
		lookPath: exec.LookPath,
		goos:     runtime.GOOS,
	}
}

// Command returns the program and arguments that would display the
// notification, or "" when the platform has no supported tool.
func (d *Desktop) Command(title, body string) (string, []string) {
	switch d.goos {
	case "linux", "freebsd", "openbsd":
		if _, err := d.lookPath("notify-send"); err != nil {
			return "", nil
		}
		return "notify-send", []string{"--app-name=BikeGuard", title, body}
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleQuote(body), appleQuote(title))
		return "osascript", []string{"-e", script}
	default:
		return "", nil
	}
}

// Notify logs the message and shows it on the desktop when possible.
func (d *Desktop) Notify(title, body string) {
	logging.Info(title, "body", body, logging.KeyComponent, "notify")
	if !d.Enabled {
		return
	}

	name, args := d.Command(title, body)
	if name == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.run(ctx, name, args...); err != nil {
		logging.Warn("desktop notification failed", logging.KeyError, err)
	}
}

// appleQuote quotes s as an AppleScript string literal.
func appleQuote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
