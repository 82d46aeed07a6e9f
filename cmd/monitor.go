package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/bikeguard/internal/alert"
	"github.com/manav03panchal/bikeguard/internal/daemon"
	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/runtime"
	"github.com/manav03panchal/bikeguard/internal/timer"
)

// monitorFlagPaused starts with protection off.
var monitorFlagPaused bool

// monitorCmd runs the guard in the foreground.
var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Aliases: []string{"ride", "m"},
	Short:   "Protect a ride in the foreground",
	Long: `Run crash detection in this terminal until you quit.

Keys:
  a - start/stop protection
  t - simulate an impact (test alert)
  c - cancel a pending alert
  s - send the alert now
  q - quit

With --format json every event is printed as one JSON object per line.

Examples:
  bikeguard monitor
  bikeguard monitor --paused
  bikeguard monitor --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, sessionOptions{Activate: !monitorFlagPaused})
	},
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorFlagPaused, "paused", false,
		"Start with protection off (press 'a' to start)")

	rootCmd.AddCommand(monitorCmd)
}

// sessionOptions controls a foreground guard session.
type sessionOptions struct {
	Activate bool
	// Test starts a test alert right away.
	Test bool
	// Once ends the session when the first alert is cancelled or sent.
	Once bool
	// Opener replaces the OS URL opener.
	Opener alert.Opener
}

// runSession builds the guard stack and drives it from the keyboard until
// the user quits, a signal arrives, or a Once session resolves.
func runSession(cmd *cobra.Command, opts sessionOptions) error {
	stack, err := ctx.BuildStack(runtime.StackOptions{Opener: opts.Opener})
	if err != nil {
		return err
	}

	sigs := daemon.NewSignalHandler()
	sigs.Setup()
	defer sigs.Cleanup()
	runCtx, cancel := sigs.Context(commandContext(cmd))
	defer cancel()

	events := make(chan guard.Event, 64)
	unsubscribe := stack.Guard.Subscribe(func(e guard.Event) {
		if e.Type == guard.EventReading && !ctx.IsJSON() {
			return
		}
		select {
		case events <- e:
		default:
		}
	})
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- stack.Run(runCtx) }()

	s := newSession(stack.Guard, ctx.Formatter.Writer, ctx.IsJSON())
	s.display.UseColor = ctx.Formatter.IsColorEnabled()

	var keys <-chan timer.Key
	if !s.json && timer.IsTerminal() {
		k, restore, err := timer.Terminal(runCtx)
		if err == nil {
			defer restore()
			keys = k
			s.raw = true
		}
	}

	s.intro(keys != nil)
	if opts.Activate {
		stack.Guard.Activate()
	}
	if opts.Test {
		if err := stack.Guard.TestAlert(); err != nil {
			cancel()
			<-done
			return err
		}
	}

	errs := make(chan error, 4)
loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		case e := <-events:
			if s.handleEvent(e) && opts.Once {
				cancel()
			}
		case err := <-errs:
			s.warn(runtime.FormatError(err))
		case k, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if k == timer.KeyQuit {
				cancel()
				continue
			}
			s.handleKey(runCtx, k, errs)
		}
	}

	err = <-done
	s.println("Stopped.")
	return err
}

// session renders guard events for one foreground run.
type session struct {
	guard   *guard.Guard
	out     io.Writer
	display *timer.CountdownDisplay
	json    bool
	// raw means the terminal is in raw mode and needs CRLF line endings.
	raw    bool
	active bool
	total  int
}

func newSession(g *guard.Guard, out io.Writer, asJSON bool) *session {
	display := timer.NewCountdownDisplay()
	display.Writer = out
	return &session{guard: g, out: out, display: display, json: asJSON}
}

func (s *session) println(text string) {
	if s.json {
		return
	}
	if s.raw {
		text = strings.ReplaceAll(text, "\n", "\r\n") + "\r"
	}
	fmt.Fprintln(s.out, text)
}

func (s *session) warn(text string) {
	s.println("! " + text)
}

func (s *session) intro(interactive bool) {
	st := s.guard.Status()
	s.println(fmt.Sprintf("BikeGuard monitor - threshold %.2f g, countdown %ds", st.Threshold, st.CountdownTime))
	if len(st.Contacts) == 0 {
		s.warn("No emergency contacts. Add one with 'bikeguard contact add'.")
	}
	if interactive {
		s.println("Keys: [a] protection  [t] test  [c] cancel  [s] send now  [q] quit")
	}
}

// handleEvent prints e and reports whether it resolved an alert.
func (s *session) handleEvent(e guard.Event) bool {
	if s.json {
		_ = json.NewEncoder(s.out).Encode(e)
		return e.Type == guard.EventCancelled || e.Type == guard.EventSent
	}

	switch e.Type {
	case guard.EventStatus:
		if e.Status != nil && e.Status.Active != s.active {
			s.active = e.Status.Active
			if s.active {
				s.println("Protection ACTIVE")
			} else {
				s.println("Protection INACTIVE")
			}
		}
	case guard.EventAlert:
		s.total = e.Remaining
		s.renderCountdown(e.Remaining)
	case guard.EventTick:
		s.renderCountdown(e.Remaining)
	case guard.EventCancelled:
		s.clear()
		s.println("Alert cancelled. Back to monitoring.")
		return true
	case guard.EventSent:
		s.clear()
		s.println(fmt.Sprintf("Emergency alert sent to %d contact(s).", e.Delivered))
		return true
	}
	return false
}

// renderCountdown redraws the overlay on a terminal and prints one line
// per tick otherwise.
func (s *session) renderCountdown(remaining int) {
	if !s.raw {
		s.println(fmt.Sprintf("ALERT: sending emergency alert in %ds", remaining))
		return
	}
	s.display.ClearScreen()
	s.println(s.display.RenderCountdown(remaining, s.total, s.guard.Status().Location))
}

func (s *session) clear() {
	if s.raw {
		s.display.ClearScreen()
	}
}

func (s *session) handleKey(c context.Context, k timer.Key, errs chan<- error) {
	switch k {
	case timer.KeyToggle:
		s.guard.Toggle()
	case timer.KeyTest:
		if err := s.guard.TestAlert(); err != nil {
			s.warn(runtime.FormatError(err))
		}
	case timer.KeyCancel:
		if err := s.guard.Cancel(); err != nil {
			s.warn(runtime.FormatError(err))
		}
	case timer.KeySendNow:
		// Sending opens links and waits for a location fix.
		go func() {
			if _, err := s.guard.SendNow(c); err != nil {
				errs <- err
			}
		}()
	}
}
