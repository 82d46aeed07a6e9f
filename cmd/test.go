package cmd

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/bikeguard/internal/alert"
)

// testFlagDryRun lists the message links instead of opening them.
var testFlagDryRun bool

// testCmd runs a simulated impact end to end.
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Simulate an impact and run the alert countdown",
	Long: `Turn protection on and simulate an impact just above the threshold.

The alarm sounds and the countdown starts as for a real crash. Press 'c' to
cancel, or let it run out to message your contacts. Use --dry-run to print
the WhatsApp and SMS links instead of opening them.

Examples:
  bikeguard test
  bikeguard test --dry-run`,
	Args: cobra.NoArgs,
	RunE: runTest,
}

func init() {
	testCmd.Flags().BoolVar(&testFlagDryRun, "dry-run", false,
		"Print message links instead of opening them")

	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	opts := sessionOptions{Activate: true, Test: true, Once: true}

	var rec *linkRecorder
	if testFlagDryRun {
		rec = &linkRecorder{}
		opts.Opener = rec
	}

	if err := runSession(cmd, opts); err != nil {
		return err
	}

	if rec == nil {
		return nil
	}
	links := rec.Links()
	if ctx.IsJSON() {
		return ctx.Formatter.PrintJSON(map[string]any{"links": links})
	}
	if len(links) == 0 {
		return nil
	}
	ctx.CLIFormatter().Title("Links that would have been opened")
	for _, l := range links {
		ctx.Formatter.Println("  " + l)
	}
	return nil
}

// linkRecorder is an alert.Opener that keeps URLs instead of opening them.
type linkRecorder struct {
	mu    sync.Mutex
	links []string
}

var _ alert.Opener = (*linkRecorder)(nil)

func (r *linkRecorder) Open(_ context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links = append(r.links, url)
	return nil
}

// Links returns the recorded URLs in order.
func (r *linkRecorder) Links() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.links...)
}
