package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/bikeguard/internal/runtime"
	"github.com/manav03panchal/bikeguard/internal/tui"
)

// dashboardCmd represents the dashboard command.
var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash", "tui"},
	Short:   "Open the interactive TUI dashboard",
	Long: `Open an interactive terminal dashboard that runs the guard.

The dashboard shows:
  - Protection status, sensor and GPS state
  - The latest g-force reading and location
  - The countdown overlay when an alert is pending

Keyboard Controls:
  a - Start/stop protection
  t - Test alert
  c - Cancel a pending alert
  s - Send the alert now
  q - Quit dashboard

Examples:
  bikeguard dashboard
  bikeguard tui`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	// The alarm's vibration bell would draw over the alt screen.
	stack, err := ctx.BuildStack(runtime.StackOptions{Bell: io.Discard})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(commandContext(cmd))
	done := make(chan error, 1)
	go func() { done <- stack.Run(runCtx) }()

	err = tui.Run(tui.DashboardConfig{Guard: stack.Guard})
	cancel()
	if runErr := <-done; err == nil {
		err = runErr
	}
	return err
}
