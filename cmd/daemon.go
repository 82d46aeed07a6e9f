package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/bikeguard/internal/daemon"
	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/output"
)

// Daemon command flags.
var (
	daemonStartFlagForeground bool
	daemonFlagServe           bool
	daemonLogsFlagTail        int
	daemonLogsFlagFollow      bool
	daemonInstallFlagForce    bool
)

// daemonCmd represents the daemon command.
var daemonCmd = &cobra.Command{
	Use:     "daemon [command]",
	Aliases: []string{"d", "bg", "service"},
	Short:   "Manage the background daemon",
	Long: `Manage the BikeGuard background daemon. It reads the configured sensor
and location sources, arms and disarms protection on the configured schedule,
and sends alerts without a terminal attached.

While the daemon runs it holds the database; stop it before changing
contacts or settings from the CLI, or use the HTTP API with --serve.

Examples:
  bikeguard daemon start
  bikeguard daemon start --serve
  bikeguard daemon status
  bikeguard daemon stop
  bikeguard daemon logs --tail 20`,
	RunE: runDaemonStatus,
}

// daemonStartCmd starts the daemon.
var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the background daemon",
	Long: `Start the BikeGuard background daemon.

Examples:
  bikeguard daemon start              # Start in background
  bikeguard daemon start --serve      # Also run the HTTP API
  bikeguard daemon start --foreground # Start in foreground (for debugging)`,
	Args: cobra.NoArgs,
	RunE: runDaemonStart,
}

// daemonStopCmd stops the daemon.
var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

// daemonStatusCmd shows daemon status.
var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

// daemonLogsCmd shows daemon logs.
var daemonLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View daemon logs",
	Long: `View the daemon log file.

Examples:
  bikeguard daemon logs
  bikeguard daemon logs --tail 50
  bikeguard daemon logs --follow`,
	Args: cobra.NoArgs,
	RunE: runDaemonLogs,
}

// daemonInstallCmd installs the daemon as a system service.
var daemonInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install daemon as a system service",
	Long: `Install the BikeGuard daemon as a system service that starts automatically on login.

On macOS, this creates a launchd agent in ~/Library/LaunchAgents.
On Linux, this creates a systemd user service in ~/.config/systemd/user.

Examples:
  bikeguard daemon install
  bikeguard daemon install --serve
  bikeguard daemon install --force   # Reinstall if already installed`,
	Args: cobra.NoArgs,
	RunE: runDaemonInstall,
}

// daemonUninstallCmd uninstalls the daemon system service.
var daemonUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall daemon system service",
	Long: `Remove the BikeGuard daemon from system services.

This stops the service and removes the service configuration.`,
	Args: cobra.NoArgs,
	RunE: runDaemonUninstall,
}

func init() {
	daemonStartCmd.Flags().BoolVar(&daemonStartFlagForeground, "foreground", false,
		"Run in foreground (don't daemonize)")
	daemonStartCmd.Flags().BoolVar(&daemonFlagServe, "serve", false,
		"Also run the HTTP API")

	daemonLogsCmd.Flags().IntVarP(&daemonLogsFlagTail, "tail", "n", 20,
		"Number of lines to show")
	daemonLogsCmd.Flags().BoolVar(&daemonLogsFlagFollow, "follow", false,
		"Follow log output (like tail -f)")

	daemonInstallCmd.Flags().BoolVar(&daemonInstallFlagForce, "force", false,
		"Force reinstall if already installed")
	daemonInstallCmd.Flags().BoolVar(&daemonFlagServe, "serve", false,
		"Also run the HTTP API")

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonLogsCmd)
	daemonCmd.AddCommand(daemonInstallCmd)
	daemonCmd.AddCommand(daemonUninstallCmd)

	rootCmd.AddCommand(daemonCmd)
}

func daemonOptions() daemon.Options {
	return daemon.Options{
		Version: Version,
		Serve:   daemonFlagServe,
		Debug:   flagDebug,
	}
}

// runDaemonStart handles the daemon start command.
func runDaemonStart(cmd *cobra.Command, args []string) error {
	f := newFormatter(cmd)

	if !daemonStartFlagForeground {
		// The child opens the database; this process must not.
		d := daemon.NewDaemon(nil, daemonOptions())
		var extra []string
		if flagConfig != "" {
			extra = append(extra, "--config", flagConfig)
		}

		pid, err := d.StartBackground(extra...)
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return fmt.Errorf("daemon is already running (PID: %d)", pid)
		}
		if err != nil {
			return err
		}

		if f.Format == output.FormatJSON {
			return f.PrintJSON(map[string]any{"status": "started", "pid": pid, "log": d.LogPath()})
		}
		f.Println("Starting bikeguard daemon...")
		f.Printf("Daemon started (PID: %d)\n", pid)
		f.Printf("Logs: %s\n", d.LogPath())
		return nil
	}

	if !flagDebug {
		logging.Init(logging.DaemonConfig(os.Stderr))
	}

	d := daemon.NewDaemon(ctx, daemonOptions())
	if d.IsRunning() {
		return fmt.Errorf("daemon is already running (PID: %d)", d.GetStatus().PID)
	}

	contacts, err := ctx.Profiles.Contacts()
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		logging.Warn("no emergency contacts configured; alerts will only reach webhooks")
	}

	if !ctx.IsJSON() {
		ctx.Formatter.Println("Starting bikeguard daemon (foreground mode)...")
	}
	return d.Start(commandContext(cmd))
}

// runDaemonStop handles the daemon stop command.
func runDaemonStop(cmd *cobra.Command, args []string) error {
	f := newFormatter(cmd)
	d := daemon.NewDaemon(nil, daemon.Options{})

	status := d.GetStatus()
	if !status.Running {
		if f.Format == output.FormatJSON {
			return f.PrintJSON(map[string]any{"status": "not_running"})
		}
		f.Println("Daemon is not running")
		return nil
	}

	if f.Format != output.FormatJSON {
		f.Println("Stopping bikeguard daemon...")
	}
	if err := d.Stop(); err != nil {
		return err
	}

	if f.Format == output.FormatJSON {
		return f.PrintJSON(map[string]any{"status": "stopped", "pid": status.PID})
	}
	f.Printf("Daemon stopped (was PID: %d)\n", status.PID)
	return nil
}

// runDaemonStatus handles the daemon status command.
func runDaemonStatus(cmd *cobra.Command, args []string) error {
	f := newFormatter(cmd)
	status := daemon.NewDaemon(nil, daemon.Options{}).GetStatus()

	if f.Format == output.FormatJSON {
		return f.PrintJSON(status)
	}

	f.Println("BikeGuard Daemon Status")
	f.Println("")

	if !status.Running {
		f.Printf("  Status:    stopped\n")
		f.Println("")
		f.Println("Start with: bikeguard daemon start")
		return nil
	}

	f.Printf("  Status:    running\n")
	f.Printf("  PID:       %d\n", status.PID)
	if status.Uptime != "" {
		f.Printf("  Uptime:    %s\n", status.Uptime)
	}
	if status.Server != "" {
		f.Printf("  API:       http://%s\n", status.Server)
	}
	if st := status.Guard; st != nil {
		f.Printf("  Guard:     %s\n", st.State)
		f.Printf("  Sensor:    %s\n", st.SensorStatus)
		f.Printf("  GPS:       %s\n", st.GPSStatus)
	}
	if h := status.Health; h != nil {
		f.Printf("  Health:    %s\n", h.Status)
		for _, c := range h.Checks {
			if !c.Healthy {
				f.Printf("    %s: %s\n", c.Name, c.Error)
			}
		}
	}
	if m := status.Metrics; m != nil {
		f.Printf("  Samples:   %d\n", m.SamplesProcessed)
		f.Printf("  Impacts:   %d (%d cancelled, %d sent)\n", m.ImpactsDetected, m.AlertsCancelled, m.AlertsSent)
	}
	return nil
}

// runDaemonLogs handles the daemon logs command.
func runDaemonLogs(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	logPath := daemon.GetLogPath()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No log file found.")
		fmt.Fprintf(out, "Log path: %s\n", logPath)
		return nil
	}

	lines, err := daemon.TailLog(logPath, daemonLogsFlagTail)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}

	if daemonLogsFlagFollow {
		sigs := daemon.NewSignalHandler()
		sigs.Setup()
		defer sigs.Cleanup()
		c, cancel := sigs.Context(commandContext(cmd))
		defer cancel()
		return followLog(c, logPath, out)
	}
	return nil
}

// followLog copies data appended to path until c is done.
func followLog(c context.Context, path string, out io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, err := io.Copy(out, file); err != nil {
			return err
		}
		select {
		case <-c.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// runDaemonInstall handles the daemon install command.
func runDaemonInstall(cmd *cobra.Command, args []string) error {
	f := newFormatter(cmd)
	asJSON := f.Format == output.FormatJSON

	mgr, err := daemon.NewServiceManager()
	if err != nil {
		return err
	}
	mgr.SetDebug(flagDebug)
	mgr.Serve = daemonFlagServe

	if mgr.IsInstalled() && !daemonInstallFlagForce {
		if asJSON {
			return f.PrintJSON(map[string]any{
				"status": "already_installed",
				"path":   mgr.Path(),
			})
		}
		f.Println("Service is already installed.")
		f.Println("Use --force to reinstall.")
		return nil
	}

	if mgr.IsInstalled() {
		if !asJSON {
			f.Println("Removing existing service...")
		}
		if err := mgr.Uninstall(); err != nil {
			return fmt.Errorf("failed to remove existing service: %w", err)
		}
	}

	if !asJSON {
		f.Println("Installing BikeGuard daemon as system service...")
	}
	if err := mgr.Install(); err != nil {
		return err
	}

	if asJSON {
		return f.PrintJSON(map[string]any{
			"status":  "installed",
			"path":    mgr.Path(),
			"message": "Service will start automatically on login",
		})
	}

	f.Println("")
	output.NewCLIFormatter(f).Success("Service installed successfully")
	f.Println("")
	f.Printf("Service file: %s\n", mgr.Path())
	f.Println("The daemon will now start automatically when you log in.")
	f.Println("To remove: bikeguard daemon uninstall")
	return nil
}

// runDaemonUninstall handles the daemon uninstall command.
func runDaemonUninstall(cmd *cobra.Command, args []string) error {
	f := newFormatter(cmd)
	asJSON := f.Format == output.FormatJSON

	mgr, err := daemon.NewServiceManager()
	if err != nil {
		return err
	}
	mgr.SetDebug(flagDebug)

	if !mgr.IsInstalled() {
		if asJSON {
			return f.PrintJSON(map[string]any{
				"status": "not_installed",
			})
		}
		f.Println("Service is not installed.")
		return nil
	}

	d := daemon.NewDaemon(nil, daemon.Options{})
	if d.IsRunning() {
		if !asJSON {
			f.Println("Stopping running daemon...")
		}
		if err := d.Stop(); err != nil {
			logging.Warn("failed to stop daemon", logging.KeyError, err)
		}
	}

	if !asJSON {
		f.Println("Uninstalling BikeGuard daemon service...")
	}
	if err := mgr.Uninstall(); err != nil {
		return err
	}

	if asJSON {
		return f.PrintJSON(map[string]any{
			"status": "uninstalled",
		})
	}

	f.Println("")
	output.NewCLIFormatter(f).Success("Service uninstalled successfully")
	f.Println("")
	f.Println("The daemon will no longer start automatically.")
	f.Println("To reinstall: bikeguard daemon install")
	return nil
}
