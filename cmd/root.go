// Package cmd provides the CLI commands for BikeGuard.
package cmd

import (
	"context"
	"sync"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/manav03panchal/bikeguard/internal/daemon"
	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/output"
	"github.com/manav03panchal/bikeguard/internal/runtime"
)

// Version information (set at build time via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Global flags.
var (
	flagFormat string
	flagColor  string
	flagDebug  bool
	flagConfig string
)

// ctx is the shared runtime context.
var ctx *runtime.Context

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bikeguard",
	Short: "Crash detection and emergency alerts for cyclists",
	Long: `BikeGuard watches an accelerometer for crash-like impacts. When one is
detected it sounds an alarm and counts down; unless you cancel, your
emergency contacts are messaged with your location.

Examples:
  bikeguard contact add "Sam Rider" "+1 555 0100"
  bikeguard settings threshold 4.5
  bikeguard monitor
  bikeguard test
  bikeguard daemon start --serve
  bikeguard incidents --since "last week"`,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeRuntime()
	},
	RunE: runStatus,
}

// needsRuntime reports whether cmd opens the database up front. Process
// management commands must not, since the running daemon holds the lock.
func needsRuntime(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "completion", "help", "version", "__complete":
		return false
	}
	if cmd == rootCmd || cmd == daemonCmd {
		return false
	}
	if cmd.Parent() == daemonCmd {
		switch cmd.Name() {
		case "stop", "status", "logs", "install", "uninstall":
			return false
		case "start":
			return daemonStartFlagForeground
		}
	}
	return true
}

// newFormatter builds a formatter from the global flags.
func newFormatter(cmd *cobra.Command) *output.Formatter {
	f := output.NewFormatter()
	f.Writer = cmd.OutOrStdout()

	switch flagFormat {
	case "json":
		f.Format = output.FormatJSON
	case "plain":
		f.Format = output.FormatPlain
	default:
		f.Format = output.FormatCLI
	}

	switch flagColor {
	case "always":
		f.ColorMode = output.ColorAlways
	case "never":
		f.ColorMode = output.ColorNever
	default:
		f.ColorMode = output.ColorAuto
	}
	return f
}

// openRuntime loads the config and opens the database.
func openRuntime(cmd *cobra.Command) error {
	if ctx != nil {
		return nil
	}
	f := newFormatter(cmd)

	opts := runtime.DefaultOptions()
	opts.Format = f.Format
	opts.ColorMode = f.ColorMode
	opts.Debug = flagDebug
	if flagConfig != "" {
		opts.ConfigPath = flagConfig
	}

	rt, err := runtime.New(opts)
	if err != nil {
		return err
	}
	rt.Formatter.Writer = f.Writer
	ctx = rt
	return nil
}

func closeRuntime() error {
	if ctx == nil {
		return nil
	}
	err := ctx.Close()
	ctx = nil
	return err
}

// runStatus shows protection status. A running daemon's state wins over the
// stored profile, and its database lock is left alone.
func runStatus(cmd *cobra.Command, args []string) error {
	if ds := daemon.NewDaemon(nil, daemon.Options{}).GetStatus(); ds.Running && ds.Guard != nil {
		return printStatus(newFormatter(cmd), *ds.Guard)
	}

	if err := openRuntime(cmd); err != nil {
		return err
	}
	profile, err := ctx.Profiles.Get()
	if err != nil {
		return err
	}
	return printStatus(ctx.Formatter, guard.New(guard.Options{Profile: profile}).Status())
}

func printStatus(f *output.Formatter, st guard.Status) error {
	if f.Format == output.FormatJSON {
		return output.NewJSONFormatter(f).PrintStatus(st)
	}
	output.NewCLIFormatter(f).PrintStatus(st)
	return nil
}

var wrapOnce sync.Once

// Execute runs the root command.
func Execute() error {
	wrapOnce.Do(func() { withSuggestions(rootCmd) })
	err := fang.Execute(context.Background(), rootCmd,
		fang.WithVersion(Version),
		fang.WithCommit(Commit),
	)
	if cerr := closeRuntime(); err == nil {
		err = cerr
	}
	return err
}

func init() {
	// Assigned here rather than in the literal: needsRuntime refers to
	// rootCmd, which would otherwise be an initialization cycle.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if flagDebug {
			logging.InitDebug()
		}
		if !needsRuntime(cmd) {
			return nil
		}
		return openRuntime(cmd)
	}

	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "cli",
		"Output format: cli, json, plain")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto",
		"Color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"Config file (default $XDG_CONFIG_HOME/bikeguard/config.yaml)")

	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("bikeguard %s\n", Version)
		cmd.Printf("  commit: %s\n", Commit)
		cmd.Printf("  built: %s\n", BuildTime)
	},
}

// withSuggestions wraps every command so returned errors carry their
// suggestion. In JSON mode the error is also written as a JSON object.
func withSuggestions(root *cobra.Command) {
	for _, c := range root.Commands() {
		withSuggestions(c)
	}
	run := root.RunE
	if run == nil {
		return
	}
	root.RunE = func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if err == nil {
			return nil
		}
		logging.DebugLog("command failed", "cmd", cmd.CommandPath(),
			"chain", errors.Chain(err), "root_cause", errors.RootCause(err).Error())
		if ctx != nil && ctx.IsJSON() {
			_ = ctx.JSONFormatter().PrintError("error", err.Error(), errors.GetSuggestion(err))
		}
		return &suggestedError{err: err}
	}
}

// suggestedError renders the wrapped error with its suggestion.
type suggestedError struct {
	err error
}

func (e *suggestedError) Error() string { return runtime.FormatError(e.err) }

func (e *suggestedError) Unwrap() error { return e.err }
