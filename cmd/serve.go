package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/bikeguard/internal/daemon"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/notify"
	"github.com/manav03panchal/bikeguard/internal/runtime"
	"github.com/manav03panchal/bikeguard/internal/sensor"
	"github.com/manav03panchal/bikeguard/internal/server"
)

// Serve command flags.
var (
	serveFlagAddr     string
	serveFlagActivate bool
)

// serveCmd runs the HTTP API and live event stream in the foreground.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and live event stream",
	Long: `Run the guard with its HTTP API in the foreground.

The API controls protection, manages contacts and settings, accepts motion
samples at /api/motion and streams guard events over a WebSocket at /ws.

Examples:
  bikeguard serve
  bikeguard serve --addr :9090 --activate`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlagAddr, "addr", "",
		"Listen address (default from config, 127.0.0.1:8737)")
	serveCmd.Flags().BoolVar(&serveFlagActivate, "activate", false,
		"Turn protection on at startup")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := ctx.Config.Server
	if serveFlagAddr != "" {
		cfg.Addr = serveFlagAddr
	}

	notifier := notify.NewDesktop(ctx.Config.Alert.Desktop)
	motion := sensor.NewChanSource(64)
	stack, err := ctx.BuildStack(runtime.StackOptions{Notifier: notifier, Extra: motion})
	if err != nil {
		return err
	}

	sigs := daemon.NewSignalHandler()
	sigs.Setup()
	defer sigs.Cleanup()
	runCtx, cancel := sigs.Context(commandContext(cmd))
	defer cancel()

	srv := server.New(server.Options{
		Config:    cfg,
		Guard:     stack.Guard,
		Profiles:  ctx.Profiles,
		Incidents: ctx.Incidents,
		Motion:    motion,
		Notifier:  notifier,
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
		cancel()
	}()

	done := make(chan error, 1)
	go func() { done <- stack.Run(runCtx) }()

	if serveFlagActivate {
		stack.Guard.Activate()
	}
	if !ctx.IsJSON() {
		ctx.Formatter.Printf("BikeGuard API listening on http://%s (Ctrl+C to stop)\n", cfg.Addr)
	}

	<-runCtx.Done()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("api server shutdown", logging.KeyError, err)
	}
	<-done

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}
