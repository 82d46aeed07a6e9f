package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/notify"
	"github.com/manav03panchal/bikeguard/internal/runtime"
	"github.com/manav03panchal/bikeguard/internal/scheduler"
	"github.com/manav03panchal/bikeguard/internal/sensor"
	"github.com/manav03panchal/bikeguard/internal/server"
	"github.com/manav03panchal/bikeguard/internal/storage"
)

// Options configures a daemon.
type Options struct {
	Version string
	// Serve also runs the HTTP API.
	Serve bool
	Debug bool
	// Dir holds the PID, state and log files; GetLogDir when empty.
	Dir string
	// StateInterval is how often the state file is refreshed.
	StateInterval time.Duration
}

// Daemon runs the guard in the background and manages its process.
type Daemon struct {
	rt        *runtime.Context
	opts      Options
	pidFile   *PIDFile
	statePath string
	health    *HealthChecker
	metrics   *Metrics
}

// Status is what `daemon status` reports.
type Status struct {
	Running   bool             `json:"running"`
	PID       int              `json:"pid,omitempty"`
	StartedAt time.Time        `json:"started_at,omitzero"`
	Uptime    string           `json:"uptime,omitempty"`
	Server    string           `json:"server,omitempty"`
	Guard     *guard.Status    `json:"guard,omitempty"`
	Health    *HealthStatus    `json:"health,omitempty"`
	Metrics   *MetricsSnapshot `json:"metrics,omitempty"`
}

// DaemonState is written by the running daemon for other processes to read.
type DaemonState struct {
	PID       int              `json:"pid"`
	StartedAt time.Time        `json:"started_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Server    string           `json:"server,omitempty"`
	Guard     *guard.Status    `json:"guard,omitempty"`
	Health    *HealthStatus    `json:"health,omitempty"`
	Metrics   *MetricsSnapshot `json:"metrics,omitempty"`
}

// NewDaemon creates a daemon manager. rt is only needed by Start; status and
// stop work without a database.
func NewDaemon(rt *runtime.Context, opts Options) *Daemon {
	if opts.Dir == "" {
		opts.Dir = GetLogDir()
	}
	if opts.StateInterval <= 0 {
		opts.StateInterval = 5 * time.Second
	}
	return &Daemon{
		rt:        rt,
		opts:      opts,
		pidFile:   NewPIDFileAt(filepath.Join(opts.Dir, PIDFileName)),
		statePath: filepath.Join(opts.Dir, "daemon.json"),
		health:    NewHealthChecker(opts.Version),
		metrics:   NewMetrics(),
	}
}

// LogPath returns the daemon log path.
func (d *Daemon) LogPath() string {
	return filepath.Join(d.opts.Dir, "daemon.log")
}

// Metrics returns the daemon's metrics.
func (d *Daemon) Metrics() *Metrics {
	return d.metrics
}

// Health returns the daemon's health checker.
func (d *Daemon) Health() *HealthChecker {
	return d.health
}

// IsRunning returns true if the daemon is running.
func (d *Daemon) IsRunning() bool {
	return d.pidFile.IsRunning()
}

// GetStatus returns the current daemon status.
func (d *Daemon) GetStatus() *Status {
	status := &Status{}

	pid := d.pidFile.GetRunningPID()
	if pid == 0 {
		return status
	}
	status.Running = true
	status.PID = pid

	if state, err := d.readState(); err == nil {
		status.StartedAt = state.StartedAt
		status.Uptime = formatUptime(time.Since(state.StartedAt))
		status.Server = state.Server
		status.Guard = state.Guard
		status.Health = state.Health
		status.Metrics = state.Metrics
	}
	return status
}

// Start runs the daemon in the foreground until ctx is done or a shutdown
// signal arrives. Protection starts inactive unless the schedule arms it.
func (d *Daemon) Start(ctx context.Context) error {
	if d.rt == nil {
		return fmt.Errorf("daemon: no runtime context")
	}
	if d.IsRunning() {
		return ErrAlreadyRunning
	}
	if err := d.pidFile.Write(); err != nil {
		return err
	}
	defer d.pidFile.Remove()
	defer d.removeState()

	cfg := d.rt.Config
	startedAt := time.Now()

	if _, err := scheduler.RecoverPending(d.rt.Incidents, startedAt); err != nil {
		logging.Warn("could not recover pending incidents", logging.KeyError, err)
	}

	notifier := notify.NewDesktop(cfg.Alert.Desktop)
	stackOpts := runtime.StackOptions{
		Notifier:   notifier,
		Bell:       io.Discard,
		OnDispatch: d.metrics.RecordDispatch,
	}
	var motion *sensor.ChanSource
	if d.opts.Serve {
		motion = sensor.NewChanSource(64)
		stackOpts.Extra = motion
	}

	stack, err := d.rt.BuildStack(stackOpts)
	if err != nil {
		return err
	}
	unsubscribe := stack.Guard.Subscribe(d.metrics.Observe)
	defer unsubscribe()

	d.health.SetPendingFunc(stack.Queue.Pending)
	d.health.AddCheck("sensor", sensorCheck(stack.Guard))
	d.health.AddCheck("storage", func() error {
		return storage.CheckDiskSpace(d.rt.DB.Path())
	})

	sched := scheduler.NewScheduler(stack.Guard)
	sched.SetWatchdog(scheduler.NewWatchdog(stack.Guard, notifier, cfg.Schedule.StaleAfter))
	sched.SetSummaryGenerator(scheduler.NewSummaryGenerator(d.rt.Incidents, stack.Relay))
	if err := sched.Configure(cfg.Schedule); err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	sigs := NewSignalHandler()
	sigs.Setup()
	defer sigs.Cleanup()
	runCtx, cancel := sigs.Context(ctx)
	defer cancel()

	var srv *server.Server
	serverAddr := ""
	if d.opts.Serve {
		srv = server.New(server.Options{
			Config:    cfg.Server,
			Guard:     stack.Guard,
			Profiles:  d.rt.Profiles,
			Incidents: d.rt.Incidents,
			Motion:    motion,
			Notifier:  notifier,
		})
		serverAddr = cfg.Server.Addr
		go func() {
			if err := srv.Start(); err != nil {
				logging.Error("api server stopped", logging.KeyError, err)
				d.metrics.RecordError("server", err)
				cancel()
			}
		}()
	}

	done := make(chan error, 1)
	go func() { done <- stack.Run(runCtx) }()

	logging.Info("daemon started", "pid", os.Getpid(), "sensor", cfg.Sensor.Source, "location", cfg.Location.Source)

	write := func() {
		st := stack.Guard.Status()
		snap := d.metrics.Snapshot()
		if err := d.writeState(&DaemonState{
			PID:       os.Getpid(),
			StartedAt: startedAt,
			UpdatedAt: time.Now(),
			Server:    serverAddr,
			Guard:     &st,
			Health:    d.health.Check(),
			Metrics:   &snap,
		}); err != nil {
			logging.Warn("could not write daemon state", logging.KeyError, err)
		}
	}
	write()

	ticker := time.NewTicker(d.opts.StateInterval)
	defer ticker.Stop()
	for runCtx.Err() == nil {
		select {
		case <-ticker.C:
			write()
		case <-runCtx.Done():
		}
	}

	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		srv.Shutdown(shutdownCtx)
		stop()
	}
	if err := <-done; err != nil {
		logging.Warn("motion sensor was unavailable", logging.KeyError, err)
	}
	logging.Info("daemon stopped", "uptime", formatUptime(time.Since(startedAt)))
	return nil
}

func sensorCheck(g *guard.Guard) func() error {
	return func() error {
		st := g.Status()
		if st.Active && st.SensorStatus != sensor.StatusActive {
			return fmt.Errorf("protection is on but %s", strings.ToLower(st.SensorStatus))
		}
		return nil
	}
}

// StartBackground re-executes the binary as `daemon start --foreground`
// with output going to the daemon log, and returns the child's PID.
func (d *Daemon) StartBackground(extraArgs ...string) (int, error) {
	if pid := d.pidFile.GetRunningPID(); pid > 0 {
		return pid, ErrAlreadyRunning
	}

	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{"daemon", "start", "--foreground"}
	if d.opts.Serve {
		args = append(args, "--serve")
	}
	if d.opts.Debug {
		args = append(args, "--debug")
	}
	args = append(args, extraArgs...)

	cmd := exec.Command(executable, args...)
	cmd.Stdin = nil
	if log, err := OpenLog(d.LogPath()); err == nil {
		defer log.Close()
		cmd.Stdout = log.file
		cmd.Stderr = log.file
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}

	time.Sleep(config.Global.Daemon.StartupWait)

	if !d.pidFile.IsRunning() {
		if msg := d.lastLogError(); msg != "" {
			return 0, fmt.Errorf("daemon failed to start: %s", msg)
		}
		return 0, fmt.Errorf("daemon failed to start (check logs: %s)", d.LogPath())
	}
	return cmd.Process.Pid, nil
}

// lastLogError finds the most recent error line in the last lines of the log.
func (d *Daemon) lastLogError() string {
	lines, err := TailLog(d.LogPath(), 10)
	if err != nil {
		return ""
	}
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") || strings.Contains(lower, "failed to") {
			return line
		}
	}
	return ""
}

// Stop interrupts the running daemon and waits for it to exit, killing it
// after config.Global.Daemon.KillTimeout.
func (d *Daemon) Stop() error {
	pid := d.pidFile.GetRunningPID()
	if pid == 0 {
		return ErrNotRunning
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(os.Interrupt); err != nil {
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
	}

	// The daemon is not our child, so poll instead of Wait.
	deadline := time.Now().Add(config.Global.Daemon.KillTimeout)
	for IsProcessRunning(pid) && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if IsProcessRunning(pid) {
		process.Kill()
	}

	d.pidFile.Remove()
	d.removeState()
	return nil
}

func (d *Daemon) writeState(state *DaemonState) error {
	if err := os.MkdirAll(filepath.Dir(d.statePath), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	tmp := d.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, d.statePath)
}

func (d *Daemon) readState() (*DaemonState, error) {
	data, err := os.ReadFile(d.statePath)
	if err != nil {
		return nil, err
	}
	var state DaemonState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (d *Daemon) removeState() {
	if err := os.Remove(d.statePath); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove daemon state file", logging.KeyError, err, "path", d.statePath)
	}
}

// formatUptime formats a duration as uptime.
func formatUptime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if minutes := int(d.Minutes()) % 60; minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}

	days := int(d.Hours() / 24)
	if hours := int(d.Hours()) % 24; hours > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}
