package daemon

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/adrg/xdg"
)

const (
	launchdLabel = "com.bikeguard.daemon"
	systemdUnit  = "bikeguard.service"
)

// ServiceManager installs the daemon as a per-user launchd agent or systemd
// unit so protection survives logins and reboots.
type ServiceManager struct {
	executablePath string
	// Serve adds --serve to the service command line.
	Serve bool
	debug bool
	goos  string
	run   func(name string, args ...string) ([]byte, error)
}

// NewServiceManager creates a service manager for the running executable.
func NewServiceManager() (*ServiceManager, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	return &ServiceManager{
		executablePath: execPath,
		goos:           runtime.GOOS,
		run: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).CombinedOutput()
		},
	}, nil
}

// SetDebug enables debug output.
func (m *ServiceManager) SetDebug(debug bool) {
	m.debug = debug
}

// Install writes the service definition and starts it.
func (m *ServiceManager) Install() error {
	switch m.goos {
	case "darwin":
		return m.installLaunchd()
	case "linux":
		return m.installSystemd()
	default:
		return fmt.Errorf("service installation is not supported on %s", m.goos)
	}
}

// Uninstall stops the service and removes its definition.
func (m *ServiceManager) Uninstall() error {
	switch m.goos {
	case "darwin":
		return m.uninstallLaunchd()
	case "linux":
		return m.uninstallSystemd()
	default:
		return fmt.Errorf("service removal is not supported on %s", m.goos)
	}
}

// IsInstalled checks if the service definition exists.
func (m *ServiceManager) IsInstalled() bool {
	path := m.Path()
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Path returns where the service definition lives on this platform.
func (m *ServiceManager) Path() string {
	switch m.goos {
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "LaunchAgents", launchdLabel+".plist")
	case "linux":
		return filepath.Join(xdg.ConfigHome, "systemd", "user", systemdUnit)
	default:
		return ""
	}
}

// Args returns the daemon command line the service runs.
func (m *ServiceManager) Args() []string {
	args := []string{"daemon", "start", "--foreground"}
	if m.Serve {
		args = append(args, "--serve")
	}
	if m.debug {
		args = append(args, "--debug")
	}
	return args
}

type serviceData struct {
	ExecutablePath string
	Args           []string
	LogPath        string
	WorkingDir     string
	HomeDirectory  string
	DataHome       string
	StateHome      string
	ConfigHome     string
}

func (m *ServiceManager) data() serviceData {
	return serviceData{
		ExecutablePath: m.executablePath,
		Args:           m.Args(),
		LogPath:        GetLogPath(),
		WorkingDir:     filepath.Dir(m.executablePath),
		HomeDirectory:  os.Getenv("HOME"),
		DataHome:       xdg.DataHome,
		StateHome:      xdg.StateHome,
		ConfigHome:     xdg.ConfigHome,
	}
}

// macOS launchd support

var launchdTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>` + launchdLabel + `</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>
    <key>StandardErrorPath</key>
    <string>{{.LogPath}}</string>
    <key>WorkingDirectory</key>
    <string>{{.WorkingDir}}</string>
</dict>
</plist>
`))

// RenderLaunchd writes the launchd agent definition.
func (m *ServiceManager) RenderLaunchd(w io.Writer) error {
	return launchdTemplate.Execute(w, m.data())
}

func (m *ServiceManager) installLaunchd() error {
	path := m.Path()
	if err := m.writeDefinition(path, m.RenderLaunchd); err != nil {
		return err
	}
	if out, err := m.run("launchctl", "load", path); err != nil {
		return fmt.Errorf("failed to load service: %w: %s", err, string(out))
	}
	m.debugf("installed launchd agent at %s", path)
	return nil
}

func (m *ServiceManager) uninstallLaunchd() error {
	path := m.Path()
	m.run("launchctl", "unload", path) // not loaded is fine
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plist file: %w", err)
	}
	m.debugf("removed launchd agent from %s", path)
	return nil
}

// Linux systemd support

var systemdTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=BikeGuard crash detection daemon
After=network.target

[Service]
Type=simple
ExecStart={{.ExecutablePath}}{{range .Args}} {{.}}{{end}}
Restart=on-failure
RestartSec=5
StandardOutput=append:{{.LogPath}}
StandardError=append:{{.LogPath}}
Environment="HOME={{.HomeDirectory}}"
Environment="XDG_DATA_HOME={{.DataHome}}"
Environment="XDG_STATE_HOME={{.StateHome}}"
Environment="XDG_CONFIG_HOME={{.ConfigHome}}"

[Install]
WantedBy=default.target
`))

// RenderSystemd writes the systemd user unit.
func (m *ServiceManager) RenderSystemd(w io.Writer) error {
	return systemdTemplate.Execute(w, m.data())
}

func (m *ServiceManager) installSystemd() error {
	path := m.Path()
	if err := m.writeDefinition(path, m.RenderSystemd); err != nil {
		return err
	}
	for _, args := range [][]string{
		{"--user", "daemon-reload"},
		{"--user", "enable", systemdUnit},
		{"--user", "start", systemdUnit},
	} {
		if out, err := m.run("systemctl", args...); err != nil {
			return fmt.Errorf("systemctl %s failed: %w: %s", args[1], err, string(out))
		}
	}
	m.debugf("installed systemd user unit at %s", path)
	return nil
}

func (m *ServiceManager) uninstallSystemd() error {
	path := m.Path()
	// Not running or not enabled is fine.
	m.run("systemctl", "--user", "stop", systemdUnit)
	m.run("systemctl", "--user", "disable", systemdUnit)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}
	m.run("systemctl", "--user", "daemon-reload")
	m.debugf("removed systemd user unit from %s", path)
	return nil
}

func (m *ServiceManager) writeDefinition(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create service directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create service file: %w", err)
	}
	defer file.Close()
	if err := render(file); err != nil {
		return fmt.Errorf("failed to write service file: %w", err)
	}
	return nil
}

func (m *ServiceManager) debugf(format string, args ...any) {
	if m.debug {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}
