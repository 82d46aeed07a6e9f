// Package config provides centralized configuration for BikeGuard runtime values.
package config

import (
	"os"
	"strconv"
	"time"
)

// RuntimeConfig holds every tunable that is not part of the rider's profile.
// Threshold, countdown and alarm toggles live in the persisted profile instead.
type RuntimeConfig struct {
	Daemon     DaemonConfig     `yaml:"daemon" koanf:"daemon"`
	HTTP       HTTPConfig       `yaml:"http" koanf:"http"`
	RetryQueue RetryQueueConfig `yaml:"retry_queue" koanf:"retry_queue"`
	Storage    StorageConfig    `yaml:"storage" koanf:"storage"`
	Detection  DetectionConfig  `yaml:"detection" koanf:"detection"`
	Alert      AlertConfig      `yaml:"alert" koanf:"alert"`
	MQTT       MQTTConfig       `yaml:"mqtt" koanf:"mqtt"`
	Sensor     SensorConfig     `yaml:"sensor" koanf:"sensor"`
	Location   LocationConfig   `yaml:"location" koanf:"location"`
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Schedule   ScheduleConfig   `yaml:"schedule" koanf:"schedule"`
}

// DaemonConfig holds daemon-related configuration.
type DaemonConfig struct {
	// StartupWait is how long `daemon start` waits before checking the child.
	StartupWait time.Duration `yaml:"startup_wait" koanf:"startup_wait"`
	// KillTimeout is the grace period before SIGKILL.
	KillTimeout time.Duration `yaml:"kill_timeout" koanf:"kill_timeout"`
}

// HTTPConfig holds webhook client configuration.
type HTTPConfig struct {
	Timeout     time.Duration   `yaml:"timeout" koanf:"timeout"`
	MaxRetries  int             `yaml:"max_retries" koanf:"max_retries"`
	RetryDelays []time.Duration `yaml:"retry_delays" koanf:"retry_delays"`
}

// RetryQueueConfig holds retry queue configuration.
type RetryQueueConfig struct {
	CheckInterval   time.Duration   `yaml:"check_interval" koanf:"check_interval"`
	BackoffSchedule []time.Duration `yaml:"backoff_schedule" koanf:"backoff_schedule"`
}

// StorageConfig holds storage-related configuration.
type StorageConfig struct {
	// MinFreeSpace is the minimum free space required for write operations.
	MinFreeSpace uint64 `yaml:"min_free_space" koanf:"min_free_space"`
	// MinFreeSpaceWarning is the threshold for warning about low disk space.
	MinFreeSpaceWarning uint64 `yaml:"min_free_space_warning" koanf:"min_free_space_warning"`
}

// DetectionConfig holds the fixed parts of the impact heuristic.
type DetectionConfig struct {
	// WarmUp is how long after activation readings are ignored.
	WarmUp        time.Duration `yaml:"warm_up" koanf:"warm_up"`
	JerkThreshold float64       `yaml:"jerk_threshold" koanf:"jerk_threshold"`
	HistoryLength int           `yaml:"history_length" koanf:"history_length"`
}

// AlertConfig controls how emergency messages leave the machine.
type AlertConfig struct {
	SMSFallback      bool          `yaml:"sms_fallback" koanf:"sms_fallback"`
	SMSFallbackDelay time.Duration `yaml:"sms_fallback_delay" koanf:"sms_fallback_delay"`
	// Opener overrides the platform URL opener (xdg-open, open, rundll32).
	Opener  string `yaml:"opener" koanf:"opener"`
	Desktop bool   `yaml:"desktop_notifications" koanf:"desktop_notifications"`
}

// MQTTConfig is shared by the MQTT sensor and location sources.
type MQTTConfig struct {
	Broker   string `yaml:"broker" koanf:"broker"`
	ClientID string `yaml:"client_id" koanf:"client_id"`
	Username string `yaml:"username" koanf:"username"`
	Password string `yaml:"password" koanf:"password"`
}

// SensorConfig selects the accelerometer source.
type SensorConfig struct {
	// Source is one of "mqtt", "replay" or "none".
	Source string `yaml:"source" koanf:"source"`
	Topic  string `yaml:"topic" koanf:"topic"`
	// LSBPerG scales raw IMU counts ({"ax","ay","az"}) to g.
	LSBPerG     float64 `yaml:"lsb_per_g" koanf:"lsb_per_g"`
	ReplayFile  string  `yaml:"replay_file" koanf:"replay_file"`
	ReplaySpeed float64 `yaml:"replay_speed" koanf:"replay_speed"`
}

// LocationConfig selects the position source.
type LocationConfig struct {
	// Source is one of "nmea", "mqtt", "static" or "none".
	Source     string        `yaml:"source" koanf:"source"`
	SerialPort string        `yaml:"serial_port" koanf:"serial_port"`
	BaudRate   uint          `yaml:"baud_rate" koanf:"baud_rate"`
	Topic      string        `yaml:"topic" koanf:"topic"`
	Latitude   float64       `yaml:"latitude" koanf:"latitude"`
	Longitude  float64       `yaml:"longitude" koanf:"longitude"`
	Accuracy   float64       `yaml:"accuracy" koanf:"accuracy"`
	MaxAge     time.Duration `yaml:"max_age" koanf:"max_age"`
	Timeout    time.Duration `yaml:"timeout" koanf:"timeout"`
}

// ServerConfig holds the HTTP API settings used by `serve`.
type ServerConfig struct {
	Addr           string   `yaml:"addr" koanf:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}

// ScheduleConfig holds optional cron expressions that toggle protection.
// Five-field specs are accepted as well as six-field ones with seconds.
type ScheduleConfig struct {
	ArmAt    string `yaml:"arm_at" koanf:"arm_at"`
	DisarmAt string `yaml:"disarm_at" koanf:"disarm_at"`
	// SummaryAt sends a digest of recent incidents to webhooks.
	SummaryAt string `yaml:"summary_at" koanf:"summary_at"`
	// StaleAfter is how long protection may run without samples before the
	// rider is warned.
	StaleAfter time.Duration `yaml:"stale_after" koanf:"stale_after"`
}

// DefaultRuntimeConfig returns the default runtime configuration.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		Daemon: DaemonConfig{
			StartupWait: 500 * time.Millisecond,
			KillTimeout: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:    15 * time.Second,
			MaxRetries: 3,
			RetryDelays: []time.Duration{
				0,
				2 * time.Second,
				10 * time.Second,
			},
		},
		RetryQueue: RetryQueueConfig{
			CheckInterval: 15 * time.Second,
			BackoffSchedule: []time.Duration{
				5 * time.Second,
				30 * time.Second,
				2 * time.Minute,
				5 * time.Minute,
				15 * time.Minute,
			},
		},
		Storage: StorageConfig{
			MinFreeSpace:        10 * 1024 * 1024,
			MinFreeSpaceWarning: 50 * 1024 * 1024,
		},
		Detection: DetectionConfig{
			WarmUp:        3 * time.Second,
			JerkThreshold: 1.5,
			HistoryLength: 10,
		},
		Alert: AlertConfig{
			SMSFallback:      true,
			SMSFallbackDelay: 2 * time.Second,
			Desktop:          true,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "bikeguard",
		},
		Sensor: SensorConfig{
			Source:      "none",
			Topic:       "bike/imu",
			LSBPerG:     16384,
			ReplaySpeed: 1,
		},
		Location: LocationConfig{
			Source:   "none",
			BaudRate: 9600,
			Topic:    "bike/gps",
			MaxAge:   10 * time.Second,
			Timeout:  5 * time.Second,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8737",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Schedule: ScheduleConfig{
			StaleAfter: 30 * time.Second,
		},
	}
}

// Global holds the process-wide runtime configuration.
// It starts from defaults plus BIKEGUARD_* overrides; the CLI replaces it
// with the result of Load once flags are parsed.
var Global = initGlobal()

func initGlobal() *RuntimeConfig {
	cfg := DefaultRuntimeConfig()
	cfg.loadFromEnv()
	return cfg
}

func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// loadFromEnv applies the flat BIKEGUARD_* overrides.
func (c *RuntimeConfig) loadFromEnv() {
	envDuration("BIKEGUARD_DAEMON_STARTUP_WAIT", &c.Daemon.StartupWait)
	envDuration("BIKEGUARD_DAEMON_KILL_TIMEOUT", &c.Daemon.KillTimeout)
	envDuration("BIKEGUARD_HTTP_TIMEOUT", &c.HTTP.Timeout)
	if v := os.Getenv("BIKEGUARD_HTTP_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.HTTP.MaxRetries = n
		}
	}
	envDuration("BIKEGUARD_RETRY_QUEUE_INTERVAL", &c.RetryQueue.CheckInterval)

	if v := os.Getenv("BIKEGUARD_MIN_FREE_SPACE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Storage.MinFreeSpace = n
		}
	}
	if v := os.Getenv("BIKEGUARD_MIN_FREE_SPACE_WARNING"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Storage.MinFreeSpaceWarning = n
		}
	}

	envDuration("BIKEGUARD_WARM_UP", &c.Detection.WarmUp)
	if v := os.Getenv("BIKEGUARD_SMS_FALLBACK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Alert.SMSFallback = b
		}
	}
	envString("BIKEGUARD_OPENER", &c.Alert.Opener)
	envString("BIKEGUARD_MQTT_BROKER", &c.MQTT.Broker)
	envString("BIKEGUARD_SENSOR_SOURCE", &c.Sensor.Source)
	envString("BIKEGUARD_LOCATION_SOURCE", &c.Location.Source)
	envString("BIKEGUARD_SERVER_ADDR", &c.Server.Addr)
}

// ReloadFromEnv re-applies environment overrides.
func (c *RuntimeConfig) ReloadFromEnv() {
	c.loadFromEnv()
}

// Reset restores defaults. Used by tests.
func (c *RuntimeConfig) Reset() {
	*c = *DefaultRuntimeConfig()
}
