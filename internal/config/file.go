package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore: BIKEGUARD_SENSOR__TOPIC sets sensor.topic.
const EnvPrefix = "BIKEGUARD_"

// DefaultPath returns $XDG_CONFIG_HOME/bikeguard/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "bikeguard", "config.yaml")
}

// Load reads configuration from the given YAML file (a missing file is not
// an error), then overlays environment overrides.
func Load(path string) (*RuntimeConfig, error) {
	k := koanf.New(".")
	cfg := DefaultRuntimeConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps BIKEGUARD_LOCATION__SERIAL_PORT to location.serial_port.
// Flat names without "__" map to top-level keys nothing reads, so the flat
// overrides in loadFromEnv keep working alongside.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration as YAML.
func (c *RuntimeConfig) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var (
	validSensorSources   = map[string]bool{"mqtt": true, "replay": true, "none": true}
	validLocationSources = map[string]bool{"nmea": true, "mqtt": true, "static": true, "none": true}
)

// Validate checks that the configuration contains usable values.
func (c *RuntimeConfig) Validate() error {
	if !validSensorSources[c.Sensor.Source] {
		return fmt.Errorf("invalid sensor.source %q: must be one of mqtt, replay, none", c.Sensor.Source)
	}
	if c.Sensor.Source == "replay" && c.Sensor.ReplayFile == "" {
		return fmt.Errorf("sensor.replay_file is required when sensor.source is replay")
	}
	if c.Sensor.LSBPerG <= 0 {
		return fmt.Errorf("sensor.lsb_per_g must be positive")
	}
	if c.Sensor.ReplaySpeed < 0 {
		return fmt.Errorf("sensor.replay_speed must be non-negative")
	}
	if !validLocationSources[c.Location.Source] {
		return fmt.Errorf("invalid location.source %q: must be one of nmea, mqtt, static, none", c.Location.Source)
	}
	if c.Location.Source == "nmea" && c.Location.SerialPort == "" {
		return fmt.Errorf("location.serial_port is required when location.source is nmea")
	}
	if c.Location.Source == "static" && (c.Location.Latitude < -90 || c.Location.Latitude > 90 ||
		c.Location.Longitude < -180 || c.Location.Longitude > 180) {
		return fmt.Errorf("location latitude/longitude out of range")
	}
	if c.Detection.HistoryLength < 2 {
		return fmt.Errorf("detection.history_length must be at least 2")
	}
	if c.Detection.WarmUp < 0 {
		return fmt.Errorf("detection.warm_up must be non-negative")
	}
	return nil
}
