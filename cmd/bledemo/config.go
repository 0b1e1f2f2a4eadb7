package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"

	"github.com/XC-/bluedroid"
)

// Config drives the demo run. Every field has a sensible default; a YAML
// file only needs the fields it wants to override.
type Config struct {
	DeviceName  string        `yaml:"device_name" default:"BLE-Demo"`
	Appearance  string        `yaml:"appearance" default:"wrist_worn_pulse_oximeter"`
	StorageDir  string        `yaml:"storage_dir"`
	Namespace   string        `yaml:"namespace" default:"bledemo"`
	AdvInterval uint16        `yaml:"adv_interval" default:"244"`
	PeerAddress string        `yaml:"peer_address" default:"11:22:33:44:55:66"`
	Count       int           `yaml:"count" default:"5"`
	Interval    time.Duration `yaml:"interval" default:"1s"`
}

// appearances maps config names to GAP appearance values.
var appearances = map[string]bluedroid.Appearance{
	"unknown":                   bluedroid.AppearanceUnknown,
	"generic_phone":             bluedroid.AppearanceGenericPhone,
	"generic_computer":          bluedroid.AppearanceGenericComputer,
	"generic_watch":             bluedroid.AppearanceGenericWatch,
	"generic_thermometer":       bluedroid.AppearanceGenericThermometer,
	"generic_heart_rate_sensor": bluedroid.AppearanceGenericHeartRateSensor,
	"wrist_worn_pulse_oximeter": bluedroid.AppearanceWristWornPulseOximeter,
}

// appearance resolves the configured appearance name.
func (c *Config) appearance() (bluedroid.Appearance, error) {
	a, ok := appearances[c.Appearance]
	if !ok {
		return 0, fmt.Errorf("unknown appearance %q", c.Appearance)
	}
	return a, nil
}

// loadConfig fills a Config with defaults and overlays the YAML file at
// path, if any.
func loadConfig(path string) (*Config, error) {
	cfg := new(Config)
	defaults.SetDefaults(cfg)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file: %w", err)
		}
	}

	if cfg.StorageDir == "" {
		cfg.StorageDir = os.TempDir()
	}
	return cfg, nil
}
