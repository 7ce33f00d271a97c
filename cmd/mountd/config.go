package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ugoe-astro/cgem_interface/cgem"
)

// SiteConfig is the observing site, east-positive longitude.
type SiteConfig struct {
	LatitudeDeg  float64 `yaml:"latitude_deg"`
	LongitudeDeg float64 `yaml:"longitude_deg"`
	HeightM      float64 `yaml:"height_m"`
}

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type PowerConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Site   SiteConfig   `yaml:"site"`
	// Power is optional; nil disables the relay board.
	Power *PowerConfig `yaml:"power,omitempty"`

	HTTPAddr string `yaml:"http_addr"`
	CtlAddr  string `yaml:"ctl_addr"`

	PollIntervalMs int `yaml:"poll_interval_ms"`

	// InitCommands and AlignCommands are replayed through the link,
	// in order, at startup.
	InitCommands  []cgem.NamedFrame `yaml:"init_commands"`
	AlignCommands []cgem.NamedFrame `yaml:"align_commands"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	// serial.port is only needed for a real mount; the daemon checks
	// it when it is not simulating.
	if cfg.Serial.Baud <= 0 {
		cfg.Serial.Baud = 9600
	}
	if cfg.Site.LatitudeDeg < -90 || cfg.Site.LatitudeDeg > 90 {
		return nil, fmt.Errorf("site.latitude_deg out of range: %v", cfg.Site.LatitudeDeg)
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = "127.0.0.1:8502"
	}
	if cfg.CtlAddr == "" {
		cfg.CtlAddr = "127.0.0.1:4533"
	}
	if cfg.PollIntervalMs <= 0 {
		cfg.PollIntervalMs = 1000
	}
	if cfg.Power != nil && cfg.Power.Baud <= 0 {
		cfg.Power.Baud = 19200
	}
	return &cfg, nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}
