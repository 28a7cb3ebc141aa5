// Package config carries the runtime settings of server and client.
// Values come from defaults, then an optional YAML file, then
// environment variables, each layer overriding the previous.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults. Text on the wire is always UTF-8; it is not configurable.
const (
	DefaultHost         = "localhost"
	DefaultPort         = 5000
	DefaultSyncInterval = 5 * time.Second
	DefaultMaxDriftMs   = 2000
)

type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// HTTPAddr enables the websocket gateway (/ws, /health, /stats)
	// when non-empty, e.g. ":8080".
	HTTPAddr string `yaml:"http_addr"`

	// SyncInterval is the pause between automatic client resyncs.
	SyncInterval time.Duration `yaml:"sync_interval"`

	// Clock drift simulation, client demo only.
	DriftSimulation bool  `yaml:"drift_simulation"`
	MaxDriftMs      int64 `yaml:"max_drift_ms"`
}

func Default() *Config {
	return &Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		SyncInterval: DefaultSyncInterval,
		MaxDriftMs:   DefaultMaxDriftMs,
	}
}

// Load builds the config from defaults, the YAML file at path (skipped
// when path is empty) and environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.fromEnv()
	return cfg, nil
}

func (c *Config) fromEnv() {
	if v := os.Getenv("HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SyncInterval = d
		}
	}
}

// Addr is the TCP listen/dial address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
