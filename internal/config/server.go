package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig is the top-level structure for server.yaml. It covers the
// process-level settings that never change at runtime; analysis tuning
// lives in the separate JSON tuning file.
type ServerConfig struct {
	Server struct {
		ListenAddr      string `yaml:"listen_addr"`
		ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
		WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	} `yaml:"server"`
	Storage struct {
		DBPath     string `yaml:"db_path"`
		ReportsDir string `yaml:"reports_dir"`
	} `yaml:"storage"`
	TuningPath string `yaml:"tuning_path"`
}

// DefaultServerConfig returns the configuration used when no YAML file is
// supplied.
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.Server.ListenAddr = ":8080"
	cfg.Server.ReadTimeoutSec = 30
	cfg.Server.WriteTimeoutSec = 60
	cfg.Storage.DBPath = "trajectory.db"
	cfg.Storage.ReportsDir = "reports"
	return cfg
}

// LoadServerConfig reads and parses server.yaml. Fields omitted from the
// file keep their defaults.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read server config: %w", err)
	}
	cfg := DefaultServerConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse server config: %w", err)
	}
	if cfg.Server.ListenAddr == "" {
		return nil, fmt.Errorf("listen_addr must not be empty")
	}
	return cfg, nil
}
