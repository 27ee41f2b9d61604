package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File mirrors Config for the optional YAML file. Every field is a string so
// that an absent key can be told apart from a zero value; durations use
// time.ParseDuration syntax.
type File struct {
	Mongo struct {
		URI         string `yaml:"uri"`
		Database    string `yaml:"database"`
		ConnTimeout string `yaml:"conn_timeout"`
		Collection  string `yaml:"collection"`
	} `yaml:"mongo"`

	Server struct {
		Port            string `yaml:"port"`
		RequestTimeout  string `yaml:"request_timeout"`
		IdempotencyTTL  string `yaml:"idempotency_ttl"`
		MaxRequestSize  string `yaml:"max_request_size"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdleTimeout     string `yaml:"idle_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Sync struct {
		CachePath        string `yaml:"cache_path"`
		DefaultGroupCode string `yaml:"default_group_code"`
		Feed             string `yaml:"feed"`
		SnapshotTopic    string `yaml:"snapshot_topic"`
		Pulse            string `yaml:"pulse"`
		ClearConfirmTTL  string `yaml:"clear_confirm_ttl"`
		CampusTimezone   string `yaml:"campus_timezone"`
	} `yaml:"sync"`

	Summary struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"summary"`

	LogLevel string `yaml:"log_level"`
}

// LoadFile reads the YAML config at path. An empty path yields an empty File.
func LoadFile(path string) (*File, error) {
	f := &File{}
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return f, nil
}
