// Package config provides configuration management for clusterun.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration structure
type Config struct {
	Queue          string `mapstructure:"queue"`           // Batch queue to submit jobs to
	NodeSpec       string `mapstructure:"node-spec"`       // PBS node specification (deployment constant)
	QsubPath       string `mapstructure:"qsub-path"`       // Path to the queue submission command
	Executable     string `mapstructure:"executable"`      // Executable for recursive self-invocation ("" for os.Executable)
	ScriptTemplate string `mapstructure:"script-template"` // Path to a custom job script template ("" for built-in)
	Output         string `mapstructure:"output"`          // Plan output format (text, json)
	LogLevel       string `mapstructure:"log-level"`       // Log level (info, error)
	LogFormat      string `mapstructure:"log-format"`      // Log format (json, text)
	Quiet          bool   `mapstructure:"quiet"`           // Suppress non-error output
	ShowProgress   bool   `mapstructure:"progress"`        // Show progress for local runs
}

// Manager defines the interface for configuration management
type Manager interface {
	// Load reads configuration from all sources (files, env vars)
	Load() (*Config, error)

	// SetDefaults establishes default configuration values
	SetDefaults()

	// Validate ensures configuration values are valid and consistent
	Validate(config *Config) error

	// Source reports where the configuration came from, for logging
	Source() string
}

// ViperManager implements the Manager interface using Viper
type ViperManager struct {
	v *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager() Manager {
	return &ViperManager{
		v: viper.New(),
	}
}

// SetDefaults establishes default configuration values. Queue and node
// spec defaults are the deployment constants of the target cluster.
func (m *ViperManager) SetDefaults() {
	m.v.SetDefault("queue", "justinli")
	m.v.SetDefault("node-spec", "n006.cluster.com")
	m.v.SetDefault("qsub-path", "qsub")
	m.v.SetDefault("executable", "")
	m.v.SetDefault("script-template", "")
	m.v.SetDefault("output", "text")
	m.v.SetDefault("log-level", "info")
	m.v.SetDefault("log-format", "text")
	m.v.SetDefault("quiet", false)
	m.v.SetDefault("progress", false)
}

// Load reads configuration from all sources with proper precedence
func (m *ViperManager) Load() (*Config, error) {
	m.SetDefaults()

	m.v.SetConfigName("config")

	// Config paths in precedence order (current dir highest, system lowest)
	m.v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		m.v.AddConfigPath(filepath.Join(homeDir, ".config", "clusterun"))
	}
	m.v.AddConfigPath("/etc/clusterun/")

	m.v.SetEnvPrefix("CLUSTERUN")
	m.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	m.v.AutomaticEnv()

	formats := []string{"yaml", "yml", "json", "toml"}
	for _, format := range formats {
		m.v.SetConfigType(format)
		if err := m.v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading %s config file: %w", format, err)
			}
		} else {
			break
		}
	}

	var config Config
	if err := m.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := m.Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Source returns the config file in use after Load, or "defaults" when no
// config file was found
func (m *ViperManager) Source() string {
	if file := m.v.ConfigFileUsed(); file != "" {
		return file
	}
	return "defaults"
}

// Validate ensures configuration values are valid and consistent
func (m *ViperManager) Validate(config *Config) error {
	if config.Queue == "" {
		return fmt.Errorf("queue must not be empty")
	}
	if config.NodeSpec == "" {
		return fmt.Errorf("node-spec must not be empty")
	}
	if config.QsubPath == "" {
		return fmt.Errorf("qsub-path must not be empty")
	}

	if config.ScriptTemplate != "" {
		if _, err := os.Stat(config.ScriptTemplate); err != nil {
			return fmt.Errorf("script template '%s' not accessible: %w", config.ScriptTemplate, err)
		}
	}

	validOutputs := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validOutputs[config.Output] {
		return fmt.Errorf("invalid output format '%s': must be one of 'text' or 'json'", config.Output)
	}

	validLogLevels := map[string]bool{
		"info":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return fmt.Errorf("invalid log level '%s': must be one of 'info' or 'error'", config.LogLevel)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[config.LogFormat] {
		return fmt.Errorf("invalid log format '%s': must be one of 'json' or 'text'", config.LogFormat)
	}

	return nil
}
