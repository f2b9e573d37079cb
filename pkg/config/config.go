/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ssargent/rowcodec/pkg/compress"
	"github.com/ssargent/rowcodec/pkg/equality"
	"github.com/ssargent/rowcodec/pkg/logging"
	"github.com/ssargent/rowcodec/pkg/schema"
	"gopkg.in/yaml.v3"
)

// Config represents the rowcodec configuration
type Config struct {
	DataDir  string        `yaml:"data_dir"`
	Port     int           `yaml:"port"`
	Bind     string        `yaml:"bind"`
	Security Security      `yaml:"security"`
	Logging  Logging       `yaml:"logging"`
	Storage  Storage       `yaml:"storage"`
	Equality Equality      `yaml:"equality"`
	Schema   []FieldConfig `yaml:"schema"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// Storage selects how rows are persisted.
type Storage struct {
	Compression string `yaml:"compression"`
	Sync        bool   `yaml:"sync"`
}

// Equality selects the row comparison strategy.
type Equality struct {
	Strategy string `yaml:"strategy"`
}

// FieldConfig declares one schema field. Type uses the syntax of
// schema.ParseFieldType, e.g. "int32" or "map<string,array<bytes>>".
type FieldConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Security: Security{
			APIKey: "auto",
		},
		Logging: Logging{
			Level: "info",
		},
		Storage: Storage{
			Compression: "snappy",
		},
		Equality: Equality{
			Strategy: "deep",
		},
		Schema: []FieldConfig{
			{Name: "f0", Type: "int32"},
			{Name: "f1", Type: "double"},
			{Name: "f2", Type: "bytes"},
		},
	}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	config.Schema = nil
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Schema == nil {
		config.Schema = DefaultConfig().Schema
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// Validate checks every setting that can be checked without side effects.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := compress.ByName(c.Storage.Compression); err != nil {
		errs = append(errs, err)
	}
	if _, err := equality.ByName(c.Equality.Strategy); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.BuildSchema(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// BuildSchema builds the row schema from the schema section.
func (c *Config) BuildSchema() (*schema.Schema, error) {
	if len(c.Schema) == 0 {
		return nil, errors.New("schema must declare at least one field")
	}
	fields := make([]schema.Field, 0, len(c.Schema))
	for _, f := range c.Schema {
		ft, err := schema.ParseFieldType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		fields = append(fields, schema.Field{Name: f.Name, Type: ft})
	}
	return schema.New(fields...)
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a new configuration with a generated API key.
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	// Generate the API key
	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	// Save the configuration
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	// Use OS-specific default locations
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./rowcodec.yaml"
	}

	// For Linux/macOS, use ~/.config/rowcodec/config.yaml
	return filepath.Join(homeDir, ".config", "rowcodec", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
