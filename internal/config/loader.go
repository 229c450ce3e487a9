package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads an experiment file from disk.
//
// The file may be YAML (.yaml, .yml) or JSON (.json); JSON documents are
// valid YAML and go through the same decoder.
func LoadConfig(path string) (*RootConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data, path)
}

// ParseConfig parses and shape-checks experiment file contents.
//
// The raw document is first checked against the embedded JSON schema, then
// decoded into a RootConfig. Field-level rules are applied separately by
// Validate.
func ParseConfig(data []byte, path string) (*RootConfig, error) {
	format := "YAML"
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		format = "JSON"
	}

	if err := CheckDocument(data); err != nil {
		return nil, err
	}

	var cfg RootConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("failed to parse %s config: %v", format, err)}
	}

	for name, e := range cfg.Experiments {
		if e != nil {
			e.Name = name
		}
	}

	return &cfg, nil
}

// LoadAndValidate loads a config file and applies Validate.
func LoadAndValidate(path string) (*RootConfig, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
