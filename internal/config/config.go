// Package config holds the run configuration: defaults, an optional YAML
// file merged over them, and command line overrides applied by the caller.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/imdario/mergo"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config is the complete run configuration.
type Config struct {
	ImagePath   string `yaml:"image_path"`
	OutputPath  string `yaml:"output_path"`
	FolderName  string `yaml:"folder_name"`
	VendorList  string `yaml:"vendor_list"`
	LogLevel    string `yaml:"log_level"`
	JSONLogs    bool   `yaml:"json_logs"`
	Gzip        bool   `yaml:"gzip"`
	Workers     int    `yaml:"workers"`
	MetricsFile string `yaml:"metrics_file"`
	// ControlSet forces ControlSet00N. Zero resolves it from Select\Current.
	ControlSet uint32 `yaml:"control_set"`
	SnakeCase  bool   `yaml:"snake_case"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		OutputPath: ".",
		FolderName: "results",
		LogLevel:   "info",
		Workers:    4,
	}
}

// Load reads the YAML file at path and fills every field it leaves unset
// from the defaults. An empty path returns the defaults.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := mergo.Merge(&cfg, Default()); err != nil {
		return Config{}, fmt.Errorf("merge defaults: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields a run needs. The vendor list is only required
// when device artifacts are extracted.
func (c Config) Validate(needVendors bool) error {
	if c.ImagePath == "" {
		return fmt.Errorf("image path is required")
	}
	if needVendors && c.VendorList == "" {
		return fmt.Errorf("vendor list path is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ControlSet > 999 {
		return fmt.Errorf("control set %d out of range", c.ControlSet)
	}
	return nil
}

// OutputDir is the directory results are written to.
func (c Config) OutputDir() string {
	return filepath.Join(c.OutputPath, c.FolderName)
}
