// Package config loads the YAML configuration shared by every example.
//
// A file only needs the keys it overrides; everything else keeps the value
// from Default.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration.
type Config struct {
	Cluster      ClusterConfig   `yaml:"cluster"`
	Index        IndexConfig     `yaml:"index"`
	Generator    GeneratorConfig `yaml:"generator"`
	RefreshDelay time.Duration   `yaml:"refresh_delay"`
	Log          LogConfig       `yaml:"log"`
	Serve        ServeConfig     `yaml:"serve"`
}

// ClusterConfig locates persistent clusters.
type ClusterConfig struct {
	// DataDir holds one directory per persistent cluster.
	DataDir string `yaml:"data_dir"`
	// HealthTimeout bounds the wait for a yellow cluster.
	HealthTimeout time.Duration `yaml:"health_timeout"`
}

// IndexConfig names the example index and its payloads.
type IndexConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	// SettingsFile and MappingFile replace the bundled payloads when set.
	SettingsFile string `yaml:"settings_file"`
	MappingFile  string `yaml:"mapping_file"`
}

// GeneratorConfig shapes the generated documents.
type GeneratorConfig struct {
	// Documents is the bulk size of every example but the bulk one.
	Documents int `yaml:"documents"`
	// BulkDocuments is the bulk size of the bulk example.
	BulkDocuments  int `yaml:"bulk_documents"`
	MinTextLength  int `yaml:"min_text_length"`
	YearMin        int `yaml:"year_min"`
	YearMax        int `yaml:"year_max"`
	CreatedAtYears int `yaml:"created_at_years"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// File, when set, also writes JSON logs to a rotated file.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ServeConfig configures the MCP server.
type ServeConfig struct {
	// HTTPAddr is the listen address used with --http.
	HTTPAddr string `yaml:"http_addr"`
}

// Default returns the configuration the examples run with out of the box.
func Default() Config {
	return Config{
		Cluster: ClusterConfig{
			DataDir:       "data",
			HealthTimeout: 30 * time.Second,
		},
		Index: IndexConfig{
			Name: "mon_index",
			Type: "mon_type",
		},
		Generator: GeneratorConfig{
			Documents:      5999,
			BulkDocuments:  5341,
			MinTextLength:  70,
			YearMin:        1950,
			YearMax:        2015,
			CreatedAtYears: 3,
		},
		RefreshDelay: 2 * time.Second,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Serve: ServeConfig{
			HTTPAddr: "127.0.0.1:8080",
		},
	}
}

// Load reads path over Default and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(strings.TrimSpace(c.Cluster.DataDir) != "", "cluster.data_dir is required")
	check(c.Cluster.HealthTimeout > 0, "cluster.health_timeout must be positive")
	check(strings.TrimSpace(c.Index.Name) != "", "index.name is required")
	check(strings.TrimSpace(c.Index.Type) != "", "index.type is required")
	check(c.Generator.Documents >= 0, "generator.documents must not be negative")
	check(c.Generator.BulkDocuments >= 0, "generator.bulk_documents must not be negative")
	check(c.Generator.MinTextLength >= 0, "generator.min_text_length must not be negative")
	check(c.Generator.YearMin <= c.Generator.YearMax, "generator.year_min %d exceeds year_max %d", c.Generator.YearMin, c.Generator.YearMax)
	check(c.Generator.CreatedAtYears >= 0, "generator.created_at_years must not be negative")
	check(c.RefreshDelay >= 0, "refresh_delay must not be negative")
	check(validLevel(c.Log.Level), "log.level %q is not one of debug, info, warn, error", c.Log.Level)
	check(c.Log.MaxSizeMB >= 0 && c.Log.MaxBackups >= 0 && c.Log.MaxAgeDays >= 0, "log rotation limits must not be negative")

	return errors.Join(errs...)
}

func validLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
