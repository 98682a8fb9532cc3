// Package config provides configuration management for seekwell operations
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config represents the global configuration for seekwell operations
type Config struct {
	// Condition evaluation
	StrictLiterals bool     `json:"strict_literals" yaml:"strict_literals"` // Fail instead of matching nothing when a literal cannot be parsed
	DateLayouts    []string `json:"date_layouts" yaml:"date_layouts"`       // time.Parse layouts tried for date literals and CSV inference

	// Join behaviour
	LeftSuffix  string `json:"left_suffix" yaml:"left_suffix"`   // Suffix for overlapping left columns
	RightSuffix string `json:"right_suffix" yaml:"right_suffix"` // Suffix for overlapping right columns

	// I/O
	CSVDelimiter string `json:"csv_delimiter" yaml:"csv_delimiter"` // Single character field delimiter
	NullString   string `json:"null_string" yaml:"null_string"`     // Cell text read and written as null

	// Diagnostics
	LogLevel          string `json:"log_level" yaml:"log_level"`                   // zap level name
	MetricsCollection bool   `json:"metrics_collection" yaml:"metrics_collection"` // Record per-operation metrics
}

// Global configuration instance
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

// Default configuration values
const (
	DefaultLeftSuffix   = "_x"
	DefaultRightSuffix  = "_y"
	DefaultCSVDelimiter = ","
	DefaultLogLevel     = "warn"
)

// DefaultDateLayouts are tried in order when a literal targets a timestamp column.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006/01/02",
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Initialize global configuration with defaults
func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		StrictLiterals:    false,
		DateLayouts:       append([]string(nil), DefaultDateLayouts...),
		LeftSuffix:        DefaultLeftSuffix,
		RightSuffix:       DefaultRightSuffix,
		CSVDelimiter:      DefaultCSVDelimiter,
		NullString:        "",
		LogLevel:          DefaultLogLevel,
		MetricsCollection: false,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if len(c.DateLayouts) == 0 {
		return fmt.Errorf("DateLayouts must not be empty")
	}

	if c.LeftSuffix == c.RightSuffix {
		return fmt.Errorf("LeftSuffix and RightSuffix must differ, both are %q", c.LeftSuffix)
	}

	if len([]rune(c.CSVDelimiter)) != 1 {
		return fmt.Errorf("CSVDelimiter must be a single character, got %q", c.CSVDelimiter)
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LogLevel must be one of debug, info, warn, error, got %q", c.LogLevel)
	}

	return nil
}

// Delimiter returns CSVDelimiter as a rune.
func (c *Config) Delimiter() rune {
	for _, r := range c.CSVDelimiter {
		return r
	}
	return ','
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if len(c.DateLayouts) == 0 {
		c.DateLayouts = defaults.DateLayouts
	}
	if c.LeftSuffix == "" {
		c.LeftSuffix = defaults.LeftSuffix
	}
	if c.RightSuffix == "" {
		c.RightSuffix = defaults.RightSuffix
	}
	if c.CSVDelimiter == "" {
		c.CSVDelimiter = defaults.CSVDelimiter
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}

	// Boolean fields keep their zero value; NullString "" is already the default.
	return c
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromYAML loads configuration from YAML data
func LoadFromYAML(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing YAML configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON and YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		config, err = LoadFromJSON(data)
	case ".yaml", ".yml":
		config, err = LoadFromYAML(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("loading config file %s: %w", filename, err)
	}

	return config, nil
}

// LoadFromEnv loads configuration from SEEKWELL_* environment variables on top of the defaults
func LoadFromEnv() Config {
	config := NewConfig()

	if val := os.Getenv("SEEKWELL_STRICT_LITERALS"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.StrictLiterals = parsed
		}
	}

	if val := os.Getenv("SEEKWELL_DATE_LAYOUTS"); val != "" {
		var layouts []string
		for _, layout := range strings.Split(val, ";") {
			if layout = strings.TrimSpace(layout); layout != "" {
				layouts = append(layouts, layout)
			}
		}
		if len(layouts) > 0 {
			config.DateLayouts = layouts
		}
	}

	if val := os.Getenv("SEEKWELL_LEFT_SUFFIX"); val != "" {
		config.LeftSuffix = val
	}

	if val := os.Getenv("SEEKWELL_RIGHT_SUFFIX"); val != "" {
		config.RightSuffix = val
	}

	if val := os.Getenv("SEEKWELL_CSV_DELIMITER"); val != "" {
		config.CSVDelimiter = val
	}

	if val, ok := os.LookupEnv("SEEKWELL_NULL_STRING"); ok {
		config.NullString = val
	}

	if val := os.Getenv("SEEKWELL_LOG_LEVEL"); val != "" {
		config.LogLevel = strings.ToLower(val)
	}

	if val := os.Getenv("SEEKWELL_METRICS_COLLECTION"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.MetricsCollection = parsed
		}
	}

	return config
}
