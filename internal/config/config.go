package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"apm-exporter/internal/model"
	"apm-exporter/internal/pipeline"
)

const endpointTemplate = "https://console.volcengine.com/api/top/apmplus/%s/2023-01-12/DashboardCustomGraphDraw"

// Config represents the application configuration
type Config struct {
	API       APIConfig                 `toml:"api"`
	Retry     model.RetryConfig         `toml:"retry"`
	Batch     BatchConfig               `toml:"batch"`
	Transform pipeline.TransformOptions `toml:"transform"`
	Database  DatabaseConfig            `toml:"database"`
	HTTP      HTTPConfig                `toml:"http"`
	Logging   LoggingConfig             `toml:"logging"`

	// Credentials only come from the environment or .env, never the config file
	Credentials model.Credentials `toml:"-"`
}

// APIConfig holds the upstream analytics API settings
type APIConfig struct {
	Endpoint  string        `toml:"endpoint"` // overrides the region-derived endpoint
	Region    string        `toml:"region"`
	Timeout   time.Duration `toml:"timeout"`
	Preflight bool          `toml:"preflight"` // check credentials before a batch starts
}

// BatchConfig holds batch pacing and output settings
type BatchConfig struct {
	InterTaskDelay time.Duration `toml:"inter_task_delay"`
	OutputDir      string        `toml:"output_dir"`
	OutputFormat   string        `toml:"output_format"`
}

// DatabaseConfig holds the sqlite settings
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// HTTPConfig holds HTTP API server settings
type HTTPConfig struct {
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a Config with the upstream console defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Region:    "cn-beijing",
			Timeout:   30 * time.Second,
			Preflight: true,
		},
		Retry: model.DefaultRetryConfig(),
		Batch: BatchConfig{
			InterTaskDelay: 1000 * time.Millisecond,
			OutputDir:      "exports",
			OutputFormat:   string(pipeline.FormatXLSX),
		},
		Transform: pipeline.DefaultTransformOptions(),
		Database: DatabaseConfig{
			Path: "apm-exporter.db",
		},
		HTTP: HTTPConfig{
			Address: "0.0.0.0",
			Port:    8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFromFile loads configuration from a TOML file over the defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// LoadConfig loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. .env file (if present) and environment variables
// 4. Command-line flags (handled by caller)
func LoadConfig(configPath, envFile string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		fileConfig, err := LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}
	config.applyEnv()

	return config, nil
}

// applyEnv overlays APM_* environment variables
func (c *Config) applyEnv() {
	c.Credentials.Token = getEnv("APM_CSRF_TOKEN", c.Credentials.Token)
	c.Credentials.Cookie = getEnv("APM_COOKIE", c.Credentials.Cookie)
	c.API.Endpoint = getEnv("APM_ENDPOINT", c.API.Endpoint)
	c.Batch.OutputDir = getEnv("APM_OUTPUT_DIR", c.Batch.OutputDir)
	c.Database.Path = getEnv("APM_DB_PATH", c.Database.Path)
	c.Logging.Level = getEnv("APM_LOG_LEVEL", c.Logging.Level)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// EndpointURL returns the explicit endpoint, or the one derived from the region
func (c *Config) EndpointURL() string {
	if c.API.Endpoint != "" {
		return c.API.Endpoint
	}
	return fmt.Sprintf(endpointTemplate, c.API.Region)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.Endpoint == "" && c.API.Region == "" {
		return fmt.Errorf("api endpoint or region must be specified")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry max_retries must not be negative")
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry base_delay must not be negative")
	}

	if c.Batch.InterTaskDelay < 0 {
		return fmt.Errorf("batch inter_task_delay must not be negative")
	}
	if c.Batch.OutputDir == "" {
		return fmt.Errorf("batch output_dir must be specified")
	}
	if _, err := pipeline.ParseOutputFormat(c.Batch.OutputFormat, pipeline.FormatXLSX); err != nil {
		return fmt.Errorf("batch %w", err)
	}

	if c.Transform.PageZeroThreshold <= 0 {
		return fmt.Errorf("transform page_zero_threshold must be positive")
	}
	if c.Transform.InterfaceSlowThreshold < 0 {
		return fmt.Errorf("transform interface_slow_threshold must not be negative")
	}
	if c.Transform.LayoutShiftPrecision < 0 || c.Transform.TimingPrecision < 0 {
		return fmt.Errorf("transform precisions must not be negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path must be specified")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}

// PipelineOptions converts the configuration into orchestrator options
func (c *Config) PipelineOptions() pipeline.Options {
	format, err := pipeline.ParseOutputFormat(c.Batch.OutputFormat, pipeline.FormatXLSX)
	if err != nil {
		format = pipeline.FormatXLSX
	}
	return pipeline.Options{
		Endpoint:       c.EndpointURL(),
		Timeout:        c.API.Timeout,
		Retry:          c.Retry,
		InterTaskDelay: c.Batch.InterTaskDelay,
		OutputDir:      c.Batch.OutputDir,
		OutputFormat:   format,
		Transform:      c.Transform,
	}
}

// ListenAddr is the HTTP listen address
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Address, c.HTTP.Port)
}
