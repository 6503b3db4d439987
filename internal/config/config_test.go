package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apm-exporter/internal/pipeline"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, time.Second, cfg.Batch.InterTaskDelay)
	assert.Equal(t, 3, cfg.Transform.PageZeroThreshold)
	assert.Equal(t, 30, cfg.Transform.InterfaceSlowThreshold)
	assert.Equal(t, "https://console.volcengine.com/api/top/apmplus/cn-beijing/2023-01-12/DashboardCustomGraphDraw", cfg.EndpointURL())
	assert.Equal(t, pipeline.DefaultOptions(), cfg.PipelineOptions())
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	configContent := `
[api]
region = "cn-shanghai"
timeout = "10s"

[retry]
max_retries = 5
base_delay = "500ms"

[batch]
inter_task_delay = "2s"
output_format = "csv"

[transform]
page_zero_threshold = 2
interface_slow_threshold = 50

[http]
port = 9000
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 2*time.Second, cfg.Batch.InterTaskDelay)
	assert.Equal(t, 2, cfg.Transform.PageZeroThreshold)
	assert.Equal(t, 50, cfg.Transform.InterfaceSlowThreshold)
	assert.Equal(t, 6, cfg.Transform.LayoutShiftPrecision, "unset keys keep defaults")
	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr())
	assert.Contains(t, cfg.EndpointURL(), "/cn-shanghai/")

	opts := cfg.PipelineOptions()
	assert.Equal(t, pipeline.FormatCSV, opts.OutputFormat)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	for _, key := range []string{"APM_CSRF_TOKEN", "APM_COOKIE", "APM_ENDPOINT", "APM_OUTPUT_DIR", "APM_DB_PATH", "APM_LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("APM_CSRF_TOKEN=token-1\nAPM_COOKIE=\"sid=abc; csrf=def\"\nAPM_DB_PATH=/tmp/apm.db\n"), 0644))
	// godotenv never overrides a variable that is present, even when empty
	for _, key := range []string{"APM_CSRF_TOKEN", "APM_COOKIE", "APM_DB_PATH"} {
		os.Unsetenv(key)
	}

	cfg, err := LoadConfig("", envPath)
	require.NoError(t, err)
	assert.Equal(t, "token-1", cfg.Credentials.Token)
	assert.Equal(t, "sid=abc; csrf=def", cfg.Credentials.Cookie)
	assert.Equal(t, "/tmp/apm.db", cfg.Database.Path)
	assert.True(t, cfg.Credentials.Valid())
}

func TestLoadConfig_MissingEnvFileIsIgnored(t *testing.T) {
	cfg, err := LoadConfig("", filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Equal(t, "apm-exporter.db", cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }},
		{"bad format", func(c *Config) { c.Batch.OutputFormat = "pdf" }},
		{"zero threshold", func(c *Config) { c.Transform.PageZeroThreshold = 0 }},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"no endpoint", func(c *Config) { c.API.Region = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
