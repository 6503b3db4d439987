package model

import "time"

// RetryConfig defines retry behavior for transport failures of a single fetch
type RetryConfig struct {
	MaxRetries int           `json:"max_retries" toml:"max_retries"` // additional attempts after the first
	BaseDelay  time.Duration `json:"base_delay" toml:"base_delay"`   // delay before retry n is BaseDelay * 2^n
}

// DefaultRetryConfig mirrors the upstream console behaviour: 1s, 2s, 4s
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
	}
}

// Delay returns the wait before retry number attempt (0-based)
func (c RetryConfig) Delay(attempt int) time.Duration {
	return c.BaseDelay * time.Duration(1<<attempt)
}
