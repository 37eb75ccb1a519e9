package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config holds the mirroring configuration loaded from a JSON file.
// Tokens fall back to the environment when the file carries none.
type Config struct {
	MaxConcurrentDownloads int    `json:"max_concurrent_downloads"`
	RetryAttempts          int    `json:"retry_attempts"`
	TimeoutSeconds         int    `json:"timeout_seconds"`
	S3Region               string `json:"s3_region,omitempty"`
	S3Endpoint             string `json:"s3_endpoint,omitempty"`
	GithubToken            string `json:"github_token,omitempty"`
	AzureDevopsToken       string `json:"azure_devops_token,omitempty"`
}

// Default returns the default configuration with tokens taken from
// GITHUB_TOKEN and AZURE_DEVOPS_TOKEN when set.
func Default() *Config {
	return &Config{
		MaxConcurrentDownloads: 5,
		RetryAttempts:          3,
		TimeoutSeconds:         300,
		GithubToken:            os.Getenv("GITHUB_TOKEN"),
		AzureDevopsToken:       os.Getenv("AZURE_DEVOPS_TOKEN"),
	}
}

// Load reads a configuration file. Fields absent from the file keep
// their defaults, so a partial config cannot zero out the retry or
// timeout settings.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	content, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0644)
}

// Timeout returns the global per-request HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
