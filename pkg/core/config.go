package core

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Region selects one of the provider's regional API hosts.
type Region string

// Supported regions.
const (
	RegionUS Region = "us"
	RegionEU Region = "eu"
	// RegionRapidAPI is kept for completeness; the marketplace proxy is not supported by the provider anymore.
	RegionRapidAPI Region = "rapidapi"
)

var regionURLs = map[Region]string{
	RegionUS:       "https://us.market-api.kaiko.io/",
	RegionEU:       "https://eu.market-api.kaiko.io/",
	RegionRapidAPI: "https://kaiko-cryptocurrency-market-data.p.rapidapi.com/",
}

// URL returns the base URL of the region, or "" for an unknown region.
func (r Region) URL() string {
	return regionURLs[r]
}

// DefaultReferenceDataURL hosts the public catalog endpoints.
const DefaultReferenceDataURL = "https://reference-data-api.kaiko.io/v1/"

// DefaultAPIKeyEnv is the environment variable consulted when no API key is set explicitly.
const DefaultAPIKeyEnv = "KAIKO_API_KEY"

// Config contains all configuration options for a client.
// Environment variables are read with the KAIKO_ prefix by LoadConfig.
type Config struct {
	Region Region `json:"region" env:"REGION" validate:"required,oneof=us eu rapidapi"`
	// BaseURL overrides the region URL when set.
	BaseURL          string `json:"base_url,omitempty" env:"BASE_URL" validate:"omitempty,url"`
	ReferenceDataURL string `json:"reference_data_url" env:"REFERENCE_DATA_URL" validate:"required,url"`

	// APIKey is the explicit key; when empty the key is read from APIKeyEnv.
	APIKey    string `json:"-"`
	APIKeyEnv string `json:"api_key_env" env:"API_KEY_ENV" validate:"required"`

	// Timeout is the maximum duration of a single page request.
	Timeout      time.Duration `json:"timeout" env:"TIMEOUT" validate:"min=1ms"`
	MaxRetries   int           `json:"max_retries" env:"MAX_RETRIES" validate:"min=0"`
	RetryWaitMin time.Duration `json:"retry_wait_min" env:"RETRY_WAIT_MIN" validate:"min=0"`
	RetryWaitMax time.Duration `json:"retry_wait_max" env:"RETRY_WAIT_MAX" validate:"min=0,gtefield=RetryWaitMin"`

	// Pagination follows continuation tokens until the provider reports no more pages.
	Pagination bool `json:"pagination" env:"PAGINATION"`

	LogLevel string `json:"log_level" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a Config initialized with sensible defaults.
// Default values: us region, 30s timeout, 2 retries, 100ms-2s retry wait, pagination on.
func DefaultConfig() *Config {
	return &Config{
		Region:           RegionUS,
		ReferenceDataURL: DefaultReferenceDataURL,
		APIKeyEnv:        DefaultAPIKeyEnv,

		Timeout:      30 * time.Second,
		MaxRetries:   2,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,

		Pagination: true,

		LogLevel: "info",
	}
}

// LoadConfig returns DefaultConfig overlaid with KAIKO_* environment variables.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()
	if err := env.ParseWithOptions(config, env.Options{Prefix: "KAIKO_"}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

var validate = validator.New()

// Validate checks field constraints. Failures match ErrConfiguration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

// URL returns the API base URL: BaseURL when set, the region URL otherwise.
func (c *Config) URL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return c.Region.URL()
}

// WithRegion sets the region and returns the config for chaining.
func (c *Config) WithRegion(region Region) *Config {
	c.Region = region
	return c
}

// WithBaseURL overrides the region URL and returns the config for chaining.
func (c *Config) WithBaseURL(url string) *Config {
	c.BaseURL = url
	return c
}

// WithAPIKey sets the explicit API key and returns the config for chaining.
func (c *Config) WithAPIKey(key string) *Config {
	c.APIKey = key
	return c
}

// WithTimeout sets the request timeout and returns the config for chaining.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithRetry sets the transport retry policy and returns the config for chaining.
func (c *Config) WithRetry(count int, waitMin, waitMax time.Duration) *Config {
	c.MaxRetries = count
	c.RetryWaitMin = waitMin
	c.RetryWaitMax = waitMax
	return c
}

// WithPagination enables or disables continuation-token paging and returns the config for chaining.
func (c *Config) WithPagination(enabled bool) *Config {
	c.Pagination = enabled
	return c
}
