/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package taskqueue

import (
	"fmt"
	"math"

	"github.com/acronis/go-appkit/config"
)

const cfgDefaultKeyPrefix = "taskQueue"

const (
	cfgKeyLimit        = "limit"
	cfgKeyBacklogLimit = "backlogLimit"
)

// DefaultLimit is a default value of the concurrency limit.
const DefaultLimit = 4

// Config represents a set of configuration parameters for the task queue.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// Limit is the maximum number of tasks allowed to run concurrently.
	// Must be a positive integer.
	Limit int `mapstructure:"limit" yaml:"limit" json:"limit"`

	// BacklogLimit is the maximum number of tasks waiting for a free slot, 0 means unbounded.
	BacklogLimit int `mapstructure:"backlogLimit" yaml:"backlogLimit" json:"backlogLimit"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{
		keyPrefix: opts.keyPrefix,
		Limit:     DefaultLimit,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the task queue in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyLimit, DefaultLimit)
	dp.SetDefault(cfgKeyBacklogLimit, 0)
}

// Set sets the task queue configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	// GetInt cannot be used here since the underlying cast silently truncates
	// fractional values, and a limit like 1.5 must be rejected, not rounded down.
	limit, err := dp.GetFloat64(cfgKeyLimit)
	if err != nil {
		return err
	}
	if limit != math.Trunc(limit) {
		return dp.WrapKeyErr(cfgKeyLimit, fmt.Errorf("must be an integer, got %v", limit))
	}
	c.Limit = int(limit)
	if c.Limit <= 0 {
		return dp.WrapKeyErr(cfgKeyLimit, fmt.Errorf("must be positive, got %d", c.Limit))
	}

	if c.BacklogLimit, err = dp.GetInt(cfgKeyBacklogLimit); err != nil {
		return err
	}
	if c.BacklogLimit < 0 {
		return dp.WrapKeyErr(cfgKeyBacklogLimit, fmt.Errorf("must not be negative, got %d", c.BacklogLimit))
	}

	return nil
}
