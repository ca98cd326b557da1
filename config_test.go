/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package taskqueue

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-appkit/config"
)

type AppConfig struct {
	TaskQueue *Config `mapstructure:"taskQueue" json:"taskQueue" yaml:"taskQueue"`
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgDataType config.DataType
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name:        "yaml config",
			cfgDataType: config.DataTypeYAML,
			cfgData: `
taskQueue:
  limit: 16
  backlogLimit: 128
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Limit = 16
				cfg.BacklogLimit = 128
				return cfg
			},
		},
		{
			name:        "json config",
			cfgDataType: config.DataTypeJSON,
			cfgData:     `{"taskQueue": {"limit": 2}}`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Limit = 2
				return cfg
			},
		},
		{
			name:        "default used",
			cfgDataType: config.DataTypeYAML,
			cfgData:     "",
			expectedCfg: func() *Config {
				return NewDefaultConfig()
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(tt.cfgData)), tt.cfgDataType, cfg)
			require.NoError(t, err)
			require.Equal(t, tt.expectedCfg(), cfg)
		})
	}
}

func TestConfigValidationErrors(t *testing.T) {
	tests := []struct {
		name           string
		yamlData       string
		expectedErrMsg string
	}{
		{
			name: "error, zero limit",
			yamlData: `
taskQueue:
  limit: 0
`,
			expectedErrMsg: `taskQueue.limit: must be positive, got 0`,
		},
		{
			name: "error, negative limit",
			yamlData: `
taskQueue:
  limit: -1
`,
			expectedErrMsg: `taskQueue.limit: must be positive, got -1`,
		},
		{
			name: "error, non-integer limit",
			yamlData: `
taskQueue:
  limit: 1.5
`,
			expectedErrMsg: `taskQueue.limit: must be an integer, got 1.5`,
		},
		{
			name: "error, negative backlog limit",
			yamlData: `
taskQueue:
  limit: 1
  backlogLimit: -1
`,
			expectedErrMsg: `taskQueue.backlogLimit: must not be negative, got -1`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(tt.yamlData)), config.DataTypeYAML, cfg)
			require.EqualError(t, err, tt.expectedErrMsg)
		})
	}
}

func TestConfigUnmarshal(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		var appCfg AppConfig
		require.NoError(t, yaml.Unmarshal([]byte(`
taskQueue:
  limit: 8
  backlogLimit: 32
`), &appCfg))
		require.Equal(t, 8, appCfg.TaskQueue.Limit)
		require.Equal(t, 32, appCfg.TaskQueue.BacklogLimit)
	})

	t.Run("json", func(t *testing.T) {
		var appCfg AppConfig
		require.NoError(t, json.Unmarshal([]byte(`{"taskQueue": {"limit": 8}}`), &appCfg))
		require.Equal(t, 8, appCfg.TaskQueue.Limit)
	})
}

func TestConfigWithKeyPrefix(t *testing.T) {
	t.Run("custom key prefix", func(t *testing.T) {
		cfgData := `
customTaskQueue:
  limit: 5
`
		expectedCfg := NewDefaultConfig(WithKeyPrefix("customTaskQueue"))
		expectedCfg.Limit = 5

		cfg := NewConfig(WithKeyPrefix("customTaskQueue"))
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(cfgData)), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, expectedCfg, cfg)
	})

	t.Run("default key prefix, empty struct initialization", func(t *testing.T) {
		cfgData := `
taskQueue:
  limit: 5
`
		cfg := &Config{}
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(cfgData)), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, 5, cfg.Limit)
	})
}

func TestNewForConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Limit = 2
	cfg.BacklogLimit = 10

	q, err := NewForConfig[int](cfg, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, q.ConcurrencyLimit())

	cfg.Limit = 0
	q, err = NewForConfig[int](cfg, nil, nil)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	require.Nil(t, q)
}
