package config

import (
	stdErrors "errors"
	"testing"
	"time"

	"github.com/cfxwasm/sdk/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "script", cfg.ResourceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, uint32(4096), cfg.MemoryLimitPages)
	assert.Equal(t, uint32(1<<20), cfg.MaxRequestSize)
	assert.True(t, cfg.Server)
	assert.Equal(t, cfg, Default())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"CFXWASM_RESOURCE_NAME": "adder",
		"CFXWASM_TICK_INTERVAL": "10ms",
		"CFXWASM_SERVER":        "false",
		"CFXWASM_LOG_LEVEL":     "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "adder", cfg.ResourceName)
	assert.Equal(t, 10*time.Millisecond, cfg.TickInterval)
	assert.False(t, cfg.Server)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFrom_ParseError(t *testing.T) {
	_, err := LoadFrom(map[string]string{"CFXWASM_TICK_INTERVAL": "soon"})
	require.Error(t, err)

	var cerr *errors.ConfigError
	assert.True(t, stdErrors.As(err, &cerr))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty resource", mutate: func(c *Config) { c.ResourceName = "" }, fields: []string{"ResourceName"}},
		{name: "resource with colon", mutate: func(c *Config) { c.ResourceName = "a:b" }, fields: []string{"ResourceName"}},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }, fields: []string{"LogLevel"}},
		{name: "tick too fast", mutate: func(c *Config) { c.TickInterval = time.Microsecond }, fields: []string{"TickInterval"}},
		{name: "no memory", mutate: func(c *Config) { c.MemoryLimitPages = 0 }, fields: []string{"MemoryLimitPages"}},
		{
			name: "several",
			mutate: func(c *Config) {
				c.MaxRequestSize = 10
				c.LogLevel = ""
			},
			fields: []string{"LogLevel", "MaxRequestSize"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := Validate(cfg)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			joined, ok := err.(interface{ Unwrap() []error })
			require.True(t, ok)
			var got []string
			for _, e := range joined.Unwrap() {
				var cerr *errors.ConfigError
				require.True(t, stdErrors.As(e, &cerr))
				got = append(got, cerr.Field)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}
