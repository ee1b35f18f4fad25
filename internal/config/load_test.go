package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithEnvDatabase(t *testing.T) {
	t.Setenv("BESTIARY_DATABASE_URL", "postgres://localhost:5432/bestiary")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "https://pokeapi.co/api/v2", cfg.Source.BaseURL)
	assert.Equal(t, 10, cfg.Source.FetchConcurrency)
	assert.Equal(t, 5000, cfg.Import.MaxLimit)
	assert.Equal(t, 50, cfg.Import.DefaultBatchSize)
	assert.Equal(t, 500, cfg.Import.InterBatchPauseMillis)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BESTIARY_DATABASE_URL", "postgres://localhost:5432/bestiary")
	t.Setenv("BESTIARY_SERVER_PORT", "9090")
	t.Setenv("BESTIARY_SERVER_LOG_LEVEL", "debug")
	t.Setenv("BESTIARY_SOURCE_FETCH_CONCURRENCY", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 4, cfg.Source.FetchConcurrency)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing database url",
			env:  map[string]string{},
		},
		{
			name: "invalid log level",
			env: map[string]string{
				"BESTIARY_DATABASE_URL":     "postgres://localhost:5432/bestiary",
				"BESTIARY_SERVER_LOG_LEVEL": "verbose",
			},
		},
		{
			name: "port out of range",
			env: map[string]string{
				"BESTIARY_DATABASE_URL": "postgres://localhost:5432/bestiary",
				"BESTIARY_SERVER_PORT":  "70000",
			},
		},
		{
			name: "zero fetch concurrency",
			env: map[string]string{
				"BESTIARY_DATABASE_URL":             "postgres://localhost:5432/bestiary",
				"BESTIARY_SOURCE_FETCH_CONCURRENCY": "0",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
