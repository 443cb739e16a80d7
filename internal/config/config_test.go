package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Database.DataDir)
	assert.Equal(t, 10, cfg.Search.TopK)
	assert.Equal(t, 0.3, cfg.Search.MinScore)
	assert.Equal(t, 0.5, cfg.Orchestrator.BarkSimilarityThreshold)
	assert.Equal(t, 0.1, cfg.Orchestrator.TickIntervalSeconds)
	assert.Equal(t, 9000, cfg.Transport.ListenPort)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{
		"database": {"data_dir": "/var/lib/hibikido"},
		"search": {"top_k": 5},
		"orchestrator": {"bark_similarity_threshold": 0.7},
		"semantic": {"api_key": "secret"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load([]string{"--config", path, "--log-level", "debug"})
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/hibikido", cfg.Database.DataDir)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, 0.7, cfg.Orchestrator.BarkSimilarityThreshold)
	assert.Equal(t, "secret", cfg.Semantic.APIKey)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Unspecified sections keep their documented defaults.
	assert.Equal(t, 0.3, cfg.Search.MinScore)
	assert.Equal(t, 0.1, cfg.Orchestrator.TickIntervalSeconds)
	assert.Equal(t, "audio", cfg.Audio.AudioDirectory)
}

func TestLoadMissingConfigFileErrors(t *testing.T) {
	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "absent.json")})
	assert.Error(t, err)
}

func TestLoadMalformedConfigFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := Load([]string{"--config", path})
	assert.Error(t, err)
}
