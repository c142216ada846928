package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, b := range envBindings {
		t.Setenv(envPrefix+b.name, "")
	}
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 7*24*time.Hour, cfg.Index.MaxAge.Std())
	assert.Equal(t, 40, cfg.Index.MinScore)
	assert.Equal(t, 1000, cfg.Index.ChunkSize)
	assert.Equal(t, 200, cfg.Index.ChunkOverlap)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EmptyPath(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Scoring.BatchSize, cfg.Scoring.BatchSize)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "newswire.yml", `
data_dir: /var/lib/newswire
ai:
  completion_model: gpt-4o-mini
scoring:
  batch_size: 4
  fallback_delay: 250ms
index:
  max_age: 72h
  min_score: 55
ingestion:
  interval: 1h
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/newswire", cfg.DataDir)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.CompletionModel)
	assert.Equal(t, Default().AI.EmbeddingModel, cfg.AI.EmbeddingModel)
	assert.Equal(t, 4, cfg.Scoring.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Scoring.FallbackDelay.Std())
	assert.Equal(t, 72*time.Hour, cfg.Index.MaxAge.Std())
	assert.Equal(t, 55, cfg.Index.MinScore)
	assert.Equal(t, time.Hour, cfg.Ingestion.Interval.Std())
	assert.Equal(t, Default().Index.ChunkSize, cfg.Index.ChunkSize)
}

func TestLoad_TOML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "newswire.toml", `
data_dir = "/srv/newswire"

[fetch]
feed_template = "https://example.com/rss?q={keyword}"
page_fetch = false

[retention]
max_age = "240h"

[scoring.domain_tiers]
major = ["example.com"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/newswire", cfg.DataDir)
	assert.Equal(t, "https://example.com/rss?q={keyword}", cfg.Fetch.FeedTemplate)
	assert.False(t, cfg.Fetch.PageFetch)
	assert.Equal(t, 240*time.Hour, cfg.Retention.MaxAge.Std())
	assert.Equal(t, []string{"example.com"}, cfg.Scoring.DomainTiers.Major)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		file    string
		content string
		target  error
	}{
		{"unknown extension", "config.json", `{}`, ErrUnsupportedFormat},
		{"invalid range", "config.yaml", "index:\n  min_score: 120\n", ErrInvalidConfig},
		{"overlap too large", "config.toml", "[index]\nchunk_size = 100\nchunk_overlap = 100\n", ErrInvalidConfig},
		{"template without placeholder", "config.yaml", "fetch:\n  feed_template: https://example.com/rss\n", ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.ErrorIs(t, err, tt.target)
		})
	}

	t.Run("bad duration", func(t *testing.T) {
		_, err := Load(writeFile(t, "config.yaml", "index:\n  max_age: soon\n"))
		assert.Error(t, err)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := Load(writeFile(t, "config.yaml", "colour: blue\n"))
		assert.Error(t, err)
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", "ai:\n  completion_model: from-file\n")

	t.Setenv("NEWSWIRE_COMPLETION_MODEL", "from-env")
	t.Setenv("NEWSWIRE_AI_HOST", "http://llm.internal:8080")
	t.Setenv("NEWSWIRE_INGEST_INTERVAL", "15m")
	t.Setenv("NEWSWIRE_INDEX_MIN_SCORE", "60")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.AI.CompletionModel)
	assert.Equal(t, "http://llm.internal:8080", cfg.AI.EmbeddingHost)
	assert.Equal(t, "http://llm.internal:8080", cfg.AI.CompletionHost)
	assert.Equal(t, 15*time.Minute, cfg.Ingestion.Interval.Std())
	assert.Equal(t, 60, cfg.Index.MinScore)

	ac := cfg.AIConfig()
	require.NoError(t, ac.Validate())
	assert.Equal(t, "http://llm.internal:8080/v1", ac.CompletionHost)
}

func TestLoad_EnvParseError(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEWSWIRE_INDEX_MIN_SCORE", "lots")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEWSWIRE_INDEX_MIN_SCORE")
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/tmp/newswire"
	cfg.Index.MaxAge = Duration(36 * time.Hour)

	for _, format := range []Format{FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, cfg.Encode(&buf, format))

			decoded := &Config{}
			require.NoError(t, decoded.decode(buf.Bytes(), format))
			assert.Equal(t, cfg, decoded)
		})
	}
}

func TestDerived(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data"

	assert.Equal(t, filepath.Join("/data", "index"), cfg.IndexDir())
	assert.Equal(t, cfg.Index.MinScore, cfg.Policy().MinScore)
	assert.Equal(t, cfg.Index.ChunkSize, cfg.Chunker().Size)
}
