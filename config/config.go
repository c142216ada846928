// Package config loads process configuration from a YAML or TOML file and
// applies NEWSWIRE_* environment overrides on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/fetch"
	"github.com/poiesic/newswire/index"
	"github.com/poiesic/newswire/scoring"
)

// Format names a config file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Config is the full process configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir" toml:"data_dir"`
	AI        AIConfig        `yaml:"ai" toml:"ai"`
	Scoring   ScoringConfig   `yaml:"scoring" toml:"scoring"`
	Index     IndexConfig     `yaml:"index" toml:"index"`
	Ingestion IngestionConfig `yaml:"ingestion" toml:"ingestion"`
	Fetch     FetchConfig     `yaml:"fetch" toml:"fetch"`
	Retention RetentionConfig `yaml:"retention" toml:"retention"`
}

// AIConfig points at the OpenAI-compatible completion and embedding services.
type AIConfig struct {
	EmbeddingHost   string  `yaml:"embedding_host" toml:"embedding_host"`
	CompletionHost  string  `yaml:"completion_host" toml:"completion_host"`
	EmbeddingModel  string  `yaml:"embedding_model" toml:"embedding_model"`
	CompletionModel string  `yaml:"completion_model" toml:"completion_model"`
	APIKey          string  `yaml:"api_key" toml:"api_key"`
	Temperature     float64 `yaml:"temperature" toml:"temperature"`
	ParseAttempts   int     `yaml:"parse_attempts" toml:"parse_attempts"`
}

// ScoringConfig tunes the importance scorer.
type ScoringConfig struct {
	BatchSize     int                 `yaml:"batch_size" toml:"batch_size"`
	FallbackDelay Duration            `yaml:"fallback_delay" toml:"fallback_delay"`
	DomainTiers   scoring.DomainTiers `yaml:"domain_tiers" toml:"domain_tiers"`
	Defaults      scoring.Defaults    `yaml:"defaults" toml:"defaults"`
}

// IndexConfig tunes the retrieval index.
type IndexConfig struct {
	MaxAge          Duration `yaml:"max_age" toml:"max_age"`
	MinScore        int      `yaml:"min_score" toml:"min_score"`
	ChunkSize       int      `yaml:"chunk_size" toml:"chunk_size"`
	ChunkOverlap    int      `yaml:"chunk_overlap" toml:"chunk_overlap"`
	FallbackCap     int      `yaml:"fallback_cap" toml:"fallback_cap"`
	FlushInterval   Duration `yaml:"flush_interval" toml:"flush_interval"`
	RebuildInterval Duration `yaml:"rebuild_interval" toml:"rebuild_interval"`
	EmbedBatchSize  int      `yaml:"embed_batch_size" toml:"embed_batch_size"`
	MaxRetries      int      `yaml:"max_retries" toml:"max_retries"`
	RetryDelay      Duration `yaml:"retry_delay" toml:"retry_delay"`
}

// IngestionConfig controls scheduled runs.
type IngestionConfig struct {
	// Interval between scheduled runs. Zero disables scheduling.
	Interval        Duration `yaml:"interval" toml:"interval"`
	RunOnStart      bool     `yaml:"run_on_start" toml:"run_on_start"`
	PrefilterWindow Duration `yaml:"prefilter_window" toml:"prefilter_window"`
}

// FetchConfig controls the feed fetcher.
type FetchConfig struct {
	FeedTemplate string   `yaml:"feed_template" toml:"feed_template"`
	UserAgent    string   `yaml:"user_agent" toml:"user_agent"`
	MaxItems     int      `yaml:"max_items" toml:"max_items"`
	PageFetch    bool     `yaml:"page_fetch" toml:"page_fetch"`
	RequestRate  float64  `yaml:"request_rate" toml:"request_rate"`
	Timeout      Duration `yaml:"timeout" toml:"timeout"`
}

// RetentionConfig controls the article purge job.
type RetentionConfig struct {
	// MaxAge of stored articles. Zero keeps everything.
	MaxAge        Duration `yaml:"max_age" toml:"max_age"`
	PurgeInterval Duration `yaml:"purge_interval" toml:"purge_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	chunker := index.DefaultChunker()
	return &Config{
		DataDir: defaultDataDir(),
		AI: AIConfig{
			EmbeddingHost:   aiDefaults.EmbeddingHost,
			CompletionHost:  aiDefaults.CompletionHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			CompletionModel: aiDefaults.CompletionModel,
			APIKey:          aiDefaults.APIKey,
			Temperature:     aiDefaults.Temperature,
			ParseAttempts:   aiDefaults.ParseAttempts,
		},
		Scoring: ScoringConfig{
			BatchSize:     10,
			FallbackDelay: Duration(500 * time.Millisecond),
			DomainTiers:   scoring.DefaultDomainTiers(),
			Defaults:      scoring.DefaultDefaults(),
		},
		Index: IndexConfig{
			MaxAge:          Duration(index.DefaultMaxAge),
			MinScore:        index.DefaultMinScore,
			ChunkSize:       chunker.Size,
			ChunkOverlap:    chunker.Overlap,
			FallbackCap:     chunker.FallbackCap,
			FlushInterval:   Duration(30 * time.Second),
			RebuildInterval: Duration(24 * time.Hour),
			EmbedBatchSize:  32,
			MaxRetries:      3,
			RetryDelay:      Duration(time.Second),
		},
		Ingestion: IngestionConfig{
			Interval:        Duration(6 * time.Hour),
			PrefilterWindow: Duration(30 * 24 * time.Hour),
		},
		Fetch: FetchConfig{
			FeedTemplate: fetch.DefaultFeedTemplate,
			UserAgent:    "newswire/1.0",
			MaxItems:     20,
			PageFetch:    true,
			RequestRate:  2,
			Timeout:      Duration(20 * time.Second),
		},
		Retention: RetentionConfig{
			MaxAge:        Duration(30 * 24 * time.Hour),
			PurgeInterval: Duration(24 * time.Hour),
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".newswire"
	}
	return filepath.Join(home, ".newswire")
}

// Load reads path over the defaults and applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			format, err := FormatOf(path)
			if err != nil {
				return nil, err
			}
			if err := cfg.decode(raw, format); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FormatOf picks the decoder from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// decode overlays raw onto c. Keys absent from raw keep their current values.
func (c *Config) decode(raw []byte, format Format) error {
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		return dec.Decode(c)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Encode writes c in the given format.
func (c *Config) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(c)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

const envPrefix = "NEWSWIRE_"

type envBinding struct {
	name  string
	apply func(c *Config, value string) error
}

func stringEnv(name string, field func(*Config) *string) envBinding {
	return envBinding{name: name, apply: func(c *Config, v string) error {
		*field(c) = v
		return nil
	}}
}

func durationEnv(name string, field func(*Config) *Duration) envBinding {
	return envBinding{name: name, apply: func(c *Config, v string) error {
		return field(c).UnmarshalText([]byte(v))
	}}
}

func intEnv(name string, field func(*Config) *int) envBinding {
	return envBinding{name: name, apply: func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}}
}

var envBindings = []envBinding{
	stringEnv("DATA_DIR", func(c *Config) *string { return &c.DataDir }),
	{name: "AI_HOST", apply: func(c *Config, v string) error {
		c.AI.EmbeddingHost = v
		c.AI.CompletionHost = v
		return nil
	}},
	stringEnv("EMBEDDING_HOST", func(c *Config) *string { return &c.AI.EmbeddingHost }),
	stringEnv("COMPLETION_HOST", func(c *Config) *string { return &c.AI.CompletionHost }),
	stringEnv("EMBEDDING_MODEL", func(c *Config) *string { return &c.AI.EmbeddingModel }),
	stringEnv("COMPLETION_MODEL", func(c *Config) *string { return &c.AI.CompletionModel }),
	stringEnv("API_KEY", func(c *Config) *string { return &c.AI.APIKey }),
	stringEnv("FEED_TEMPLATE", func(c *Config) *string { return &c.Fetch.FeedTemplate }),
	durationEnv("INGEST_INTERVAL", func(c *Config) *Duration { return &c.Ingestion.Interval }),
	durationEnv("RETENTION", func(c *Config) *Duration { return &c.Retention.MaxAge }),
	intEnv("INDEX_MIN_SCORE", func(c *Config) *int { return &c.Index.MinScore }),
}

// applyEnv overlays NEWSWIRE_* variables. Empty values are ignored.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(envPrefix + b.name)
		if !ok || v == "" {
			continue
		}
		if err := b.apply(c, v); err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, b.name, err)
		}
	}
	return nil
}

// Validate checks value ranges. The AI section is checked through ai.Config.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.DataDir != "", "data_dir is required")
	if err := c.AIConfig().Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	check(c.Scoring.BatchSize >= 1, "scoring.batch_size must be at least 1")
	check(c.Scoring.FallbackDelay >= 0, "scoring.fallback_delay must not be negative")

	check(c.Index.MaxAge > 0, "index.max_age must be positive")
	check(c.Index.MinScore >= 0 && c.Index.MinScore <= 100, "index.min_score must be between 0 and 100")
	check(c.Index.ChunkSize > 0, "index.chunk_size must be positive")
	check(c.Index.ChunkOverlap >= 0 && c.Index.ChunkOverlap < c.Index.ChunkSize,
		"index.chunk_overlap must be between 0 and chunk_size")
	check(c.Index.FallbackCap > 0, "index.fallback_cap must be positive")
	check(c.Index.FlushInterval > 0, "index.flush_interval must be positive")
	check(c.Index.RebuildInterval >= 0, "index.rebuild_interval must not be negative")
	check(c.Index.EmbedBatchSize >= 1, "index.embed_batch_size must be at least 1")
	check(c.Index.MaxRetries >= 1, "index.max_retries must be at least 1")

	check(c.Ingestion.Interval >= 0, "ingestion.interval must not be negative")
	check(c.Ingestion.PrefilterWindow >= 0, "ingestion.prefilter_window must not be negative")

	check(strings.Contains(c.Fetch.FeedTemplate, fetch.KeywordPlaceholder),
		"fetch.feed_template must contain %s", fetch.KeywordPlaceholder)
	check(c.Fetch.MaxItems >= 1, "fetch.max_items must be at least 1")
	check(c.Fetch.Timeout > 0, "fetch.timeout must be positive")

	check(c.Retention.MaxAge >= 0, "retention.max_age must not be negative")
	check(c.Retention.MaxAge == 0 || c.Retention.PurgeInterval > 0,
		"retention.purge_interval must be positive when retention is enabled")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// AIConfig converts the AI section into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithCompletionHost(c.AI.CompletionHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithCompletionModel(c.AI.CompletionModel),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithTemperature(c.AI.Temperature),
		ai.WithParseAttempts(c.AI.ParseAttempts),
	)
}

// Policy returns the index eligibility policy.
func (c *Config) Policy() index.Policy {
	return index.Policy{MaxAge: c.Index.MaxAge.Std(), MinScore: c.Index.MinScore}
}

// Chunker returns the index chunking parameters.
func (c *Config) Chunker() index.Chunker {
	return index.Chunker{
		Size:        c.Index.ChunkSize,
		Overlap:     c.Index.ChunkOverlap,
		FallbackCap: c.Index.FallbackCap,
	}
}

// IndexDir is where the durable index snapshot lives.
func (c *Config) IndexDir() string {
	return filepath.Join(c.DataDir, "index")
}
