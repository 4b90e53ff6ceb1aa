// Package config loads the scheduler's environment-driven knobs through
// viper, the same configuration library the teacher's engine options
// layer builds on.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/wyrmwatch/sentinel/outbound"
)

// Config holds every env-tunable value the scheduler and its collaborators
// consult, with defaults matching the spec's stated values.
type Config struct {
	ThreadID                  string
	CheckpointTTL             time.Duration
	MarketChangeThreshold     float64
	RateLimitMinInterval      time.Duration
	SignificanceThreadLevel   float64
	SignificanceBridgeLevel   float64
	PatternMinConfidence      float64
	EmotionalMinIntensityDiff float64
	CausalCacheTTL            time.Duration

	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string

	StoreDSN    string
	StoreDriver string // "memory", "sqlite", "mysql"
	RedisAddr   string

	LogJSON          bool
	NewsQuery        string
	PostQueueMaxSize int
}

// Load reads configuration from the process environment (with the SENTINEL
// prefix, e.g. SENTINEL_THREAD_ID), falling back to the documented
// defaults for anything unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("sentinel")
	v.AutomaticEnv()

	v.SetDefault("thread_id", "default")
	v.SetDefault("checkpoint_ttl_seconds", 0)
	v.SetDefault("market_change_threshold", 0.05)
	v.SetDefault("rate_limit_min_interval_ms", 1100)
	v.SetDefault("significance_threshold_thread", 0.8)
	v.SetDefault("significance_threshold_bridge", 0.6)
	v.SetDefault("pattern_min_confidence", 0.6)
	v.SetDefault("emotional_min_intensity_change", 0.3)
	v.SetDefault("causal_cache_ttl_seconds", 3600)
	v.SetDefault("store_driver", "memory")
	v.SetDefault("store_dsn", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("log_json", false)
	v.SetDefault("news_query", "")
	v.SetDefault("post_queue_max_size", outbound.DefaultMaxQueueSize)

	cfg := &Config{
		ThreadID:                  v.GetString("thread_id"),
		CheckpointTTL:             time.Duration(v.GetInt64("checkpoint_ttl_seconds")) * time.Second,
		MarketChangeThreshold:     v.GetFloat64("market_change_threshold"),
		RateLimitMinInterval:      time.Duration(v.GetInt64("rate_limit_min_interval_ms")) * time.Millisecond,
		SignificanceThreadLevel:   v.GetFloat64("significance_threshold_thread"),
		SignificanceBridgeLevel:   v.GetFloat64("significance_threshold_bridge"),
		PatternMinConfidence:      v.GetFloat64("pattern_min_confidence"),
		EmotionalMinIntensityDiff: v.GetFloat64("emotional_min_intensity_change"),
		CausalCacheTTL:            time.Duration(v.GetInt64("causal_cache_ttl_seconds")) * time.Second,
		AnthropicAPIKey:           v.GetString("anthropic_api_key"),
		OpenAIAPIKey:              v.GetString("openai_api_key"),
		GoogleAPIKey:              v.GetString("google_api_key"),
		StoreDSN:                  v.GetString("store_dsn"),
		StoreDriver:               v.GetString("store_driver"),
		RedisAddr:                 v.GetString("redis_addr"),
		LogJSON:                   v.GetBool("log_json"),
		NewsQuery:                 v.GetString("news_query"),
		PostQueueMaxSize:          v.GetInt("post_queue_max_size"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ThreadID == "" {
		return fmt.Errorf("config: thread_id must not be empty")
	}
	switch c.StoreDriver {
	case "memory", "sqlite", "mysql":
	default:
		return fmt.Errorf("config: unknown store_driver %q", c.StoreDriver)
	}
	return nil
}
