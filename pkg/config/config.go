package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/killallgit/sermon-clips/internal/suggest/usage"
)

const (
	EnvPrefix         = "SERMON"
	DefaultConfigPath = "./config/settings.yaml"
)

var (
	once       sync.Once
	initErr    error
	configPath = DefaultConfigPath
)

// SetConfigPath overrides the settings file location. It must be called
// before Init.
func SetConfigPath(path string) {
	if path != "" {
		configPath = path
	}
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		setDefaults()

		viper.SetEnvPrefix(EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		viper.AutomaticEnv()
		bindProviderKeys()

		path := filepath.Clean(configPath)
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
				initErr = fmt.Errorf("error reading config file %s: %w", path, err)
				return
			}
		}

		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// bindProviderKeys accepts the conventional provider variables alongside
// the prefixed ones.
func bindProviderKeys() {
	_ = viper.BindEnv("llm.providers.deepseek.api_key", EnvPrefix+"_LLM_PROVIDERS_DEEPSEEK_API_KEY", "DEEPSEEK_API_KEY")
	_ = viper.BindEnv("llm.providers.openai.api_key", EnvPrefix+"_LLM_PROVIDERS_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("embeddings.api_key", EnvPrefix+"_EMBEDDINGS_API_KEY", "OPENAI_API_KEY")
}

// Watch logs changes to the settings file. Suggestion runs read their
// settings through GetConfig, so the next run sees the new values.
func Watch(onChange func(fsnotify.Event)) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	if _, err := os.Stat(viper.ConfigFileUsed()); err != nil {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("[INFO] Config file changed: %s (%s)", e.Name, e.Op)
		if err := validate(); err != nil {
			log.Printf("[WARN] Reloaded configuration is invalid: %v", err)
		}
		if onChange != nil {
			onChange(e)
		}
	})
	viper.WatchConfig()
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// Set overrides a value at runtime, e.g. from a command line flag.
func Set(key string, value any) {
	viper.Set(key, value)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if t := viper.GetFloat64("suggestions.semantic_dedupe_threshold"); t <= 0 || t > 1 {
		return fmt.Errorf("suggestions.semantic_dedupe_threshold must be in (0, 1], got %v", t)
	}
	if t := viper.GetFloat64("suggestions.overlap_threshold"); t <= 0 || t > 1 {
		return fmt.Errorf("suggestions.overlap_threshold must be in (0, 1], got %v", t)
	}

	if err := validateAPIKeys(); err != nil {
		return err
	}

	// Auto-correct invalid worker counts
	for _, queue := range []string{"transcription", "suggestion", "embedding", "render_preview", "render_final", "default"} {
		key := "queues.pools." + queue + ".concurrency"
		if viper.GetInt(key) <= 0 {
			viper.Set(key, 1)
		}
	}
	if viper.GetInt("llm.parallelism") <= 0 {
		viper.Set("llm.parallelism", 4)
	}
	if viper.GetInt("embeddings.batch_size") <= 0 {
		viper.Set("embeddings.batch_size", 64)
	}

	return nil
}

var placeholders = []string{"YOUR_KEY_HERE", "YOUR_API_KEY", "changeme", "CHANGEME"}

// validateAPIKeys rejects placeholder keys in production. Missing keys are
// allowed: suggestion runs fall back to heuristics without them.
func validateAPIKeys() error {
	env := viper.GetString("environment")
	isProduction := env == "production" || env == "prod"

	for _, key := range []string{"llm.providers.deepseek.api_key", "llm.providers.openai.api_key", "embeddings.api_key"} {
		value := viper.GetString(key)
		for _, placeholder := range placeholders {
			if value != placeholder {
				continue
			}
			if isProduction {
				return fmt.Errorf("invalid %s: cannot use placeholder values in production", key)
			}
			log.Printf("[WARN] %s is using a placeholder value", key)
		}
	}
	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Suggestions.SemanticDedupeThreshold <= 0 || c.Suggestions.SemanticDedupeThreshold > 1 {
		return fmt.Errorf("invalid semantic dedupe threshold: %v", c.Suggestions.SemanticDedupeThreshold)
	}
	for name, pool := range c.Queues.Pools {
		if pool.Concurrency <= 0 {
			pool.Concurrency = 1
			c.Queues.Pools[name] = pool
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.max_body_bytes", 20*1024*1024)

	// Database defaults
	viper.SetDefault("database.path", "./data/sermons.db")
	viper.SetDefault("database.verbose", false)

	// Queue defaults
	viper.SetDefault("queues.poll_interval", 2*time.Second)
	viper.SetDefault("queues.max_retries", 3)
	viper.SetDefault("queues.backoff_base", 5*time.Second)
	viper.SetDefault("queues.backoff_max", 300*time.Second)
	viper.SetDefault("queues.backoff_jitter", 3*time.Second)
	viper.SetDefault("queues.job_retention", 7*24*time.Hour)
	viper.SetDefault("queues.stale_after", time.Duration(0))
	viper.SetDefault("queues.pools.transcription.concurrency", 1)
	viper.SetDefault("queues.pools.suggestion.concurrency", 2)
	viper.SetDefault("queues.pools.embedding.concurrency", 1)
	viper.SetDefault("queues.pools.render_preview.concurrency", 2)
	viper.SetDefault("queues.pools.render_final.concurrency", 1)
	viper.SetDefault("queues.pools.default.concurrency", 1)

	// Suggestion defaults
	viper.SetDefault("suggestions.max_candidates", 200)
	viper.SetDefault("suggestions.max_suggestions", 15)
	viper.SetDefault("suggestions.min_suggestions", 5)
	viper.SetDefault("suggestions.selection_target", 10)
	viper.SetDefault("suggestions.overlap_threshold", 0.60)
	viper.SetDefault("suggestions.semantic_dedupe_threshold", 0.86)
	viper.SetDefault("suggestions.auto_trim_confidence", 0.8)
	viper.SetDefault("suggestions.lexicon_path", "")

	// LLM defaults
	viper.SetDefault("llm.use_llm", false)
	viper.SetDefault("llm.default_method", "scoring")
	viper.SetDefault("llm.default_provider", "deepseek")
	viper.SetDefault("llm.max_candidates", 15)
	viper.SetDefault("llm.scoring_batch_size", 5)
	viper.SetDefault("llm.parallelism", 4)
	viper.SetDefault("llm.heuristic_weight", 0.3)
	viper.SetDefault("llm.max_attempts", 3)
	viper.SetDefault("llm.backoff_base", 1*time.Second)
	viper.SetDefault("llm.backoff_max", 30*time.Second)
	viper.SetDefault("llm.window_words", 3000)
	viper.SetDefault("llm.window_overlap_words", 300)
	viper.SetDefault("llm.candidates_per_window", 20)
	viper.SetDefault("llm.chunk_words", 6000)
	viper.SetDefault("llm.clips_per_chunk", 8)
	viper.SetDefault("llm.full_context_chars", 240000)
	viper.SetDefault("llm.full_context_min_clips", 5)
	viper.SetDefault("llm.full_context_max_clips", 15)

	viper.SetDefault("llm.providers.deepseek.api_key", "")
	viper.SetDefault("llm.providers.deepseek.base_url", "https://api.deepseek.com")
	viper.SetDefault("llm.providers.deepseek.model", "deepseek-chat")
	viper.SetDefault("llm.providers.deepseek.timeout", 60*time.Second)
	viper.SetDefault("llm.providers.deepseek.requests_per_minute", 60)
	viper.SetDefault("llm.providers.deepseek.temperature", 0.2)
	viper.SetDefault("llm.providers.deepseek.json_mode", true)

	viper.SetDefault("llm.providers.openai.api_key", "")
	viper.SetDefault("llm.providers.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.providers.openai.model", "gpt-4o-mini")
	viper.SetDefault("llm.providers.openai.timeout", 60*time.Second)
	viper.SetDefault("llm.providers.openai.requests_per_minute", 60)
	viper.SetDefault("llm.providers.openai.temperature", 0.2)
	viper.SetDefault("llm.providers.openai.json_mode", true)

	for key, price := range usage.DefaultPricing() {
		viper.SetDefault("llm.pricing."+key+".prompt_per_million", price.PromptPerMillion)
		viper.SetDefault("llm.pricing."+key+".completion_per_million", price.CompletionPerMillion)
		viper.SetDefault("llm.pricing."+key+".cache_hit_per_million", price.CacheHitPerMillion)
	}

	// Embedding defaults
	viper.SetDefault("embeddings.api_key", "")
	viper.SetDefault("embeddings.base_url", "https://api.openai.com/v1")
	viper.SetDefault("embeddings.model", "text-embedding-3-small")
	viper.SetDefault("embeddings.batch_size", 64)
	viper.SetDefault("embeddings.timeout", 60*time.Second)

	// Transcription defaults
	viper.SetDefault("transcription.timeout", 30*time.Second)
	viper.SetDefault("transcription.max_size", 10*1024*1024)
	viper.SetDefault("transcription.user_agent", "SermonClips/1.0")

	// Render defaults
	viper.SetDefault("render.ffmpeg_path", "ffmpeg")
	viper.SetDefault("render.ffprobe_path", "ffprobe")
	viper.SetDefault("render.timeout", 10*time.Minute)
	viper.SetDefault("render.output_dir", "./data/renders")
	viper.SetDefault("render.temp_dir", "./tmp")
	viper.SetDefault("render.max_temp_age", 24*time.Hour)
	viper.SetDefault("render.cleanup_interval", 1*time.Hour)
	viper.SetDefault("render.download_timeout", 10*time.Minute)
	viper.SetDefault("render.max_source_bytes", int64(4)<<30)

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.requests_per_minute", 120)
	viper.SetDefault("rate_limiting.burst", 20)

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{"*"})
	viper.SetDefault("security.cors_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors_headers", []string{"Content-Type", "Authorization"})

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.json", false)
}
