package config

import (
	"time"

	"github.com/killallgit/sermon-clips/internal/suggest/usage"
)

// Config represents the complete application configuration
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Queues        QueuesConfig        `mapstructure:"queues"`
	Suggestions   SuggestionsConfig   `mapstructure:"suggestions"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Embeddings    EmbeddingsConfig    `mapstructure:"embeddings"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Render        RenderConfig        `mapstructure:"render"`
	RateLimiting  RateLimitConfig     `mapstructure:"rate_limiting"`
	Security      SecurityConfig      `mapstructure:"security"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// QueuesConfig controls the job queue and its worker pools
type QueuesConfig struct {
	PollInterval  time.Duration          `mapstructure:"poll_interval"`
	MaxRetries    int                    `mapstructure:"max_retries"`
	BackoffBase   time.Duration          `mapstructure:"backoff_base"`
	BackoffMax    time.Duration          `mapstructure:"backoff_max"`
	BackoffJitter time.Duration          `mapstructure:"backoff_jitter"`
	JobRetention  time.Duration          `mapstructure:"job_retention"`
	StaleAfter    time.Duration          `mapstructure:"stale_after"`
	Pools         map[string]QueueConfig `mapstructure:"pools"`
}

// QueueConfig sizes one worker pool
type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// SuggestionsConfig tunes candidate generation, dedup and persistence
type SuggestionsConfig struct {
	MaxCandidates           int     `mapstructure:"max_candidates"`
	MaxSuggestions          int     `mapstructure:"max_suggestions"`
	MinSuggestions          int     `mapstructure:"min_suggestions"`
	SelectionTarget         int     `mapstructure:"selection_target"`
	OverlapThreshold        float64 `mapstructure:"overlap_threshold"`
	SemanticDedupeThreshold float64 `mapstructure:"semantic_dedupe_threshold"`
	AutoTrimConfidence      float64 `mapstructure:"auto_trim_confidence"`
	LexiconPath             string  `mapstructure:"lexicon_path"`
}

// LLMConfig contains the LLM strategy settings shared by every provider
type LLMConfig struct {
	UseLLM              bool                      `mapstructure:"use_llm"`
	DefaultMethod       string                    `mapstructure:"default_method"`
	DefaultProvider     string                    `mapstructure:"default_provider"`
	MaxCandidates       int                       `mapstructure:"max_candidates"`
	ScoringBatchSize    int                       `mapstructure:"scoring_batch_size"`
	Parallelism         int                       `mapstructure:"parallelism"`
	HeuristicWeight     float64                   `mapstructure:"heuristic_weight"`
	MaxAttempts         int                       `mapstructure:"max_attempts"`
	BackoffBase         time.Duration             `mapstructure:"backoff_base"`
	BackoffMax          time.Duration             `mapstructure:"backoff_max"`
	WindowWords         int                       `mapstructure:"window_words"`
	WindowOverlapWords  int                       `mapstructure:"window_overlap_words"`
	CandidatesPerWindow int                       `mapstructure:"candidates_per_window"`
	ChunkWords          int                       `mapstructure:"chunk_words"`
	ClipsPerChunk       int                       `mapstructure:"clips_per_chunk"`
	FullContextChars    int                       `mapstructure:"full_context_chars"`
	FullContextMinClips int                       `mapstructure:"full_context_min_clips"`
	FullContextMaxClips int                       `mapstructure:"full_context_max_clips"`
	Providers           map[string]ProviderConfig `mapstructure:"providers"`
	Pricing             usage.PricingTable        `mapstructure:"pricing"`
}

// ProviderConfig contains one OpenAI-compatible provider's settings
type ProviderConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Temperature       float64       `mapstructure:"temperature"`
	JSONMode          bool          `mapstructure:"json_mode"`
}

// EmbeddingsConfig contains the OpenAI embeddings settings
type EmbeddingsConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	BatchSize int           `mapstructure:"batch_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// TranscriptionConfig controls fetching transcripts from the speech-to-text service
type TranscriptionConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxSize   int64         `mapstructure:"max_size"`
	UserAgent string        `mapstructure:"user_agent"`
}

// RenderConfig contains clip rendering settings
type RenderConfig struct {
	FFmpegPath      string        `mapstructure:"ffmpeg_path"`
	FFprobePath     string        `mapstructure:"ffprobe_path"`
	Timeout         time.Duration `mapstructure:"timeout"`
	OutputDir       string        `mapstructure:"output_dir"`
	TempDir         string        `mapstructure:"temp_dir"`
	MaxTempAge      time.Duration `mapstructure:"max_temp_age"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	MaxSourceBytes  int64         `mapstructure:"max_source_bytes"`
}

// RateLimitConfig contains per-client API rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	EnableCORS  bool     `mapstructure:"enable_cors"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	CORSMethods []string `mapstructure:"cors_methods"`
	CORSHeaders []string `mapstructure:"cors_headers"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}
