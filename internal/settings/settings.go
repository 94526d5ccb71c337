// Package settings holds runtime configuration for the aicored daemon.
// Values come from, in increasing precedence: built-in defaults, an optional
// config file, environment variables (with .env support), then flags set by
// main.
package settings

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds runtime parameters for the service.
type Settings struct {
	Host string `json:"host" yaml:"host" toml:"host"`
	Port int    `json:"port" yaml:"port" toml:"port"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	ModelConfigPath string `json:"model_config_path" yaml:"model_config_path" toml:"model_config_path"`
	DefaultModel    string `json:"default_model" yaml:"default_model" toml:"default_model"`

	MemoryBudgetMB int `json:"memory_budget_mb" yaml:"memory_budget_mb" toml:"memory_budget_mb"`
	MemoryMarginMB int `json:"memory_margin_mb" yaml:"memory_margin_mb" toml:"memory_margin_mb"`

	LoadTimeout   time.Duration `json:"load_timeout" yaml:"load_timeout" toml:"load_timeout"`
	UnloadTimeout time.Duration `json:"unload_timeout" yaml:"unload_timeout" toml:"unload_timeout"`
	MaxQueueDepth int           `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxQueueWait  time.Duration `json:"max_queue_wait" yaml:"max_queue_wait" toml:"max_queue_wait"`

	RedisURL      string        `json:"redis_url" yaml:"redis_url" toml:"redis_url"`
	RedisPassword string        `json:"redis_password" yaml:"redis_password" toml:"redis_password"`
	RedisDB       int           `json:"redis_db" yaml:"redis_db" toml:"redis_db"`
	RedisTimeout  time.Duration `json:"redis_timeout" yaml:"redis_timeout" toml:"redis_timeout"`
	CacheEnabled  bool          `json:"cache_enabled" yaml:"cache_enabled" toml:"cache_enabled"`
	CacheTTL      time.Duration `json:"cache_ttl" yaml:"cache_ttl" toml:"cache_ttl"`

	APIKeys      []string      `json:"api_keys" yaml:"api_keys" toml:"api_keys"`
	APIKeyHeader string        `json:"api_key_header" yaml:"api_key_header" toml:"api_key_header"`
	JWTSecret    string        `json:"jwt_secret_key" yaml:"jwt_secret_key" toml:"jwt_secret_key"`
	JWTExpiry    time.Duration `json:"jwt_expiry" yaml:"jwt_expiry" toml:"jwt_expiry"`

	MaxPromptLength     int `json:"max_prompt_length" yaml:"max_prompt_length" toml:"max_prompt_length"`
	MaxTokensPerRequest int `json:"max_tokens_per_request" yaml:"max_tokens_per_request" toml:"max_tokens_per_request"`

	EnableCORS     bool     `json:"enable_cors" yaml:"enable_cors" toml:"enable_cors"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`

	// Inference adapter selection: echo or llama.
	Adapter      string `json:"adapter" yaml:"adapter" toml:"adapter"`
	LlamaCtx     int    `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads int    `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
}

// Default returns the built-in defaults, matching the documented .env values.
func Default() Settings {
	return Settings{
		Host:                "0.0.0.0",
		Port:                8000,
		LogLevel:            "info",
		LogFormat:           "json",
		ModelConfigPath:     "config/models.json",
		LoadTimeout:         300 * time.Second,
		UnloadTimeout:       60 * time.Second,
		MaxQueueDepth:       32,
		MaxQueueWait:        30 * time.Second,
		RedisURL:            "redis://localhost:6379",
		RedisTimeout:        5 * time.Second,
		CacheEnabled:        true,
		CacheTTL:            time.Hour,
		APIKeyHeader:        "X-API-Key",
		JWTExpiry:           30 * time.Minute,
		MaxPromptLength:     4096,
		MaxTokensPerRequest: 2048,
		EnableCORS:          true,
		AllowedOrigins:      []string{"*"},
		Adapter:             "echo",
	}
}

// FromEnv loads a .env file when present (never overriding real environment
// variables) and applies environment overrides on top of s.
func (s Settings) FromEnv() Settings {
	_ = godotenv.Load() // best-effort; absence of .env is normal

	s.Host = envStr("API_HOST", s.Host)
	s.Port = envInt("API_PORT", s.Port)
	s.LogLevel = envStr("LOG_LEVEL", s.LogLevel)
	s.LogFormat = envStr("LOG_FORMAT", s.LogFormat)
	s.ModelConfigPath = envStr("MODEL_CONFIG_PATH", s.ModelConfigPath)
	s.DefaultModel = envStr("DEFAULT_MODEL", s.DefaultModel)
	s.MemoryBudgetMB = envInt("MEMORY_BUDGET_MB", s.MemoryBudgetMB)
	s.MemoryMarginMB = envInt("MEMORY_MARGIN_MB", s.MemoryMarginMB)
	s.LoadTimeout = envSeconds("MODEL_LOAD_TIMEOUT", s.LoadTimeout)
	s.UnloadTimeout = envSeconds("MODEL_UNLOAD_TIMEOUT", s.UnloadTimeout)
	s.MaxQueueDepth = envInt("MAX_QUEUE_DEPTH", s.MaxQueueDepth)
	s.MaxQueueWait = envSeconds("MAX_QUEUE_WAIT", s.MaxQueueWait)
	s.RedisURL = envStr("REDIS_URL", s.RedisURL)
	s.RedisPassword = envStr("REDIS_PASSWORD", s.RedisPassword)
	s.RedisDB = envInt("REDIS_DB", s.RedisDB)
	s.RedisTimeout = envSeconds("REDIS_TIMEOUT", s.RedisTimeout)
	s.CacheEnabled = envBool("CACHE_ENABLED", s.CacheEnabled)
	s.CacheTTL = envSeconds("CACHE_TTL", s.CacheTTL)
	if v := os.Getenv("API_KEYS"); v != "" {
		s.APIKeys = SplitCSV(v)
	}
	s.APIKeyHeader = envStr("API_KEY_HEADER", s.APIKeyHeader)
	s.JWTSecret = envStr("JWT_SECRET_KEY", s.JWTSecret)
	if v := envInt("JWT_EXPIRATION_MINUTES", 0); v > 0 {
		s.JWTExpiry = time.Duration(v) * time.Minute
	}
	s.MaxPromptLength = envInt("MAX_PROMPT_LENGTH", s.MaxPromptLength)
	s.MaxTokensPerRequest = envInt("MAX_TOKENS_PER_REQUEST", s.MaxTokensPerRequest)
	s.EnableCORS = envBool("ENABLE_CORS", s.EnableCORS)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		s.AllowedOrigins = SplitCSV(v)
	}
	s.Adapter = envStr("INFERENCE_ADAPTER", s.Adapter)
	s.LlamaCtx = envInt("LLAMA_CTX", s.LlamaCtx)
	s.LlamaThreads = envInt("LLAMA_THREADS", s.LlamaThreads)
	return s
}

// Validate rejects combinations the daemon cannot serve with.
func (s Settings) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	if s.ModelConfigPath == "" {
		return fmt.Errorf("model config path is required")
	}
	switch s.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q (json|console)", s.LogFormat)
	}
	switch s.Adapter {
	case "echo", "llama":
	default:
		return fmt.Errorf("unsupported inference adapter %q (echo|llama)", s.Adapter)
	}
	return nil
}

// Addr returns the listen address in host:port form.
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SplitCSV splits a comma-separated list, trimming blanks and empties.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// envSeconds reads an integer number of seconds, the unit the original
// deployment environment files used for all timeouts.
func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
