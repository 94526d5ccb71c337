package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig is the subset of Settings that may come from a config file.
// Zero values mean "unspecified" and leave the current value untouched.
// Timeouts stay environment-only; the file covers topology and limits.
type FileConfig struct {
	Host            string   `json:"host" yaml:"host" toml:"host"`
	Port            int      `json:"port" yaml:"port" toml:"port"`
	LogLevel        string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat       string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	ModelConfigPath string   `json:"model_config_path" yaml:"model_config_path" toml:"model_config_path"`
	DefaultModel    string   `json:"default_model" yaml:"default_model" toml:"default_model"`
	MemoryBudgetMB  int      `json:"memory_budget_mb" yaml:"memory_budget_mb" toml:"memory_budget_mb"`
	MemoryMarginMB  int      `json:"memory_margin_mb" yaml:"memory_margin_mb" toml:"memory_margin_mb"`
	RedisURL        string   `json:"redis_url" yaml:"redis_url" toml:"redis_url"`
	APIKeyHeader    string   `json:"api_key_header" yaml:"api_key_header" toml:"api_key_header"`
	AllowedOrigins  []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	Adapter         string   `json:"adapter" yaml:"adapter" toml:"adapter"`
}

// LoadFile reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Apply overlays non-zero file values onto s.
func (c FileConfig) Apply(s Settings) Settings {
	if c.Host != "" {
		s.Host = c.Host
	}
	if c.Port != 0 {
		s.Port = c.Port
	}
	if c.LogLevel != "" {
		s.LogLevel = c.LogLevel
	}
	if c.LogFormat != "" {
		s.LogFormat = c.LogFormat
	}
	if c.ModelConfigPath != "" {
		s.ModelConfigPath = c.ModelConfigPath
	}
	if c.DefaultModel != "" {
		s.DefaultModel = c.DefaultModel
	}
	if c.MemoryBudgetMB != 0 {
		s.MemoryBudgetMB = c.MemoryBudgetMB
	}
	if c.MemoryMarginMB != 0 {
		s.MemoryMarginMB = c.MemoryMarginMB
	}
	if c.RedisURL != "" {
		s.RedisURL = c.RedisURL
	}
	if c.APIKeyHeader != "" {
		s.APIKeyHeader = c.APIKeyHeader
	}
	if len(c.AllowedOrigins) > 0 {
		s.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	}
	if c.Adapter != "" {
		s.Adapter = c.Adapter
	}
	return s
}
