package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Config is the root configuration for RetailBot.
type Config struct {
	General   GeneralConfig             `json:"general"`
	Server    ServerConfig              `json:"server"`
	Channels  ChannelsConfig            `json:"channels"`
	Providers map[string]ProviderConfig `json:"providers"`
	Analytics AnalyticsConfig           `json:"analytics"`
	Knowledge KnowledgeConfig           `json:"knowledge"`
	Metrics   MetricsConfig             `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel              string   `json:"logLevel"`
	LogFile               string   `json:"logFile,omitempty"`
	DefaultStore          string   `json:"defaultStore"`
	DefaultLanguage       string   `json:"defaultLanguage,omitempty"`
	DefaultProvider       string   `json:"defaultProvider"`
	FailoverChain         []string `json:"failoverChain,omitempty"` // provider failover order
	MaxConcurrentMessages int      `json:"maxConcurrentMessages"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type ProviderConfig struct {
	Enabled        bool   `json:"enabled"`
	APIBase        string `json:"apiBase,omitempty"`
	APIKey         string `json:"apiKey,omitempty"`
	DefaultModel   string `json:"defaultModel,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	CLI      CLIConfig      `json:"cli"`
}

type TelegramConfig struct {
	Enabled   bool           `json:"enabled"`
	Token     string         `json:"token"`
	AllowFrom FlexStringList `json:"allowFrom"`
	ParseMode string         `json:"parseMode"`
}

// FlexStringList is a []string that can unmarshal from JSON arrays containing
// both strings and numbers (e.g. ["123", 456] both become "123", "456").
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	// Fallback: array of mixed types
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

// AnalyticsConfig configures the durable aggregate store and its in-process
// fallback cache.
type AnalyticsConfig struct {
	DBPath     string `json:"dbPath"`
	MaxStores  int    `json:"maxStores"`  // fallback cache store bound
	MaxFAQKeys int    `json:"maxFaqKeys"` // fallback cache per-store FAQ bound
}

// KnowledgeConfig configures the per-store knowledge base.
type KnowledgeConfig struct {
	Dir string `json:"dir"` // directory of <storeID>.yaml seed trees
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.retailbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".retailbot"
	}
	return filepath.Join(home, ".retailbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Analytics.DBPath = ExpandPath(cfg.Analytics.DBPath)
	cfg.Knowledge.Dir = ExpandPath(cfg.Knowledge.Dir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.MaxConcurrentMessages < 1 || cfg.General.MaxConcurrentMessages > 100 {
		errs = append(errs, "general.maxConcurrentMessages must be between 1 and 100")
	}
	if cfg.General.DefaultStore == "" {
		errs = append(errs, "general.defaultStore must not be empty")
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}

	if cfg.Analytics.DBPath == "" {
		errs = append(errs, "analytics.dbPath must not be empty")
	}
	if cfg.Analytics.MaxStores < 1 {
		errs = append(errs, "analytics.maxStores must be >= 1")
	}
	if cfg.Analytics.MaxFAQKeys < 1 {
		errs = append(errs, "analytics.maxFaqKeys must be >= 1")
	}

	// Validate failover chain references exist in providers.
	for _, provName := range cfg.General.FailoverChain {
		if _, ok := cfg.Providers[provName]; !ok {
			errs = append(errs, fmt.Sprintf("general.failoverChain references unknown provider: %s", provName))
		}
	}

	// Providers without a built-in default need an endpoint.
	for name, pc := range cfg.Providers {
		if pc.Enabled && pc.APIBase == "" && name != "ollama" && name != "openai" {
			errs = append(errs, fmt.Sprintf("providers.%s: apiBase is required", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
