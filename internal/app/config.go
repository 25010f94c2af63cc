package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"torrentstream/streamresolver/internal/fetch"
)

const (
	DefaultSearchBase   = "https://ext.to"
	DefaultMetadataBase = "https://v3-cinemeta.strem.io"
	DefaultFallbackBase = "https://torrentio.strem.fun"
)

type Config struct {
	HTTPAddr          string
	LogLevel          string
	LogFormat         string
	UserAgent         string
	RequestTimeout    time.Duration
	Retries           int
	RetryBaseDelay    time.Duration
	SearchBase        string
	ProxyKey          string
	MetadataBase      string
	FallbackEnabled   bool
	FallbackBase      string
	RedisURL          string
	MetadataCacheTTL  time.Duration
	ConfigFile        string
	ConfigFileWarning string
}

// fileConfig mirrors Config for the optional TOML file. Pointers distinguish
// "not set" from zero values.
type fileConfig struct {
	HTTPAddr              *string `toml:"http_addr"`
	LogLevel              *string `toml:"log_level"`
	LogFormat             *string `toml:"log_format"`
	UserAgent             *string `toml:"user_agent"`
	RequestTimeoutSeconds *int    `toml:"request_timeout_seconds"`
	Retries               *int    `toml:"retries"`
	RetryBaseDelayMS      *int    `toml:"retry_base_delay_ms"`
	SearchBase            *string `toml:"search_base"`
	ProxyKey              *string `toml:"proxy_key"`
	MetadataBase          *string `toml:"metadata_base"`
	FallbackEnabled       *bool   `toml:"fallback_enabled"`
	FallbackBase          *string `toml:"fallback_base"`
	RedisURL              *string `toml:"redis_url"`
	MetadataCacheTTLHours *int    `toml:"metadata_cache_ttl_hours"`
}

func DefaultConfig() Config {
	retry := fetch.DefaultRetryConfig()
	return Config{
		HTTPAddr:         ":7000",
		LogLevel:         "info",
		LogFormat:        "text",
		UserAgent:        "stream-resolver/1.0",
		RequestTimeout:   12 * time.Second,
		Retries:          retry.Retries,
		RetryBaseDelay:   retry.BaseDelay,
		SearchBase:       DefaultSearchBase,
		MetadataBase:     DefaultMetadataBase,
		FallbackEnabled:  true,
		FallbackBase:     DefaultFallbackBase,
		MetadataCacheTTL: 24 * time.Hour,
	}
}

// LoadConfig builds the process configuration: defaults, then the TOML file
// named by STREAM_CONFIG_FILE, then environment variables. A broken file is
// not fatal; it is reported through ConfigFileWarning.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if path := strings.TrimSpace(os.Getenv("STREAM_CONFIG_FILE")); path != "" {
		cfg.ConfigFile = path
		loaded, err := LoadConfigFile(cfg, path)
		if err != nil {
			cfg.ConfigFileWarning = err.Error()
		} else {
			cfg = loaded
		}
	}
	return applyEnv(cfg)
}

// LoadConfigFile overlays the TOML file at path onto base.
func LoadConfigFile(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading config: %w", err)
	}
	var file fileConfig
	if err := toml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg := base
	setString(&cfg.HTTPAddr, file.HTTPAddr)
	setString(&cfg.LogLevel, file.LogLevel)
	setString(&cfg.LogFormat, file.LogFormat)
	setString(&cfg.UserAgent, file.UserAgent)
	setString(&cfg.SearchBase, file.SearchBase)
	setString(&cfg.MetadataBase, file.MetadataBase)
	setString(&cfg.FallbackBase, file.FallbackBase)
	setString(&cfg.RedisURL, file.RedisURL)
	if file.ProxyKey != nil {
		cfg.ProxyKey = strings.TrimSpace(*file.ProxyKey)
	}
	if file.FallbackEnabled != nil {
		cfg.FallbackEnabled = *file.FallbackEnabled
	}
	if file.RequestTimeoutSeconds != nil && *file.RequestTimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(*file.RequestTimeoutSeconds) * time.Second
	}
	if file.Retries != nil && *file.Retries >= 0 {
		cfg.Retries = *file.Retries
	}
	if file.RetryBaseDelayMS != nil && *file.RetryBaseDelayMS > 0 {
		cfg.RetryBaseDelay = time.Duration(*file.RetryBaseDelayMS) * time.Millisecond
	}
	if file.MetadataCacheTTLHours != nil && *file.MetadataCacheTTLHours > 0 {
		cfg.MetadataCacheTTL = time.Duration(*file.MetadataCacheTTLHours) * time.Hour
	}
	return cfg, nil
}

func applyEnv(cfg Config) Config {
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))
	cfg.UserAgent = getEnv("STREAM_USER_AGENT", cfg.UserAgent)
	cfg.RequestTimeout = time.Duration(getEnvInt("STREAM_REQUEST_TIMEOUT_SECONDS", int(cfg.RequestTimeout/time.Second))) * time.Second
	cfg.Retries = getEnvNonNegative("STREAM_RETRIES", cfg.Retries)
	cfg.RetryBaseDelay = time.Duration(getEnvInt("STREAM_RETRY_BASE_DELAY_MS", int(cfg.RetryBaseDelay/time.Millisecond))) * time.Millisecond
	cfg.SearchBase = normalizeBaseURL(getEnv("PROXY_BASE", cfg.SearchBase))
	cfg.ProxyKey = getEnv("PROXY_KEY", cfg.ProxyKey)
	cfg.MetadataBase = normalizeBaseURL(getEnv("CINEMETA_BASE", cfg.MetadataBase))
	cfg.FallbackEnabled = getEnvBool("TORRENTIO_ENABLED", cfg.FallbackEnabled)
	cfg.FallbackBase = normalizeBaseURL(getEnv("TORRENTIO_BASE", cfg.FallbackBase))
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.MetadataCacheTTL = time.Duration(getEnvInt("META_CACHE_TTL_HOURS", int(cfg.MetadataCacheTTL/time.Hour))) * time.Hour
	return cfg
}

func setString(dst *string, value *string) {
	if value == nil {
		return
	}
	if trimmed := strings.TrimSpace(*value); trimmed != "" {
		*dst = trimmed
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvNonNegative(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func normalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
