package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// effectiveConfig is the printable view of app.Config.
type effectiveConfig struct {
	HTTPAddr              string `toml:"http_addr"`
	LogLevel              string `toml:"log_level"`
	LogFormat             string `toml:"log_format"`
	UserAgent             string `toml:"user_agent"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	Retries               int    `toml:"retries"`
	RetryBaseDelayMS      int64  `toml:"retry_base_delay_ms"`
	SearchBase            string `toml:"search_base"`
	ProxyKey              string `toml:"proxy_key"`
	MetadataBase          string `toml:"metadata_base"`
	FallbackEnabled       bool   `toml:"fallback_enabled"`
	FallbackBase          string `toml:"fallback_base"`
	RedisURL              string `toml:"redis_url"`
	MetadataCacheTTLHours int    `toml:"metadata_cache_ttl_hours"`
}

func newConfigCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			view := effectiveConfig{
				HTTPAddr:              cfg.HTTPAddr,
				LogLevel:              cfg.LogLevel,
				LogFormat:             cfg.LogFormat,
				UserAgent:             cfg.UserAgent,
				RequestTimeoutSeconds: int(cfg.RequestTimeout.Seconds()),
				Retries:               cfg.Retries,
				RetryBaseDelayMS:      cfg.RetryBaseDelay.Milliseconds(),
				SearchBase:            cfg.SearchBase,
				ProxyKey:              redact(cfg.ProxyKey),
				MetadataBase:          cfg.MetadataBase,
				FallbackEnabled:       cfg.FallbackEnabled,
				FallbackBase:          cfg.FallbackBase,
				RedisURL:              redact(cfg.RedisURL),
				MetadataCacheTTLHours: int(cfg.MetadataCacheTTL.Hours()),
			}
			if err := toml.NewEncoder(cmd.OutOrStdout()).Encode(view); err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			return nil
		},
	}
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "<redacted>"
}
