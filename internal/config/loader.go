package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("http_port", 8080)
	v.SetDefault("upstream_url", "https://coins.llama.fi")
	v.SetDefault("poll_interval", "5s")
	v.SetDefault("refresh_interval", "1m")
	v.SetDefault("run_immediately", true)
	v.SetDefault("timezone", "UTC")

	// 2. Configure config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix("PORTFOLIO")
	v.AutomaticEnv()

	// Map environment variables to config keys. Explicit names because
	// BindEnv does not apply the prefix to them, and binding registers
	// the key so Unmarshal sees env-only values.
	// PORTFOLIO_RPC_URL -> rpc_url
	v.BindEnv("rpc_url", "PORTFOLIO_RPC_URL")
	v.BindEnv("rpc_urls", "PORTFOLIO_RPC_URLS")
	v.BindEnv("registry_address", "PORTFOLIO_REGISTRY_ADDRESS")
	v.BindEnv("owner_address", "PORTFOLIO_OWNER_ADDRESS")
	v.BindEnv("chain_id", "PORTFOLIO_CHAIN_ID")
	v.BindEnv("upstream_url", "PORTFOLIO_UPSTREAM_URL")
	v.BindEnv("proxy_url", "PORTFOLIO_PROXY_URL")
	v.BindEnv("http_port", "PORTFOLIO_HTTP_PORT")
	v.BindEnv("poll_interval", "PORTFOLIO_POLL_INTERVAL")
	v.BindEnv("refresh_interval", "PORTFOLIO_REFRESH_INTERVAL")
	v.BindEnv("log_level", "PORTFOLIO_LOG_LEVEL")
	v.BindEnv("timezone", "PORTFOLIO_TIMEZONE")
	v.BindEnv("run_immediately", "PORTFOLIO_RUN_IMMEDIATELY")
	v.BindEnv("default_ids", "PORTFOLIO_DEFAULT_IDS")

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 5. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Comma-separated env vars arrive as a single string
	if rpcURLsEnv := v.GetString("rpc_urls"); strings.Contains(rpcURLsEnv, ",") {
		cfg.RPCUrls = splitTrimmed(rpcURLsEnv)
	}
	if idsEnv := v.GetString("default_ids"); strings.Contains(idsEnv, ",") {
		cfg.DefaultIDs = splitTrimmed(idsEnv)
	}

	// 6. Normalize: convert single rpc_url to rpc_urls array
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("config normalization failed: %w", err)
	}

	// 7. Validate with validator
	validate := NewValidator()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithKey loads config plus the signing key. The key comes only from
// the PORTFOLIO_PRIVATE_KEY environment variable, never from a file, and
// may be empty for read-only use.
func LoadWithKey(configPath string) (*Config, string, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, "", err
	}

	v := viper.New()
	v.BindEnv("private_key", "PORTFOLIO_PRIVATE_KEY")
	privateKey := v.GetString("private_key")

	return cfg, privateKey, nil
}

func splitTrimmed(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
