package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FetchModeAll    = "all"
	FetchModeSingle = "single"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIScheme       string `mapstructure:"api_scheme"`
	APIHost         string `mapstructure:"api_host"`
	APIPort         int    `mapstructure:"api_port"`
	APIAccessToken  string `mapstructure:"api_access_token"`
	APIRefreshToken string `mapstructure:"api_refresh_token"`

	HTTPLogLevel       string        `mapstructure:"http_log_level"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	FetchMode              string        `mapstructure:"fetch_mode"`
	UserID                 int64         `mapstructure:"user_id"`
	RefreshIntervalSeconds int64         `mapstructure:"refresh_interval_seconds"`
	RefreshInterval        time.Duration `mapstructure:"-"`

	PublishersFile string `mapstructure:"publishers_file"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "userlist")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_scheme", "http")
	v.SetDefault("api_host", "localhost")
	v.SetDefault("api_port", 9500)
	v.SetDefault("api_access_token", "123")
	v.SetDefault("api_refresh_token", "")
	v.SetDefault("http_log_level", "headers")
	v.SetDefault("http_timeout_seconds", 0) // no timeout
	v.SetDefault("fetch_mode", FetchModeAll)
	v.SetDefault("user_id", 1)
	v.SetDefault("refresh_interval_seconds", 0) // one-shot
	v.SetDefault("publishers_file", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	cfg.APIScheme = strings.ToLower(strings.TrimSpace(cfg.APIScheme))
	cfg.APIHost = strings.TrimSpace(cfg.APIHost)
	cfg.FetchMode = strings.ToLower(strings.TrimSpace(cfg.FetchMode))
	cfg.HTTPLogLevel = strings.ToLower(strings.TrimSpace(cfg.HTTPLogLevel))

	if cfg.APIScheme != "http" && cfg.APIScheme != "https" {
		return fmt.Errorf("invalid api_scheme %q (expected http or https)", cfg.APIScheme)
	}
	if cfg.APIHost == "" {
		return fmt.Errorf("api_host is required")
	}
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return fmt.Errorf("invalid api_port %d", cfg.APIPort)
	}

	if cfg.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	switch cfg.FetchMode {
	case FetchModeAll:
	case FetchModeSingle:
		if cfg.UserID <= 0 {
			return fmt.Errorf("invalid user_id %d for fetch_mode %q", cfg.UserID, FetchModeSingle)
		}
	default:
		return fmt.Errorf("unsupported fetch_mode %q", cfg.FetchMode)
	}

	if cfg.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("invalid refresh_interval_seconds (must be zero or positive seconds)")
	}
	cfg.RefreshInterval = time.Duration(cfg.RefreshIntervalSeconds) * time.Second

	return nil
}

// BaseURL returns the origin every relative API path is resolved against.
func (cfg *Config) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", cfg.APIScheme, cfg.APIHost, cfg.APIPort)
}
