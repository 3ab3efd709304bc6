package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.BaseURL(); got != "http://localhost:9500" {
		t.Fatalf("unexpected base url %s", got)
	}
	if cfg.APIAccessToken != "123" || cfg.APIRefreshToken != "" {
		t.Fatalf("unexpected token pair %q/%q", cfg.APIAccessToken, cfg.APIRefreshToken)
	}
	if cfg.HTTPTimeout != 0 {
		t.Fatalf("expected no http timeout, got %v", cfg.HTTPTimeout)
	}
	if cfg.FetchMode != FetchModeAll || cfg.UserID != 1 {
		t.Fatalf("unexpected fetch defaults mode=%s id=%d", cfg.FetchMode, cfg.UserID)
	}
	if cfg.HTTPLogLevel != "headers" {
		t.Fatalf("unexpected http log level %s", cfg.HTTPLogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("API_HOST", "users.internal")
	t.Setenv("API_PORT", "8443")
	t.Setenv("API_SCHEME", "HTTPS")
	t.Setenv("FETCH_MODE", "single")
	t.Setenv("USER_ID", "7")
	t.Setenv("REFRESH_INTERVAL_SECONDS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.BaseURL(); got != "https://users.internal:8443" {
		t.Fatalf("unexpected base url %s", got)
	}
	if cfg.FetchMode != FetchModeSingle || cfg.UserID != 7 {
		t.Fatalf("unexpected fetch config mode=%s id=%d", cfg.FetchMode, cfg.UserID)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Fatalf("unexpected refresh interval %v", cfg.RefreshInterval)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"scheme":  {"API_SCHEME": "ftp"},
		"port":    {"API_PORT": "70000"},
		"mode":    {"FETCH_MODE": "some"},
		"user id": {"FETCH_MODE": "single", "USER_ID": "0"},
		"timeout": {"HTTP_TIMEOUT_SECONDS": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}
