package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SAFEDOCX_LOG_LEVEL", "")
	t.Setenv("SAFEDOCX_LOG_FORMAT", "")
	t.Setenv("SAFEDOCX_MAX_SALT_TRIES", "")

	cfg := Load()
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.MaxSaltTries != 10000 {
		t.Errorf("MaxSaltTries = %d, want 10000", cfg.MaxSaltTries)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SAFEDOCX_LOG_LEVEL", "debug")
	t.Setenv("SAFEDOCX_MAX_SALT_TRIES", "50")

	cfg := Load()
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.MaxSaltTries != 50 {
		t.Errorf("MaxSaltTries = %d, want 50", cfg.MaxSaltTries)
	}
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("SAFEDOCX_MAX_SALT_TRIES", "not-a-number")
	cfg := Load()
	if cfg.MaxSaltTries != 10000 {
		t.Errorf("MaxSaltTries = %d, want fallback 10000 on parse failure", cfg.MaxSaltTries)
	}
}
