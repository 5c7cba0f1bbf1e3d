package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DOCANCHOR_BACKEND_URL", "MAX_UPLOAD_BYTES",
		"SESSION_TTL", "DEFAULT_VIEW_SCALE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "8091" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8091")
	}
	if cfg.BackendURL != "http://localhost:8000" {
		t.Errorf("BackendURL = %q, want default", cfg.BackendURL)
	}
	if cfg.MaxUploadBytes != 52428800 {
		t.Errorf("MaxUploadBytes = %d, want 52428800", cfg.MaxUploadBytes)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want 1h", cfg.SessionTTL)
	}
	if cfg.DefaultScale != 1.0 {
		t.Errorf("DefaultScale = %g, want 1.0", cfg.DefaultScale)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DOCANCHOR_BACKEND_URL", "http://backend:8000")
	t.Setenv("DOCANCHOR_BACKEND_API_KEY", "bk")
	t.Setenv("DOCANCHOR_API_KEY", "ak")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("DEFAULT_VIEW_SCALE", "1.5")
	t.Setenv("MATCH_TUNING_PATH", "/etc/docanchor/tuning.yaml")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9000")
	}
	if cfg.BackendURL != "http://backend:8000" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.BackendAPIKey != "bk" || cfg.APIKey != "ak" {
		t.Errorf("keys = %q/%q, want bk/ak", cfg.BackendAPIKey, cfg.APIKey)
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Errorf("MaxUploadBytes = %d, want 1024", cfg.MaxUploadBytes)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL)
	}
	if cfg.DefaultScale != 1.5 {
		t.Errorf("DefaultScale = %g, want 1.5", cfg.DefaultScale)
	}
	if cfg.TuningPath != "/etc/docanchor/tuning.yaml" {
		t.Errorf("TuningPath = %q", cfg.TuningPath)
	}
}

func TestLoad_ClampsNonsenseValues(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "-5")
	t.Setenv("SESSION_TTL", "-1h")
	t.Setenv("DEFAULT_VIEW_SCALE", "0")

	cfg := Load()
	if cfg.MaxUploadBytes != 52428800 {
		t.Errorf("MaxUploadBytes = %d, want default", cfg.MaxUploadBytes)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want default", cfg.SessionTTL)
	}
	if cfg.DefaultScale != 1.0 {
		t.Errorf("DefaultScale = %g, want default", cfg.DefaultScale)
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	cfg.BackendURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty backend URL passed validation")
	}
}
