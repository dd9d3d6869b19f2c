package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FULLPEGA_DB_DSN", "postgres://localhost:5432/fullpega")
	t.Setenv("FULLPEGA_JWT_KEY", "test-signing-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWT.TokenTTL != time.Hour {
		t.Fatalf("expected 1h token TTL, got %v", cfg.JWT.TokenTTL)
	}
	if cfg.JWT.Issuer != "fullpega" || cfg.JWT.Audience != "fullpega-frontend" {
		t.Fatalf("unexpected issuer/audience: %q %q", cfg.JWT.Issuer, cfg.JWT.Audience)
	}
	if cfg.Geo.BaseURL != "https://ipapi.co" || cfg.Geo.Timeout != 3*time.Second {
		t.Fatalf("unexpected geo defaults: %+v", cfg.Geo)
	}
	if cfg.SystemID != 3 {
		t.Fatalf("unexpected system id: %d", cfg.SystemID)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.HTTP.Addr)
	}
}

func TestLoadRequiresSigningKey(t *testing.T) {
	t.Setenv("FULLPEGA_DB_DSN", "postgres://localhost:5432/fullpega")
	t.Setenv("FULLPEGA_JWT_KEY", "   ")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for blank signing key")
	}
}

func TestGeoFallbackIPGatedByFlag(t *testing.T) {
	cfg := Config{}
	cfg.Geo.DevFallbackIP = "181.173.7.175"
	if got := cfg.GeoFallbackIP(); got != "" {
		t.Fatalf("fallback must be disabled by default, got %q", got)
	}
	cfg.Geo.DevFallback = true
	if got := cfg.GeoFallbackIP(); got != "181.173.7.175" {
		t.Fatalf("unexpected fallback ip: %q", got)
	}
}
