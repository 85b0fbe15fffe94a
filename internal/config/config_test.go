package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.SessionFreshness != 2*time.Hour {
		t.Fatalf("expected 2h freshness, got %s", cfg.SessionFreshness)
	}
	if cfg.HTTPPort != "8081" {
		t.Fatalf("expected default port 8081, got %s", cfg.HTTPPort)
	}
	if cfg.Production() {
		t.Fatal("expected dev environment by default")
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SESSION_FRESHNESS", "90m")
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.Production() {
		t.Fatal("expected production")
	}
	if cfg.SessionFreshness != 90*time.Minute {
		t.Fatalf("expected 90m, got %s", cfg.SessionFreshness)
	}
	if cfg.StoreBackend != "memory" {
		t.Fatalf("expected memory backend, got %s", cfg.StoreBackend)
	}
}

func TestParseError(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")

	_, err := Parse()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseRejectsNonPositiveFreshness(t *testing.T) {
	t.Setenv("SESSION_FRESHNESS", "0s")

	if _, err := Parse(); err == nil {
		t.Fatal("expected error for zero freshness")
	}
}

func TestLocation(t *testing.T) {
	cfg := App{Timezone: "UTC"}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc != time.UTC {
		t.Fatalf("expected UTC, got %v", loc)
	}

	cfg.Timezone = "Nowhere/Special"
	if _, err := cfg.Location(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
