package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/relnet")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBMaxConns != 10 || cfg.MatchMaxSuggestions != 20 || cfg.MatchMinScore != 40 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SemanticTimeout != 3*time.Second || cfg.EmbeddingCacheTTL != 24*time.Hour {
		t.Fatalf("unexpected durations %+v", cfg)
	}
	if cfg.EmbeddingsEnabled() || cfg.IsProduction() {
		t.Fatalf("expected embeddings disabled and development env")
	}
}

func TestLoadConfigRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadConfigRejectsOutOfRange(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/relnet")
	t.Setenv("MATCH_MIN_SCORE", "150")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected range error for MATCH_MIN_SCORE")
	}
}

func TestValidateSemanticTimeout(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/relnet")
	t.Setenv("SEMANTIC_TIMEOUT", "0s")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for zero SEMANTIC_TIMEOUT")
	}
}
