package store

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		wantTTL      time.Duration
		wantCleanup  time.Duration
		wantAttempts int
	}{
		{
			name:         "zero values get defaults",
			cfg:          Config{},
			wantTTL:      10 * time.Minute,
			wantCleanup:  20 * time.Minute,
			wantAttempts: 3,
		},
		{
			name:         "negative TTL disables cache",
			cfg:          Config{CacheTTL: -1, MaxIDAttempts: 1},
			wantTTL:      -1,
			wantCleanup:  0,
			wantAttempts: 1,
		},
		{
			name:         "attempts capped",
			cfg:          Config{CacheTTL: time.Minute, CacheCleanupInterval: time.Second, MaxIDAttempts: 50},
			wantTTL:      time.Minute,
			wantCleanup:  time.Second,
			wantAttempts: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.validate()
			if cfg.CacheTTL != tt.wantTTL {
				t.Errorf("expected CacheTTL %v, got %v", tt.wantTTL, cfg.CacheTTL)
			}
			if cfg.CacheCleanupInterval != tt.wantCleanup {
				t.Errorf("expected CacheCleanupInterval %v, got %v", tt.wantCleanup, cfg.CacheCleanupInterval)
			}
			if cfg.MaxIDAttempts != tt.wantAttempts {
				t.Errorf("expected MaxIDAttempts %d, got %d", tt.wantAttempts, cfg.MaxIDAttempts)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.cacheEnabled() {
		t.Error("expected cache enabled by default")
	}
	if cfg.MaxIDAttempts != 3 {
		t.Errorf("expected MaxIDAttempts 3, got %d", cfg.MaxIDAttempts)
	}
}

func TestCacheKey(t *testing.T) {
	if cacheKey(Users, "u1") == cacheKey(Scores, "u1") {
		t.Error("expected cache keys to differ across collections")
	}
}

func TestRecordClone(t *testing.T) {
	var nilRecord Record
	if nilRecord.Clone() != nil {
		t.Error("expected nil clone of nil record")
	}

	r := Record{"id": "x", "score": 3}
	c := r.Clone()
	c["score"] = 4
	if r["score"] != 3 {
		t.Error("clone shares state with original")
	}
	if r.ID() != "x" {
		t.Errorf("expected id x, got %q", r.ID())
	}
	if (Record{"id": 5}).ID() != "" {
		t.Error("expected non-string id to read as empty")
	}
}
