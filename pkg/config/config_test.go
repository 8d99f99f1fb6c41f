package config

import (
	"testing"
	"time"
)

func TestLoadRequiresWebhookSecret(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail without WEBHOOK_SECRET")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.WebhookSkew != 5*time.Minute {
		t.Errorf("WebhookSkew = %s, want 5m", cfg.WebhookSkew)
	}
	if cfg.MaxTransactionsPerStatement != 10000 {
		t.Errorf("MaxTransactionsPerStatement = %d, want 10000", cfg.MaxTransactionsPerStatement)
	}
	if cfg.MaxBodyBytes != 8<<20 {
		t.Errorf("MaxBodyBytes = %d, want 8 MiB", cfg.MaxBodyBytes)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("SERVER_PORT", "not-a-port")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail on bad SERVER_PORT")
	}
}
