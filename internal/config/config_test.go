package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfigWithEnvOverride(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfg := DefaultConfig()
	cfg.Graph.TenantID = "tenant-from-file"
	cfg.Graph.ClientID = "client-from-file"
	cfg.Graph.Mailbox = "shared@example.com"
	cfg.Graph.ClientSecret = "secret"

	if _, err := Save(cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	t.Setenv("GRAPHMAIL_GRAPH_TENANT_ID", "tenant-from-env")
	t.Setenv("GRAPHMAIL_GRAPH_TIMEOUT", "45s")

	loaded, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if loaded.Graph.TenantID != "tenant-from-env" {
		t.Fatalf("expected env override, got %q", loaded.Graph.TenantID)
	}
	if loaded.Graph.ClientID != "client-from-file" {
		t.Fatalf("expected client id from file, got %q", loaded.Graph.ClientID)
	}
	if loaded.Graph.Timeout != 45*time.Second {
		t.Fatalf("expected timeout override, got %s", loaded.Graph.Timeout)
	}
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	loaded, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if loaded.Graph.BaseURL != DefaultConfig().Graph.BaseURL {
		t.Fatalf("expected default base url, got %q", loaded.Graph.BaseURL)
	}
	if loaded.Keyring.Backend != "auto" {
		t.Fatalf("expected auto keyring backend, got %q", loaded.Keyring.Backend)
	}
}

func TestValidateReportsMissingSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Graph.TenantID = "tenant"
	cfg.Graph.ClientID = "client"
	cfg.Graph.ClientSecret = "secret"

	err := Validate(cfg)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	cfg.Graph.Mailbox = "shared@example.com"
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestRedactMasksSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Graph.ClientSecret = "secret"

	if got := Redact(cfg).Graph.ClientSecret; got != "****" {
		t.Fatalf("expected masked secret, got %q", got)
	}
	if cfg.Graph.ClientSecret != "secret" {
		t.Fatalf("redact must not modify the input")
	}
}
