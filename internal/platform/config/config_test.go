package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ENEMIA_AUTH__JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("ENEMIA_LLM__API_KEY", "sk-test")
}

func TestLoad_DefaultsWithEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ENEMIA_CACHE__TTL", "90s")
	t.Setenv("ENEMIA_LLM__MAX_RETRIES", "2")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Fatalf("cache ttl: got %v", cfg.Cache.TTL)
	}
	if cfg.LLM.MaxRetries != 2 {
		t.Fatalf("max retries: got %d", cfg.LLM.MaxRetries)
	}
	if cfg.HTTP.Addr != ":5001" {
		t.Fatalf("default addr lost: %q", cfg.HTTP.Addr)
	}
	if cfg.Cache.MaxItems != 256 {
		t.Fatalf("default max items lost: %d", cfg.Cache.MaxItems)
	}
}

func TestLoad_FileThenFlagPrecedence(t *testing.T) {
	setRequired(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "enemia.yaml")
	body := "http:\n  addr: \":7000\"\ndb:\n  driver: postgres\n  dsn: postgres://localhost/enemia\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--config", path, "--http.addr", ":8080"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("flag should win over file, got %q", cfg.HTTP.Addr)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.DSN != "postgres://localhost/enemia" {
		t.Fatalf("file values not applied: %+v", cfg.DB)
	}
}

func TestLoad_MissingSecretFailsValidation(t *testing.T) {
	t.Setenv("ENEMIA_LLM__API_KEY", "sk-test")
	t.Setenv("ENEMIA_AUTH__JWT_SECRET", "")
	if _, err := Load(nil); err == nil {
		t.Fatalf("expected validation error without jwt secret")
	}
}

func TestValidate_RedisBackendNeedsAddr(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "0123456789abcdef0123"
	cfg.LLM.APIKey = "sk-test"
	cfg.Cache.Backend = "redis"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for redis backend without addr")
	}
	cfg.Cache.RedisAddr = "localhost:6379"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
