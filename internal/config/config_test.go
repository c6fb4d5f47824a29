package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("APP_PORT", "9000")

	cfg := Load()
	if cfg.Token.DownloadTTLMinutes != 60 || cfg.Token.PreviewTTLMinutes != 5 {
		t.Fatalf("ttl defaults: %+v", cfg.Token)
	}
	if cfg.Token.StorageBucket != "customer_docs" {
		t.Fatalf("bucket = %q", cfg.Token.StorageBucket)
	}
	if cfg.Token.PublicBaseURL != "http://localhost:9000" {
		t.Fatalf("base url = %q", cfg.Token.PublicBaseURL)
	}
	if cfg.Storage.Timeout != 30*time.Second {
		t.Fatalf("storage timeout = %v", cfg.Storage.Timeout)
	}
	if cfg.StrictIdentity {
		t.Fatal("strict identity must default to off")
	}
	if len(cfg.Auth.Allowlist) != 1 || cfg.Auth.Allowlist[0] != "system@ailabben.no" {
		t.Fatalf("allowlist = %v", cfg.Auth.Allowlist)
	}
	if cfg.Audit.Sink != "db" || cfg.Audit.Queue != "document.delivered" {
		t.Fatalf("audit = %+v", cfg.Audit)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "dash")
	t.Setenv("PUBLIC_BASE_URL", "https://dash.ailabben.no/")
	t.Setenv("STRICT_IDENTITY", "yes")
	t.Setenv("AUDIT_SINK", "carrier-pigeon")
	t.Setenv("SERVICE_KEYS", "n8n:$2a$10$abc, broken ,crm:$2a$10$def")
	t.Setenv("AUTH_ALLOWLIST", "a@x.no, b@x.no")

	cfg := Load()
	if cfg.DBPort != "3306" {
		t.Fatalf("mysql default port = %q", cfg.DBPort)
	}
	if cfg.Token.PublicBaseURL != "https://dash.ailabben.no" {
		t.Fatalf("base url = %q", cfg.Token.PublicBaseURL)
	}
	if !cfg.StrictIdentity {
		t.Fatal("STRICT_IDENTITY ignored")
	}
	if cfg.Audit.Sink != "db" {
		t.Fatalf("unknown sink not reset: %q", cfg.Audit.Sink)
	}
	if len(cfg.ServiceKeys) != 2 || cfg.ServiceKeys["n8n"] != "$2a$10$abc" {
		t.Fatalf("service keys = %v", cfg.ServiceKeys)
	}
	if len(cfg.Auth.Allowlist) != 2 {
		t.Fatalf("allowlist = %v", cfg.Auth.Allowlist)
	}
}

func TestRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	rl := LoadRateLimitConfig()
	if rl.Capacity != 1 || rl.TTL != 5*time.Minute {
		t.Fatalf("%+v", rl)
	}
}
