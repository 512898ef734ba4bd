package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "my-super-secret-jwt-key-at-least-32"

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	configJSON := `{
		"server": {
			"addr": ":5001",
			"allowed_origins": ["http://localhost:3000"]
		},
		"auth": {
			"jwt_secret": "` + testSecret + `",
			"jwt_expiry": "2h",
			"initial_users": [
				{"name": "Asha", "email": "asha@example.com", "password": "pw-123456", "role": "admin", "credits": 5}
			]
		},
		"storage": {"driver": "sqlite", "dsn": "test.db"},
		"payments": {
			"key_id": "rzp_test_sandbox",
			"key_secret": "signing-secret",
			"price_per_credit": 250,
			"plans": {"Gold": "plan_gold"}
		},
		"logging": {"level": "debug", "format": "text"},
		"rate_limit": {"requests_per_second": 20, "burst": 40}
	}`

	cfg, err := Load(writeTempConfig(t, configJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":5001" {
		t.Errorf("Server.Addr: got %q, want %q", cfg.Server.Addr, ":5001")
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("Server.AllowedOrigins: got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Auth.JWTExpiry.Duration != 2*time.Hour {
		t.Errorf("Auth.JWTExpiry: got %v, want 2h", cfg.Auth.JWTExpiry.Duration)
	}
	if len(cfg.Auth.InitialUsers) != 1 || cfg.Auth.InitialUsers[0].Credits != 5 {
		t.Errorf("Auth.InitialUsers: got %+v", cfg.Auth.InitialUsers)
	}
	if cfg.Payments.PricePerCredit != 250 {
		t.Errorf("Payments.PricePerCredit: got %d, want 250", cfg.Payments.PricePerCredit)
	}
	if cfg.Payments.Plans["Gold"] != "plan_gold" || len(cfg.Payments.Plans) != 1 {
		t.Errorf("Payments.Plans: got %v", cfg.Payments.Plans)
	}
	if cfg.Payments.Currency != "INR" {
		t.Errorf("Payments.Currency: got %q, want INR", cfg.Payments.Currency)
	}
	if cfg.RateLimit.RequestsPerSecond != 20 || cfg.RateLimit.Burst != 40 {
		t.Errorf("RateLimit: got %+v", cfg.RateLimit)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeTempConfig(t, `{
		"server": {"addr": ":5001"},
		"auth": {"jwt_secret": "`+testSecret+`"},
		"payments": {"key_secret": "s"}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Auth.Provider != ProviderBuiltin {
		t.Errorf("Auth.Provider: got %q", cfg.Auth.Provider)
	}
	if cfg.Auth.JWTExpiry.Duration != 24*time.Hour {
		t.Errorf("Auth.JWTExpiry: got %v, want 24h", cfg.Auth.JWTExpiry.Duration)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.DSN != "sandbox.db" {
		t.Errorf("Storage: got %+v", cfg.Storage)
	}
	if cfg.Payments.PricePerCredit != 100 {
		t.Errorf("Payments.PricePerCredit: got %d, want 100", cfg.Payments.PricePerCredit)
	}
	if cfg.Payments.Plans["UNLIMITED_MONTHLY"] == "" || cfg.Payments.Plans["UNLIMITED_YEARLY"] == "" {
		t.Errorf("expected default plans, got %v", cfg.Payments.Plans)
	}
	if cfg.Server.MaxBodyBytes != 64*1024 {
		t.Errorf("Server.MaxBodyBytes: got %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.RateLimit.RequestsPerSecond != 10 || cfg.RateLimit.Burst != 20 {
		t.Errorf("RateLimit: got %+v", cfg.RateLimit)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing addr", `{"auth": {"jwt_secret": "` + testSecret + `"}, "payments": {"key_secret": "s"}}`, "server.addr"},
		{"missing jwt secret", `{"server": {"addr": ":1"}, "payments": {"key_secret": "s"}}`, "auth.jwt_secret is required"},
		{"short jwt secret", `{"server": {"addr": ":1"}, "auth": {"jwt_secret": "short"}, "payments": {"key_secret": "s"}}`, "at least 32"},
		{"jwks without issuer", `{"server": {"addr": ":1"}, "auth": {"provider": "jwks"}, "payments": {"key_secret": "s"}}`, "jwks_issuer"},
		{"unknown provider", `{"server": {"addr": ":1"}, "auth": {"provider": "ldap"}, "payments": {"key_secret": "s"}}`, "unknown auth provider"},
		{"missing key secret", `{"server": {"addr": ":1"}, "auth": {"jwt_secret": "` + testSecret + `"}}`, "payments.key_secret"},
		{"user without password", `{"server": {"addr": ":1"}, "auth": {"jwt_secret": "` + testSecret + `", "initial_users": [{"email": "a@b.c"}]}, "payments": {"key_secret": "s"}}`, "initial_users[0]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tc.body))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"90s"`), &d); err != nil || d.Duration != 90*time.Second {
		t.Errorf("string form: got %v, %v", d.Duration, err)
	}
	if err := json.Unmarshal([]byte(`30`), &d); err != nil || d.Duration != 30*time.Second {
		t.Errorf("numeric form: got %v, %v", d.Duration, err)
	}
	if err := json.Unmarshal([]byte(`true`), &d); err == nil {
		t.Error("expected error for a boolean")
	}
	out, _ := json.Marshal(Duration{Duration: time.Minute})
	if string(out) != `"1m0s"` {
		t.Errorf("marshal: got %s", out)
	}
}

func TestGenerateRandomSecret(t *testing.T) {
	a, err := GenerateRandomSecret()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateRandomSecret()
	if len(a) != 64 || a == b {
		t.Errorf("expected two distinct 64-char secrets, got %q and %q", a, b)
	}
}
