package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/affiliateplus/storefront/sandbox/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("1.2.3")
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "storefront-sandbox 1.2.3" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestInitDefaults(t *testing.T) {
	t.Setenv("STOREFRONT_SANDBOX_ADMIN_PASSWORD", "pw")
	t.Setenv("STOREFRONT_SANDBOX_STORAGE_DRIVER", "")
	path := filepath.Join(t.TempDir(), "sandbox.json")

	if _, err := execute(t, "init", "--defaults", "-o", path); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Auth.InitialUsers[0].Password != "pw" {
		t.Errorf("unexpected initial user: %+v", cfg.Auth.InitialUsers[0])
	}
}

func TestRun_MissingConfig(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.json"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("expected read error, got %v", err)
	}
}
