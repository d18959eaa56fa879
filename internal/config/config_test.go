package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveVaultPathFlagWins(t *testing.T) {
	got, err := ResolveVaultPath("/tmp/custom.lbx")
	if err != nil {
		t.Fatalf("ResolveVaultPath: %v", err)
	}
	if got != "/tmp/custom.lbx" {
		t.Fatalf("got %q, want flag path", got)
	}
}

func TestResolveVaultPathFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("vault_path: /data/secrets.lbx\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvConfig, cfgPath)

	got, err := ResolveVaultPath("")
	if err != nil {
		t.Fatalf("ResolveVaultPath: %v", err)
	}
	if got != "/data/secrets.lbx" {
		t.Fatalf("got %q, want config path", got)
	}
}

func TestResolveVaultPathMissingExplicitConfig(t *testing.T) {
	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := ResolveVaultPath(""); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestResolveVaultPathMalformedConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("vault_path: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvConfig, cfgPath)

	if _, err := ResolveVaultPath(""); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestResolveVaultPathDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvConfig, "")

	got, err := ResolveVaultPath("")
	if err != nil {
		t.Fatalf("ResolveVaultPath: %v", err)
	}
	want := filepath.Join(home, ".lockbox", "vault.lbx")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestResolveVaultPathEmptyConfigFallsBack(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("# no overrides\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvConfig, cfgPath)

	got, err := ResolveVaultPath("")
	if err != nil {
		t.Fatalf("ResolveVaultPath: %v", err)
	}
	want := filepath.Join(home, ".lockbox", "vault.lbx")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
