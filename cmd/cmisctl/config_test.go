package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cmisctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRunConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
port = "Ethernet8"
flat_memory = true
lpmode_wait = false
`)

	cfg, err := loadRunConfig(path)
	if err != nil {
		t.Fatalf("loadRunConfig() error = %v", err)
	}
	if cfg.Port != "Ethernet8" {
		t.Fatalf("Port = %q, want Ethernet8", cfg.Port)
	}
	if !cfg.FlatMemory {
		t.Fatal("FlatMemory not applied")
	}
	if cfg.LPModeWait {
		t.Fatal("LPModeWait not applied")
	}
}

func TestLoadRunConfigKeepsDefaultsForAbsentKeys(t *testing.T) {
	path := writeConfig(t, `port = ""`)

	cfg, err := loadRunConfig(path)
	if err != nil {
		t.Fatalf("loadRunConfig() error = %v", err)
	}
	want := defaultRunConfig()
	if cfg != want {
		t.Fatalf("config = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadRunConfigMissingFile(t *testing.T) {
	if _, err := loadRunConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if err := run(defaultRunConfig(), "bogus", nil); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
