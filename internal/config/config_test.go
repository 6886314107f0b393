package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadExplicitMissingFileErrors(t *testing.T) {
	t.Setenv("APDB_KEYSPACE", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("Load with explicit missing file: want error, got config %+v", cfg)
	}
}

func TestLoadDefaultsWithoutExplicitFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Keyspace != "apdb" {
		t.Errorf("Keyspace = %q, want apdb", cfg.Keyspace)
	}
	if cfg.PartPixelization != "mq3c" {
		t.Errorf("PartPixelization = %q, want mq3c", cfg.PartPixelization)
	}
	if cfg.TimePartitionDays != 30 {
		t.Errorf("TimePartitionDays = %d, want 30", cfg.TimePartitionDays)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	t.Setenv("APDB_KEYSPACE", "custom_ks")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Keyspace != "custom_ks" {
		t.Errorf("Keyspace = %q, want custom_ks (from env)", cfg.Keyspace)
	}
}

func TestLoadExplicitFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apdb.yaml")
	if err := os.WriteFile(path, []byte("keyspace: filetest\npart_pix_level: 7\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Keyspace != "filetest" {
		t.Errorf("Keyspace = %q, want filetest", cfg.Keyspace)
	}
	if cfg.PartPixLevel != 7 {
		t.Errorf("PartPixLevel = %d, want 7", cfg.PartPixLevel)
	}
}
