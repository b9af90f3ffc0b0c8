package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  api_key: secret
library:
  source_dir: /photos
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Library.BatchSize != 10 {
		t.Errorf("Library.BatchSize = %d, want default 10", cfg.Library.BatchSize)
	}
	if cfg.Jobs.MaxConcurrent != 3 {
		t.Errorf("Jobs.MaxConcurrent = %d, want default 3", cfg.Jobs.MaxConcurrent)
	}
	if cfg.Jobs.TickInterval != 500*time.Millisecond {
		t.Errorf("Jobs.TickInterval = %v, want 500ms", cfg.Jobs.TickInterval)
	}
	if cfg.Recognition.AutoAssignThreshold != 0.90 {
		t.Errorf("AutoAssignThreshold = %v, want 0.90", cfg.Recognition.AutoAssignThreshold)
	}
	if cfg.Recognition.ReviewThreshold != 0.75 {
		t.Errorf("ReviewThreshold = %v, want 0.75", cfg.Recognition.ReviewThreshold)
	}
	if cfg.Reconciler.DriftTolerance != 2 {
		t.Errorf("DriftTolerance = %d, want 2", cfg.Reconciler.DriftTolerance)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Server.APIKey != "secret" {
		t.Errorf("APIKey = %q, yaml value lost", cfg.Server.APIKey)
	}
}

func TestLoadFileValuesWin(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
jobs:
  max_concurrent: 8
  tick_interval: 100ms
recognition:
  auto_assign_threshold: 0.95
  review_threshold: 0.60
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Jobs.MaxConcurrent != 8 {
		t.Errorf("Jobs.MaxConcurrent = %d, want 8", cfg.Jobs.MaxConcurrent)
	}
	if cfg.Jobs.TickInterval != 100*time.Millisecond {
		t.Errorf("Jobs.TickInterval = %v, want 100ms", cfg.Jobs.TickInterval)
	}
	if cfg.Recognition.AutoAssignThreshold != 0.95 {
		t.Errorf("AutoAssignThreshold = %v, want 0.95", cfg.Recognition.AutoAssignThreshold)
	}
	if cfg.Recognition.ReviewThreshold != 0.60 {
		t.Errorf("ReviewThreshold = %v, want 0.60", cfg.Recognition.ReviewThreshold)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  api_key: from-file
`)

	t.Setenv("PV_SERVER_PORT", "7777")
	t.Setenv("PV_API_KEY", "from-env")
	t.Setenv("PV_DB_HOST", "db.internal")
	t.Setenv("PV_JOBS_MAX_CONCURRENT", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, env override lost", cfg.Server.Port)
	}
	if cfg.Server.APIKey != "from-env" {
		t.Errorf("APIKey = %q, env override lost", cfg.Server.APIKey)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, env override lost", cfg.Database.Host)
	}
	if cfg.Jobs.MaxConcurrent != 5 {
		t.Errorf("Jobs.MaxConcurrent = %d, env override lost", cfg.Jobs.MaxConcurrent)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("want error for missing config file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("want error for malformed yaml")
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Name:     "photovault",
		User:     "pv",
		Password: "pw",
	}
	want := "postgres://pv:pw@localhost:5432/photovault?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
