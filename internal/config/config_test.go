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
database:
  host: localhost
  user: facetrack
  password: secret
  name: facetrack
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Qdrant.Collection != "identities" {
		t.Errorf("Qdrant.Collection = %q, want identities", cfg.Qdrant.Collection)
	}
	if cfg.Pipeline.PrimaryThreshold != 0.87 || cfg.Pipeline.FallbackThreshold != 0.78 {
		t.Errorf("thresholds = (%f, %f), want (0.87, 0.78)",
			cfg.Pipeline.PrimaryThreshold, cfg.Pipeline.FallbackThreshold)
	}
	if cfg.Pipeline.VectorSize != 512 {
		t.Errorf("VectorSize = %d, want 512", cfg.Pipeline.VectorSize)
	}
	if cfg.Pipeline.Workers < 1 {
		t.Errorf("Workers = %d, want at least 1", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.QueueSize < 10 {
		t.Errorf("QueueSize = %d, want at least 10", cfg.Pipeline.QueueSize)
	}
	if cfg.Pipeline.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.Pipeline.PollInterval)
	}
	if len(cfg.Watch.Patterns) == 0 {
		t.Error("Watch.Patterns default missing")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = (%q, %q), want (info, json)", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadWorkerAndQueueFloors(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  workers: -3
  queue_size: 1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Errorf("Workers = %d, want floor 2", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.QueueSize != 10 {
		t.Errorf("QueueSize = %d, want floor 10", cfg.Pipeline.QueueSize)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  host: confighost
`)
	t.Setenv("FACETRACK_SERVER_PORT", "9100")
	t.Setenv("FACETRACK_DB_HOST", "envhost")
	t.Setenv("FACETRACK_NATS_URL", "nats://env:4222")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.Database.Host != "envhost" {
		t.Errorf("Database.Host = %q, want envhost", cfg.Database.Host)
	}
	if cfg.NATS.URL != "nats://env:4222" {
		t.Errorf("NATS.URL = %q, want nats://env:4222", cfg.NATS.URL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "facetrack", User: "app", Password: "pw"}
	want := "postgres://app:pw@db:5432/facetrack?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
