//go:build unit

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected port '8080', got '%s'", cfg.Server.Port)
	}
	if cfg.DB.Driver != "sqlite3" {
		t.Errorf("expected driver 'sqlite3', got '%s'", cfg.DB.Driver)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("expected cache ttl 10m, got %v", cfg.Cache.TTL)
	}
	if cfg.Tracing.Enabled {
		t.Error("expected tracing to be disabled by default")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCHOOL_DB_DRIVER", "mysql")
	t.Setenv("SCHOOL_DB_DSN", "user:pass@tcp(localhost:3306)/school?parseTime=true")
	t.Setenv("SCHOOL_LOG_LEVEL", "debug")
	t.Setenv("SCHOOL_CACHE_TTL", "30s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DB.Driver != "mysql" {
		t.Errorf("expected driver 'mysql', got '%s'", cfg.DB.Driver)
	}
	if cfg.DB.DSN != "user:pass@tcp(localhost:3306)/school?parseTime=true" {
		t.Errorf("unexpected dsn '%s'", cfg.DB.DSN)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Log.Level)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("expected cache ttl 30s, got %v", cfg.Cache.TTL)
	}
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
