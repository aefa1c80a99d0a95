package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("addr %q, want :8080", cfg.Addr)
	}
	if cfg.DB.Host != "localhost" || cfg.DB.Port != 5432 {
		t.Errorf("db defaults %s:%d", cfg.DB.Host, cfg.DB.Port)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("addr: \":9090\"\nlog_level: debug\ndb:\n  name: vouchers\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DB_NAME", "vouchers_test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.LogLevel != "debug" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.DB.Name != "vouchers_test" {
		t.Errorf("env override lost: %q", cfg.DB.Name)
	}
	if cfg.DB.Host != "localhost" {
		t.Errorf("default lost after file load: %q", cfg.DB.Host)
	}
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "h", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "postgres://u:p@h:5433/n?sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("dsn %q, want %q", got, want)
	}
}
