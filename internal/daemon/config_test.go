package daemon

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("TASKBAY_HOME", t.TempDir())

	cfg := DefaultConfig()
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("host = %q", cfg.API.Host)
	}
	if cfg.API.Port != 8480 {
		t.Errorf("port = %d", cfg.API.Port)
	}
	if cfg.Storage.Dir != Home() {
		t.Errorf("storage dir = %q, want %q", cfg.Storage.Dir, Home())
	}
	if !cfg.Telemetry.Prometheus {
		t.Error("prometheus should default on")
	}
}

func TestConfigRoundtrip(t *testing.T) {
	t.Setenv("TASKBAY_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Node.ID = "node-17"
	cfg.API.Port = 9911
	cfg.API.CORSOrigins = []string{"https://taskbay.example"}
	cfg.Logging.Level = "debug"

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Node.ID != "node-17" {
		t.Errorf("node id = %q", loaded.Node.ID)
	}
	if loaded.API.Port != 9911 {
		t.Errorf("port = %d", loaded.API.Port)
	}
	if len(loaded.API.CORSOrigins) != 1 || loaded.API.CORSOrigins[0] != "https://taskbay.example" {
		t.Errorf("cors = %v", loaded.API.CORSOrigins)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("log level = %q", loaded.Logging.Level)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("TASKBAY_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("port = %d, want default", cfg.API.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TASKBAY_HOME", t.TempDir())
	t.Setenv("TASKBAY_HOST", "0.0.0.0")
	t.Setenv("TASKBAY_PORT", "7001")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("host = %q", cfg.API.Host)
	}
	if cfg.API.Port != 7001 {
		t.Errorf("port = %d", cfg.API.Port)
	}
	if cfg.Storage.Dir != Home() {
		t.Errorf("storage dir = %q", cfg.Storage.Dir)
	}
}

func TestHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKBAY_HOME", dir)

	if Home() != dir {
		t.Errorf("Home() = %q, want %q", Home(), dir)
	}
	if filepath.Dir(filepath.Join(Home(), "config.toml")) != dir {
		t.Errorf("config path not under home")
	}
}
