package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadMissingExplicitPath verifies an explicitly given path must exist.
func TestLoadMissingExplicitPath(t *testing.T) {
	if _, err := Load("/nonexistent/config.toml"); err == nil {
		t.Errorf("expected error for missing explicit config file")
	}
}

// TestLoadDefaults verifies an absent config yields the package defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr == "" {
		t.Errorf("Addr default should be set")
	}
	if cfg.ConnectionsTable != DefaultConnectionsTable {
		t.Errorf("expected connections table %q, got %q", DefaultConnectionsTable, cfg.ConnectionsTable)
	}
	if cfg.KeysTable != DefaultKeysTable {
		t.Errorf("expected keys table %q, got %q", DefaultKeysTable, cfg.KeysTable)
	}
	if cfg.StoreType != DefaultStoreType {
		t.Errorf("expected store type %q, got %q", DefaultStoreType, cfg.StoreType)
	}
	if cfg.BusType != DefaultBusType {
		t.Errorf("expected bus type %q, got %q", DefaultBusType, cfg.BusType)
	}
	if cfg.KeepaliveIntervalSec != DefaultKeepaliveIntervalSec {
		t.Errorf("expected keepalive interval %d, got %d", DefaultKeepaliveIntervalSec, cfg.KeepaliveIntervalSec)
	}
	if cfg.DeliveryConcurrency != DefaultDeliveryConcurrency {
		t.Errorf("expected delivery concurrency %d, got %d", DefaultDeliveryConcurrency, cfg.DeliveryConcurrency)
	}

	if len(cfg.AllowedCommands) != 4 {
		t.Fatalf("expected 4 default commands, got %v", cfg.AllowedCommands)
	}
	for i, want := range []string{"sleep", "hibernate", "shutdown", "lock"} {
		if cfg.AllowedCommands[i] != want {
			t.Errorf("expected command %q at index %d, got %q", want, i, cfg.AllowedCommands[i])
		}
	}
}

// TestLoadFromFile verifies TOML values override the defaults.
func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
addr = "0.0.0.0:9090"
connections_table = "live_conns"
connection_base_url = "https://gateway.example.com/push"
allowed_commands = ["sleep", "lock"]
keepalive_interval_sec = 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr != "0.0.0.0:9090" {
		t.Errorf("expected addr from file, got %q", cfg.Addr)
	}
	if cfg.ConnectionsTable != "live_conns" {
		t.Errorf("expected connections table from file, got %q", cfg.ConnectionsTable)
	}
	if cfg.ConnectionBaseURL != "https://gateway.example.com/push" {
		t.Errorf("expected base URL from file, got %q", cfg.ConnectionBaseURL)
	}
	if len(cfg.AllowedCommands) != 2 {
		t.Errorf("expected 2 commands from file, got %v", cfg.AllowedCommands)
	}
	if cfg.KeepaliveIntervalSec != 30 {
		t.Errorf("expected keepalive interval 30, got %d", cfg.KeepaliveIntervalSec)
	}

	// Fields the file omits still get defaults.
	if cfg.KeysTable != DefaultKeysTable {
		t.Errorf("expected default keys table, got %q", cfg.KeysTable)
	}
	if cfg.WarmupIntervalSec != DefaultWarmupIntervalSec {
		t.Errorf("expected default warm-up interval, got %d", cfg.WarmupIntervalSec)
	}
}

// TestEnvironmentOverridesFile verifies environment variables win over file
// values.
func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
connections_table = "from_file"
connection_base_url = "https://file.example.com"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("TABLE_NAME", "from_env")
	t.Setenv("CONNECTION_BASE_URL", "https://env.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ConnectionsTable != "from_env" {
		t.Errorf("expected env override for connections table, got %q", cfg.ConnectionsTable)
	}
	if cfg.ConnectionBaseURL != "https://env.example.com" {
		t.Errorf("expected env override for base URL, got %q", cfg.ConnectionBaseURL)
	}
}

// TestLoadInvalidTOML verifies a malformed file is rejected.
func TestLoadInvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("addr = [broken"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Errorf("expected parse error for malformed TOML")
	}
}
