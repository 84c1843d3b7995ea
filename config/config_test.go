package config

import "testing"

func TestDefaultsFromEmptyString(t *testing.T) {
	cfg, err := FromString("")
	if err != nil {
		t.Fatalf("FromString() error: %v", err)
	}

	if got := cfg.ResolvedKeyPath(); got != DefaultKeyPath {
		t.Errorf("ResolvedKeyPath() = %q, want %q", got, DefaultKeyPath)
	}
	if got := cfg.ResolvedDatabasePath(); got != DefaultDatabasePath {
		t.Errorf("ResolvedDatabasePath() = %q, want %q", got, DefaultDatabasePath)
	}
	if got := cfg.ResolvedServerPort(); got != DefaultServerPort {
		t.Errorf("ResolvedServerPort() = %d, want %d", got, DefaultServerPort)
	}
}

func TestOverridesFromString(t *testing.T) {
	cfg, err := FromString(`
key_path = "/tmp/key"
database_path = "/tmp/db"

[server]
port = 9000
`)
	if err != nil {
		t.Fatalf("FromString() error: %v", err)
	}

	if got := cfg.ResolvedKeyPath(); got != "/tmp/key" {
		t.Errorf("ResolvedKeyPath() = %q, want %q", got, "/tmp/key")
	}
	if got := cfg.ResolvedDatabasePath(); got != "/tmp/db" {
		t.Errorf("ResolvedDatabasePath() = %q, want %q", got, "/tmp/db")
	}
	if got := cfg.ResolvedServerPort(); got != 9000 {
		t.Errorf("ResolvedServerPort() = %d, want %d", got, 9000)
	}
}

func TestFromDefaultFileOrEmptyMissingFile(t *testing.T) {
	cfg, err := FromDefaultFileOrEmpty()
	if err != nil {
		t.Fatalf("FromDefaultFileOrEmpty() error: %v", err)
	}
	if got := cfg.ResolvedServerPort(); got != DefaultServerPort {
		t.Errorf("ResolvedServerPort() = %d, want %d", got, DefaultServerPort)
	}
}
