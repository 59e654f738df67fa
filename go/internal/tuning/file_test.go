package tuning

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
presence:
  speed: 6
  publish_interval: 100ms
servers:
  - id: lobby
    name: Lobby
    region: eu
`)
	f, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Presence.Speed != 6 || f.Presence.PublishInterval != 100*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", f.Presence)
	}
	if f.Presence.SurfaceWidth != 800 || f.Presence.Radius != 20 {
		t.Fatalf("defaults lost: %+v", f.Presence)
	}
	if len(f.Servers) != 1 || f.Servers[0].ID != "lobby" || f.Servers[0].Region != "eu" {
		t.Fatalf("servers = %+v", f.Servers)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "presence:\n  speed: 0\n")
	if _, err := LoadFile(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
}
