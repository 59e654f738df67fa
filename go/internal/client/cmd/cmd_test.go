package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHTTPURL(t *testing.T) {
	cases := map[string]string{
		"ws://localhost:8081":  "http://localhost:8081",
		"wss://gw.example.com": "https://gw.example.com",
		"http://already":       "http://already",
	}
	for in, want := range cases {
		if got := httpURL(in); got != want {
			t.Errorf("httpURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&cliContext{})
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLogOutWithoutLogin(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "--data-dir", dir, "logout")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Not logged in") {
		t.Fatalf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "client.log")); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}

func TestConfigFileTuning(t *testing.T) {
	dir := t.TempDir()
	config := "presence:\n  speed: 9\n  publish_interval: 20ms\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}

	cli := &cliContext{}
	cmd := newRootCmd(cli)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--data-dir", dir, "logout"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if cli.tuning.Speed != 9 || cli.tuning.PublishInterval.Milliseconds() != 20 {
		t.Fatalf("tuning = %+v", cli.tuning)
	}
	if cli.tuning.SurfaceWidth != 800 {
		t.Fatalf("defaults lost: %+v", cli.tuning)
	}
}

func TestEnvironmentFillsFlags(t *testing.T) {
	t.Setenv("PRESENCE_API_URL", "http://api.example.com")
	cli := &cliContext{}
	cmd := newRootCmd(cli)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--data-dir", t.TempDir(), "logout"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if cli.apiURL != "http://api.example.com" {
		t.Fatalf("apiURL = %q", cli.apiURL)
	}
}

func TestPlayRequiresLogin(t *testing.T) {
	_, err := run(t, "--data-dir", t.TempDir(), "play", "--server", "lobby")
	if err == nil || !strings.Contains(err.Error(), "login") {
		t.Fatalf("err = %v", err)
	}
}
