package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a minimal config using dbPath and port, and points
// PAWL_CONFIG at it.
func writeConfig(t *testing.T, dbPath string, port int) {
	t.Helper()

	content := `
database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: ` + strconv.Itoa(port) + `

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

security:
  session_lifetime: 60
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("PAWL_CONFIG", path)
}

func runFor(t *testing.T, d time.Duration) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	var out bytes.Buffer
	err := run(ctx, &out)
	return out.String(), err
}

func TestRun_MissingSecret(t *testing.T) {
	writeConfig(t, filepath.Join(t.TempDir(), "pawl.db"), 19281)
	t.Setenv("PAWL_SECRET", "")

	_, err := runFor(t, 2*time.Second)
	if err == nil || !strings.Contains(err.Error(), "security.secret") {
		t.Fatalf("run() error = %v, want missing secret", err)
	}
}

func TestRun_EmptyDatabasePath(t *testing.T) {
	writeConfig(t, "", 19282)
	t.Setenv("PAWL_SECRET", "test-secret")

	if _, err := runFor(t, 2*time.Second); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

func TestRun_BootstrapThenRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pawl.db")
	writeConfig(t, dbPath, 19283)
	t.Setenv("PAWL_SECRET", "test-secret")

	out, err := runFor(t, 2*time.Second)
	if err != nil {
		t.Fatalf("first run() error = %v", err)
	}
	if !strings.Contains(out, "DefaultRatchetUser") || !strings.Contains(out, "ratchet api key") {
		t.Errorf("first run output missing bootstrap credentials:\n%s", out)
	}

	out, err = runFor(t, 2*time.Second)
	if err != nil {
		t.Fatalf("second run() error = %v", err)
	}
	if out != "" {
		t.Errorf("second run printed credentials again:\n%s", out)
	}
}

func TestRun_WrongSecretIsFatal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pawl.db")
	writeConfig(t, dbPath, 19284)

	t.Setenv("PAWL_SECRET", "first-secret")
	if _, err := runFor(t, 2*time.Second); err != nil {
		t.Fatalf("first run() error = %v", err)
	}

	t.Setenv("PAWL_SECRET", "second-secret")
	_, err := runFor(t, 2*time.Second)
	if err == nil || !strings.Contains(err.Error(), "loading records") {
		t.Fatalf("run() with wrong secret error = %v, want load failure", err)
	}
}

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("PAWL_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("PAWL_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
