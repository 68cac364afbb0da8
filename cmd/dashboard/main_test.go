package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("LOG_LEVEL", "error")

	out, err := execute(t, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "applied 2 migration(s)") {
		t.Errorf("first run output = %q", out)
	}

	out, err = execute(t, "migrate")
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if !strings.Contains(out, "applied 0 migration(s)") {
		t.Errorf("second run output = %q", out)
	}
}

func TestCollectCommand_RequiresAPIKey(t *testing.T) {
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "app.db"))
	t.Setenv("COLLECTOR_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")

	if _, err := execute(t, "collect"); err == nil || !strings.Contains(err.Error(), "COLLECTOR_API_KEY") {
		t.Errorf("collect error = %v; want missing api key", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("APP_ENV", "staging")

	if _, err := execute(t, "migrate"); err == nil || !strings.Contains(err.Error(), "APP_ENV") {
		t.Errorf("error = %v; want APP_ENV error", err)
	}
}
