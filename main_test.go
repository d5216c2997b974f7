package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/takoeight0821/ember/config"
	"github.com/takoeight0821/ember/eval"
)

func writeScript(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewRuntimeModules(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Modules.SQL = config.SQL{Driver: "sqlite", DSN: ":memory:"}
	r, closeModules, err := NewRuntime(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}
	defer closeModules()

	v, err := r.Run(context.Background(), `
module text;
module sql;
return upper(queryValue("select 'ok'"));`)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := eval.Stringify(v); got != "OK" {
		t.Errorf("got %q, want OK", got)
	}
}

func TestNewRuntimeWithoutText(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Modules.Text.Enabled = false
	r, closeModules, err := NewRuntime(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}
	defer closeModules()

	if _, err := r.Run(context.Background(), "module text;"); err == nil {
		t.Errorf("text module is registered although disabled")
	}
}

func TestRunPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeScript(t, dir, "pass.em", `test("adds") { return 1 + 1 == 2; }`)
	writeScript(t, dir, "fail.em", `test("broken") { return 1 == 2; } test("fine") { return true; }`)

	r, closeModules, err := NewRuntime(config.Default(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	defer closeModules()

	if err := RunPath(context.Background(), r, filepath.Join(dir, "pass.em"), slog.New(slog.DiscardHandler)); err != nil {
		t.Errorf("RunPath(pass.em) returned error: %v", err)
	}

	err = RunPath(context.Background(), r, dir, slog.New(slog.DiscardHandler))
	if err == nil {
		t.Fatalf("RunPath(dir) succeeded, want a failed test")
	}
	if msg := err.Error(); !strings.Contains(msg, "fail.em") || !strings.Contains(msg, "1 of 2 tests failed: broken") {
		t.Errorf("RunPath error = %q", msg)
	}
}

func TestLoadConfigExplicitPath(t *testing.T) {
	t.Parallel()

	path := writeScript(t, t.TempDir(), "config.yaml", "maxCallDepth: 8\n")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.MaxCallDepth != 8 {
		t.Errorf("MaxCallDepth = %d, want 8", cfg.MaxCallDepth)
	}
}
