package app

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pyboot/internal/config"
)

func newTestService(t *testing.T, base string) *Service {
	t.Helper()
	svc, err := New(Options{
		ConfigPath: filepath.Join(base, "pyboot.toml"),
		BaseDir:    base,
		LogWriter:  io.Discard,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestNewFallsBackToDefaults(t *testing.T) {
	base := t.TempDir()
	svc := newTestService(t, base)

	if svc.Layout.BaseDir != base {
		t.Errorf("base dir = %q, want %q", svc.Layout.BaseDir, base)
	}
	if svc.Config.Runtime.Version != "3.9.2" {
		t.Errorf("runtime version = %q, want default", svc.Config.Runtime.Version)
	}
	if svc.Bootstrap == nil || svc.Doctor == nil || svc.Audit == nil {
		t.Fatalf("service wiring incomplete: %+v", svc)
	}
	// Construction alone must not materialize a config file.
	if _, err := os.Stat(svc.ConfigPath); !os.IsNotExist(err) {
		t.Errorf("config file should not exist after New, stat err = %v", err)
	}
}

func TestNewLoadsConfigFile(t *testing.T) {
	base := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Launch.Script = "server.py"
	path := filepath.Join(base, "pyboot.toml")
	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	svc, err := New(Options{ConfigPath: path, BaseDir: base, LogWriter: io.Discard})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if svc.Layout.ScriptPath != filepath.Join(base, "server.py") {
		t.Errorf("script path = %q, want configured server.py", svc.Layout.ScriptPath)
	}
}

func TestNewRejectsBrokenConfig(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "pyboot.toml")
	if err := os.WriteFile(path, []byte("version = \"one\""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := New(Options{ConfigPath: path, BaseDir: base, LogWriter: io.Discard}); err == nil {
		t.Fatalf("expected error for unparseable config")
	}
}

func TestConfigInit(t *testing.T) {
	base := t.TempDir()
	svc := newTestService(t, base)

	path, err := svc.ConfigInit()
	if err != nil {
		t.Fatalf("ConfigInit: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "version = 1") {
		t.Errorf("materialized config missing schema version: %q", data)
	}

	if _, err := svc.ConfigInit(); err == nil || !strings.Contains(err.Error(), "CFG_EXISTS") {
		t.Fatalf("expected CFG_EXISTS on second init, got %v", err)
	}
}

func TestClean(t *testing.T) {
	base := t.TempDir()
	svc := newTestService(t, base)

	if res, err := svc.Clean(); err != nil || res.Removed != 0 {
		t.Fatalf("clean without temp dir: %+v, %v", res, err)
	}

	if err := os.MkdirAll(svc.Layout.TempDir, 0o755); err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	if err := os.WriteFile(svc.Layout.ArchivePath, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("seed archive: %v", err)
	}
	if err := os.WriteFile(svc.Layout.InstallerPath, []byte("01234"), 0o644); err != nil {
		t.Fatalf("seed installer: %v", err)
	}
	if err := os.MkdirAll(svc.Layout.RuntimeDir, 0o755); err != nil {
		t.Fatalf("mkdir runtime: %v", err)
	}

	res, err := svc.Clean()
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if res.Removed != 2 || res.FreedBytes != 15 {
		t.Fatalf("clean result = %+v, want 2 entries / 15 bytes", res)
	}
	entries, err := os.ReadDir(svc.Layout.TempDir)
	if err != nil || len(entries) != 0 {
		t.Errorf("temp dir should remain but be empty: %v, %v", entries, err)
	}
	if _, err := os.Stat(svc.Layout.RuntimeDir); err != nil {
		t.Errorf("clean must not touch the runtime dir: %v", err)
	}
}
