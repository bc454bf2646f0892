package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pyboot/internal/config"
)

func fakeProbe(output string) execFunc {
	return func(ctx context.Context, dir, bin string, args ...string) ([]byte, error) {
		return []byte(output), nil
	}
}

// seedEnvironment lays out a fully provisioned base directory.
func seedEnvironment(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	runtimeDir := filepath.Join(base, "python")
	if err := os.MkdirAll(filepath.Join(runtimeDir, "Scripts"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := map[string]string{
		filepath.Join(runtimeDir, "python.exe"):         "interpreter",
		filepath.Join(runtimeDir, "python39._pth"):      "python39.zip\n.\n\nimport site\n",
		filepath.Join(runtimeDir, "Scripts", "pip.exe"): "pip",
		filepath.Join(base, "main.py"):                  "print('hi')\n",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			t.Fatalf("seed %s: %v", path, err)
		}
	}
	return base
}

func saveConfig(t *testing.T, base string) string {
	t.Helper()
	path := filepath.Join(base, "pyboot.toml")
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return path
}

func findingCodes(r Report) map[string]string {
	codes := make(map[string]string, len(r.Findings))
	for _, f := range r.Findings {
		codes[f.Code] = f.Level
	}
	return codes
}

func TestRunHealthyEnvironment(t *testing.T) {
	base := seedEnvironment(t)
	svc := &Service{ConfigPath: saveConfig(t, base), BaseDir: base, Exec: fakeProbe("Python 3.9.2\n")}

	report := svc.Run(context.Background())
	if !report.Healthy {
		t.Fatalf("expected healthy report, findings: %+v", report.Findings)
	}
	if len(report.Findings) != 0 {
		t.Fatalf("expected no findings, got %+v", report.Findings)
	}
	if report.Base != base {
		t.Errorf("report base = %q, want %q", report.Base, base)
	}
}

func TestRunEmptyBase(t *testing.T) {
	base := t.TempDir()
	svc := &Service{ConfigPath: filepath.Join(base, "pyboot.toml"), BaseDir: base, Exec: fakeProbe("")}

	report := svc.Run(context.Background())
	if report.Healthy {
		t.Fatalf("missing runtime must make the report unhealthy")
	}
	codes := findingCodes(report)
	if codes["DOC_RUNTIME_MISSING"] != "error" {
		t.Errorf("expected DOC_RUNTIME_MISSING error, codes: %v", codes)
	}
	for _, warn := range []string{"DOC_CONFIG_MISSING", "DOC_SEARCH_CONFIG_MISSING", "DOC_PIP_MISSING", "DOC_SCRIPT_MISSING"} {
		if codes[warn] != "warn" {
			t.Errorf("expected %s warning, codes: %v", warn, codes)
		}
	}
}

func TestRunStaleSearchConfig(t *testing.T) {
	base := seedEnvironment(t)
	pth := filepath.Join(base, "python", "python39._pth")
	if err := os.WriteFile(pth, []byte("python39.zip\nimport site\n"), 0o644); err != nil {
		t.Fatalf("corrupt search config: %v", err)
	}
	svc := &Service{ConfigPath: saveConfig(t, base), BaseDir: base, Exec: fakeProbe("Python 3.9.2\n")}

	report := svc.Run(context.Background())
	if !report.Healthy {
		t.Fatalf("stale search config is a warning, findings: %+v", report.Findings)
	}
	if findingCodes(report)["DOC_SEARCH_CONFIG_STALE"] != "warn" {
		t.Errorf("expected DOC_SEARCH_CONFIG_STALE warning, got %+v", report.Findings)
	}
}

func TestRunVersionDrift(t *testing.T) {
	base := seedEnvironment(t)
	svc := &Service{ConfigPath: saveConfig(t, base), BaseDir: base, Exec: fakeProbe("Python 3.8.1\n")}

	report := svc.Run(context.Background())
	if !report.Healthy {
		t.Fatalf("version drift is a warning, findings: %+v", report.Findings)
	}
	if findingCodes(report)["DOC_RUNTIME_VERSION"] != "warn" {
		t.Errorf("expected DOC_RUNTIME_VERSION warning, got %+v", report.Findings)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	base := seedEnvironment(t)
	path := filepath.Join(base, "pyboot.toml")
	if err := os.WriteFile(path, []byte("version = \"not a number\""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	svc := &Service{ConfigPath: path, BaseDir: base, Exec: fakeProbe("Python 3.9.2\n")}

	report := svc.Run(context.Background())
	if report.Healthy {
		t.Fatalf("invalid config must make the report unhealthy")
	}
	if findingCodes(report)["DOC_CONFIG_INVALID"] != "error" {
		t.Errorf("expected DOC_CONFIG_INVALID error, got %+v", report.Findings)
	}
}

func TestRunSpacePath(t *testing.T) {
	base := filepath.Join(t.TempDir(), "my tools")
	if err := os.MkdirAll(base, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	svc := &Service{ConfigPath: filepath.Join(base, "pyboot.toml"), BaseDir: base, Exec: fakeProbe("")}

	report := svc.Run(context.Background())
	if report.Healthy {
		t.Fatalf("space in base path must make the report unhealthy")
	}
	if findingCodes(report)["DOC_PATH_SPACES"] != "error" {
		t.Errorf("expected DOC_PATH_SPACES error, got %+v", report.Findings)
	}
}
