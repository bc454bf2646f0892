package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/mod/semver"

	"pyboot/internal/config"
	"pyboot/internal/fsutil"
	"pyboot/internal/runtime"
)

type Finding struct {
	Code    string `json:"code"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Report struct {
	Healthy  bool      `json:"healthy"`
	Base     string    `json:"base,omitempty"`
	Findings []Finding `json:"findings"`
}

type execFunc func(ctx context.Context, dir, bin string, args ...string) ([]byte, error)

func defaultExec(ctx context.Context, dir, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Service inspects an environment without changing it. It loads config
// itself so a broken config file becomes a finding instead of a crash.
type Service struct {
	ConfigPath string
	BaseDir    string
	Exec       execFunc
}

func (s *Service) Run(ctx context.Context) Report {
	findings := []Finding{}
	cfg := config.Normalize(config.DefaultConfig())

	if _, err := os.Stat(s.ConfigPath); err != nil {
		findings = append(findings, Finding{Code: "DOC_CONFIG_MISSING", Level: "warn", Message: "config file not found, built-in defaults in effect"})
	} else if loaded, err := config.Load(s.ConfigPath); err != nil {
		findings = append(findings, Finding{Code: "DOC_CONFIG_INVALID", Level: "error", Message: err.Error()})
	} else {
		cfg = loaded
	}
	if s.BaseDir != "" {
		cfg.Paths.Base = s.BaseDir
	}

	layout, err := config.ResolveLayout(cfg)
	if err != nil {
		findings = append(findings, Finding{Code: "DOC_LAYOUT", Level: "error", Message: err.Error()})
		return report("", findings)
	}
	if err := config.ValidateBasePath(layout.BaseDir); err != nil {
		findings = append(findings, Finding{Code: "DOC_PATH_SPACES", Level: "error", Message: err.Error()})
	}

	if !fsutil.FileNonEmpty(layout.RuntimeExe) {
		findings = append(findings, Finding{Code: "DOC_RUNTIME_MISSING", Level: "error", Message: layout.RuntimeExe + " not found or empty, run provision"})
	} else {
		findings = append(findings, s.probeRuntime(ctx, layout, cfg.Runtime.Version)...)
	}

	expected := strings.Join(runtime.SearchConfigLines(cfg.Runtime.Version), "\n") + "\n"
	if data, err := os.ReadFile(layout.SearchConfig); err != nil {
		findings = append(findings, Finding{Code: "DOC_SEARCH_CONFIG_MISSING", Level: "warn", Message: layout.SearchConfig + " not found, run provision"})
	} else if string(data) != expected {
		findings = append(findings, Finding{Code: "DOC_SEARCH_CONFIG_STALE", Level: "warn", Message: layout.SearchConfig + " differs from the expected directives"})
	}

	if !fsutil.FileNonEmpty(layout.PipExe) {
		findings = append(findings, Finding{Code: "DOC_PIP_MISSING", Level: "warn", Message: layout.PipExe + " not found, run provision"})
	}
	if _, err := os.Stat(layout.ScriptPath); err != nil {
		findings = append(findings, Finding{Code: "DOC_SCRIPT_MISSING", Level: "warn", Message: layout.ScriptPath + " not found, launch will fail"})
	}

	return report(layout.BaseDir, findings)
}

// probeRuntime asks the installed interpreter for its version. Probe
// problems are warnings, not errors: the file-level checks above are
// the contract and a probe can fail for host-specific reasons.
func (s *Service) probeRuntime(ctx context.Context, layout config.Layout, wantVersion string) []Finding {
	run := s.Exec
	if run == nil {
		run = defaultExec
	}
	out, err := run(ctx, layout.BaseDir, layout.RuntimeExe, "--version")
	if err != nil {
		return []Finding{{Code: "DOC_RUNTIME_SMOKE", Level: "warn", Message: fmt.Sprintf("--version probe failed: %v", err)}}
	}
	reported := runtime.ParseVersionOutput(string(out))
	if reported == "" {
		return []Finding{{Code: "DOC_RUNTIME_SMOKE", Level: "warn", Message: fmt.Sprintf("unrecognized --version output %q", strings.TrimSpace(string(out)))}}
	}
	if semver.Compare("v"+reported, "v"+wantVersion) != 0 {
		return []Finding{{Code: "DOC_RUNTIME_VERSION", Level: "warn", Message: fmt.Sprintf("runtime reports %s, config wants %s", reported, wantVersion)}}
	}
	return nil
}

func report(base string, findings []Finding) Report {
	healthy := true
	for _, f := range findings {
		if f.Level == "error" {
			healthy = false
			break
		}
	}
	return Report{Healthy: healthy, Base: base, Findings: findings}
}
