package pip

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/log"

	"pyboot/internal/audit"
	"pyboot/internal/config"
	"pyboot/internal/download"
	"pyboot/internal/fsutil"
)

// execFunc runs a binary with inherited stdio so installer progress
// stays visible. Tests substitute fakes.
type execFunc func(ctx context.Context, dir, bin string, args ...string) error

func defaultExec(ctx context.Context, dir, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Service bootstraps the package manager inside a provisioned runtime.
type Service struct {
	Client *download.Client
	Audit  *audit.Logger
	Log    *log.Logger
	Exec   execFunc
}

func New(client *download.Client, auditLog *audit.Logger, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{Client: client, Audit: auditLog, Log: logger, Exec: defaultExec}
}

type EnsureResult struct {
	Installed bool   `json:"installed"`
	Path      string `json:"path"`
}

// Ensure installs pip via the bootstrap installer unless pip.exe is
// already present and non-empty. The embeddable runtime ships without
// a package manager, so a fresh install always passes through here.
func (s *Service) Ensure(ctx context.Context, layout config.Layout, pc config.PipConfig) (EnsureResult, error) {
	if fsutil.FileNonEmpty(layout.PipExe) {
		s.event("ensure_pip", "check", "skip", "", map[string]string{"path": layout.PipExe})
		s.Log.Info("pip already present", "path", layout.PipExe)
		return EnsureResult{Installed: false, Path: layout.PipExe}, nil
	}
	if !fsutil.FileNonEmpty(layout.RuntimeExe) {
		return EnsureResult{}, fmt.Errorf("PIP_RUNTIME: runtime executable %s not found, provision the runtime first", layout.RuntimeExe)
	}

	if err := os.MkdirAll(layout.TempDir, 0o755); err != nil {
		return EnsureResult{}, fmt.Errorf("PIP_TEMP_DIR: %w", err)
	}
	s.event("ensure_pip", "download", "start", "", map[string]string{"url": pc.InstallerURL})
	s.Log.Info("downloading pip installer", "url", pc.InstallerURL)
	if err := s.Client.FetchFile(ctx, pc.InstallerURL, layout.InstallerPath); err != nil {
		s.event("ensure_pip", "download", "fail", err.Error(), nil)
		return EnsureResult{}, fmt.Errorf("PIP_DOWNLOAD: %w", err)
	}

	s.event("ensure_pip", "install", "start", "", nil)
	s.Log.Info("running pip installer", "installer", filepath.Base(layout.InstallerPath))
	if err := s.Exec(ctx, layout.BaseDir, layout.RuntimeExe, layout.InstallerPath, "--no-warn-script-location"); err != nil {
		s.event("ensure_pip", "install", "fail", err.Error(), nil)
		return EnsureResult{}, fmt.Errorf("PIP_INSTALL: %w", err)
	}
	if !fsutil.FileNonEmpty(layout.PipExe) {
		err := fmt.Errorf("PIP_VERIFY: installer finished but %s is missing", layout.PipExe)
		s.event("ensure_pip", "verify", "fail", err.Error(), nil)
		return EnsureResult{}, err
	}

	s.event("ensure_pip", "complete", "ok", "", map[string]string{"path": layout.PipExe})
	s.Log.Info("pip installed", "path", layout.PipExe)
	return EnsureResult{Installed: true, Path: layout.PipExe}, nil
}

func (s *Service) event(op, phase, status, msg string, fields map[string]string) {
	_ = s.Audit.Log(audit.Event{Operation: op, Phase: phase, Status: status, Message: msg, Fields: fields})
}
