package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/mod/semver"

	"pyboot/internal/audit"
	"pyboot/internal/config"
	"pyboot/internal/download"
	"pyboot/internal/fsutil"
)

// execFunc runs a binary and returns its combined output. Tests
// substitute fakes; the default implementation execs for real.
type execFunc func(ctx context.Context, dir, bin string, args ...string) ([]byte, error)

func defaultExec(ctx context.Context, dir, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Service provisions the embeddable runtime and maintains its
// module-search configuration.
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

// EnsureResult reports what Ensure did. Installed is false when the
// runtime already passed verification and no network action ran.
type EnsureResult struct {
	Installed bool   `json:"installed"`
	Path      string `json:"path"`
}

// Ensure provisions the runtime unless it is already installed.
// Installed means the executable exists and is non-empty; with verify
// mode "smoke" it must also answer --version with the configured
// version. A failed prior install therefore gets repaired instead of
// trusted.
func (s *Service) Ensure(ctx context.Context, layout config.Layout, rc config.RuntimeConfig) (EnsureResult, error) {
	if s.installed(ctx, layout, rc) {
		s.event("provision_runtime", "check", "skip", "", map[string]string{"path": layout.RuntimeExe})
		s.Log.Info("runtime already present", "path", layout.RuntimeExe)
		return EnsureResult{Installed: false, Path: layout.RuntimeExe}, nil
	}

	if err := os.MkdirAll(layout.TempDir, 0o755); err != nil {
		return EnsureResult{}, fmt.Errorf("RT_TEMP_DIR: %w", err)
	}
	s.event("provision_runtime", "download", "start", "", map[string]string{"url": rc.ArchiveURL})
	s.Log.Info("downloading runtime archive", "url", rc.ArchiveURL)
	if err := s.Client.FetchFile(ctx, rc.ArchiveURL, layout.ArchivePath); err != nil {
		s.event("provision_runtime", "download", "fail", err.Error(), nil)
		return EnsureResult{}, fmt.Errorf("RT_DOWNLOAD: %w", err)
	}
	if rc.ArchiveSHA256 != "" {
		if err := download.VerifyFile(layout.ArchivePath, rc.ArchiveSHA256); err != nil {
			s.event("provision_runtime", "verify_archive", "fail", err.Error(), nil)
			return EnsureResult{}, err
		}
	}

	if err := s.expand(layout); err != nil {
		s.event("provision_runtime", "expand", "fail", err.Error(), nil)
		return EnsureResult{}, err
	}
	s.event("provision_runtime", "complete", "ok", "", map[string]string{"path": layout.RuntimeExe})
	s.Log.Info("runtime installed", "path", layout.RuntimeExe)
	return EnsureResult{Installed: true, Path: layout.RuntimeExe}, nil
}

// expand unpacks the downloaded archive into a staging directory,
// verifies the expected executable is inside, and only then swaps the
// staged tree into place. A bad archive never touches an existing
// runtime directory.
func (s *Service) expand(layout config.Layout) error {
	staging := fmt.Sprintf("%s.staging-%d", layout.RuntimeDir, time.Now().UnixNano())
	defer os.RemoveAll(staging)

	if err := fsutil.Unzip(layout.ArchivePath, staging); err != nil {
		return fmt.Errorf("RT_EXPAND: %w", err)
	}
	stagedExe := filepath.Join(staging, filepath.Base(layout.RuntimeExe))
	if !fsutil.FileNonEmpty(stagedExe) {
		return fmt.Errorf("RT_VERIFY: archive %s does not contain %s", filepath.Base(layout.ArchivePath), filepath.Base(layout.RuntimeExe))
	}
	if err := os.RemoveAll(layout.RuntimeDir); err != nil {
		return fmt.Errorf("RT_COMMIT: %w", err)
	}
	if err := os.Rename(staging, layout.RuntimeDir); err != nil {
		return fmt.Errorf("RT_COMMIT: %w", err)
	}
	return nil
}

func (s *Service) installed(ctx context.Context, layout config.Layout, rc config.RuntimeConfig) bool {
	if !fsutil.FileNonEmpty(layout.RuntimeExe) {
		return false
	}
	if rc.Verify != "smoke" {
		return true
	}
	out, err := s.Exec(ctx, layout.BaseDir, layout.RuntimeExe, "--version")
	if err != nil {
		s.Log.Warn("runtime smoke check failed, reinstalling", "err", err)
		return false
	}
	reported := ParseVersionOutput(string(out))
	if reported == "" || semver.Compare("v"+reported, "v"+rc.Version) != 0 {
		s.Log.Warn("runtime reports unexpected version, reinstalling", "reported", reported, "want", rc.Version)
		return false
	}
	return true
}

// SearchConfigLines returns the exact module-search directives for a
// runtime version: the bundled stdlib archive, the current directory,
// a blank separator, and the site-import directive.
func SearchConfigLines(version string) []string {
	return []string{config.StdlibArchiveName(version), ".", "", "import site"}
}

// WriteSearchConfig rewrites the search config on every run regardless
// of whether the runtime was just installed.
func (s *Service) WriteSearchConfig(layout config.Layout, rc config.RuntimeConfig) error {
	content := strings.Join(SearchConfigLines(rc.Version), "\n") + "\n"
	if err := fsutil.AtomicWrite(layout.SearchConfig, []byte(content), 0o644); err != nil {
		return fmt.Errorf("RT_SEARCH_CONFIG: %w", err)
	}
	s.event("write_search_config", "write", "ok", "", map[string]string{"path": layout.SearchConfig})
	s.Log.Debug("search config rewritten", "path", layout.SearchConfig)
	return nil
}

// ParseVersionOutput extracts X.Y.Z from "Python X.Y.Z" interpreter
// output, empty when the output has another shape.
func ParseVersionOutput(out string) string {
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) == 2 && strings.EqualFold(fields[0], "python") {
		return fields[1]
	}
	return ""
}

func (s *Service) event(op, phase, status, msg string, fields map[string]string) {
	_ = s.Audit.Log(audit.Event{Operation: op, Phase: phase, Status: status, Message: msg, Fields: fields})
}
