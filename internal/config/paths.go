package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	runtimeExeName    = "python.exe"
	scriptsDirName    = "Scripts"
	pipExeName        = "pip.exe"
	archiveFileName   = "python.zip"
	installerFileName = "get-pip.py"
	auditFileName     = "pyboot.log.jsonl"
	configFileName    = "pyboot.toml"
)

// EnvConfigPath pins the config file location without flags; a .env
// next to the process is loaded at startup, so the variable can live
// there.
const EnvConfigPath = "PYBOOT_CONFIG"

func DefaultConfigPath() string {
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	exe, err := os.Executable()
	if err != nil {
		return configFileName
	}
	return filepath.Join(filepath.Dir(exe), configFileName)
}

func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}

// Layout is the fully-resolved absolute path set one run operates on.
type Layout struct {
	BaseDir       string
	RuntimeDir    string
	TempDir       string
	RuntimeExe    string
	SearchConfig  string
	PipExe        string
	ArchivePath   string
	InstallerPath string
	ScriptPath    string
	AuditPath     string
}

// ResolveLayout derives the absolute working paths for cfg. An empty
// base means the directory of the running executable, matching a tool
// dropped next to the script it launches.
func ResolveLayout(cfg Config) (Layout, error) {
	base := cfg.Paths.Base
	if base == "" {
		exe, err := os.Executable()
		if err != nil {
			return Layout{}, fmt.Errorf("CFG_BASE: resolve executable directory: %w", err)
		}
		base = filepath.Dir(exe)
	}
	base, err := ExpandPath(base)
	if err != nil {
		return Layout{}, err
	}
	base, err = filepath.Abs(base)
	if err != nil {
		return Layout{}, err
	}

	runtimeDir := resolveUnder(base, cfg.Paths.Runtime)
	tempDir := resolveUnder(base, cfg.Paths.Temp)
	return Layout{
		BaseDir:       base,
		RuntimeDir:    runtimeDir,
		TempDir:       tempDir,
		RuntimeExe:    filepath.Join(runtimeDir, runtimeExeName),
		SearchConfig:  filepath.Join(runtimeDir, SearchConfigName(cfg.Runtime.Version)),
		PipExe:        filepath.Join(runtimeDir, scriptsDirName, pipExeName),
		ArchivePath:   filepath.Join(tempDir, archiveFileName),
		InstallerPath: filepath.Join(tempDir, installerFileName),
		ScriptPath:    resolveUnder(base, cfg.Launch.Script),
		AuditPath:     filepath.Join(base, auditFileName),
	}, nil
}

func resolveUnder(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// PathSpacesError rejects a base directory the downstream invocation
// machinery cannot survive. Callers pick it out with errors.As to map
// it to a distinct exit code.
type PathSpacesError struct {
	Base string
}

func (e *PathSpacesError) Error() string {
	return fmt.Sprintf("ENV_PATH_SPACES: base path %q contains spaces; move the tool to a space-free path", e.Base)
}

// ValidateBasePath fails on space-containing base directories before
// any provisioning begins.
func ValidateBasePath(base string) error {
	if strings.Contains(base, " ") {
		return &PathSpacesError{Base: base}
	}
	return nil
}
