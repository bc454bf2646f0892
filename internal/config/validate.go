package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

var allowedVerifyModes = map[string]struct{}{
	"exists": {},
	"smoke":  {},
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var allowedLogFormats = map[string]struct{}{
	"text": {},
	"json": {},
}

func Validate(cfg Config) error {
	if cfg.Version != SchemaVersion {
		return fmt.Errorf("CFG_VERSION: unsupported version %d", cfg.Version)
	}
	if cfg.Paths.Runtime == "" || cfg.Paths.Temp == "" {
		return fmt.Errorf("CFG_PATHS: missing runtime/temp directory")
	}
	if cfg.Paths.Runtime == cfg.Paths.Temp {
		return fmt.Errorf("CFG_PATHS: runtime and temp directories must differ")
	}
	if !semver.IsValid("v" + cfg.Runtime.Version) {
		return fmt.Errorf("CFG_RUNTIME_VERSION: invalid runtime version %q", cfg.Runtime.Version)
	}
	if cfg.Runtime.ArchiveURL == "" {
		return fmt.Errorf("CFG_RUNTIME_URL: missing archive url")
	}
	if _, ok := allowedVerifyModes[cfg.Runtime.Verify]; !ok {
		return fmt.Errorf("CFG_RUNTIME_VERIFY: unsupported verify mode %q", cfg.Runtime.Verify)
	}
	if err := validateChecksum(cfg.Runtime.ArchiveSHA256); err != nil {
		return err
	}
	if cfg.Pip.InstallerURL == "" {
		return fmt.Errorf("CFG_PIP_URL: missing installer url")
	}
	if strings.TrimSpace(cfg.Launch.Script) == "" {
		return fmt.Errorf("CFG_LAUNCH_SCRIPT: missing core script path")
	}
	d, err := time.ParseDuration(cfg.Download.Timeout)
	if err != nil || d <= 0 {
		return fmt.Errorf("CFG_DOWNLOAD_TIMEOUT: invalid timeout %q", cfg.Download.Timeout)
	}
	if cfg.Download.Attempts < 1 || cfg.Download.Attempts > 10 {
		return fmt.Errorf("CFG_DOWNLOAD_ATTEMPTS: attempts must be 1..10, got %d", cfg.Download.Attempts)
	}
	if _, ok := allowedLogLevels[cfg.Logging.Level]; !ok {
		return fmt.Errorf("CFG_LOGGING: unsupported level %q", cfg.Logging.Level)
	}
	if _, ok := allowedLogFormats[cfg.Logging.Format]; !ok {
		return fmt.Errorf("CFG_LOGGING: unsupported format %q", cfg.Logging.Format)
	}
	return nil
}

func validateChecksum(sum string) error {
	if sum == "" {
		return nil
	}
	hex := strings.TrimPrefix(strings.ToLower(sum), "sha256:")
	if len(hex) != 64 {
		return fmt.Errorf("CFG_RUNTIME_CHECKSUM: expected 64 hex chars, got %d", len(hex))
	}
	for _, c := range hex {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("CFG_RUNTIME_CHECKSUM: invalid hex char %q", c)
		}
	}
	return nil
}
