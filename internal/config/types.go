package config

// Config is the frozen v1 schema.
type Config struct {
	Version  int            `toml:"version"`
	Paths    PathsConfig    `toml:"paths"`
	Runtime  RuntimeConfig  `toml:"runtime"`
	Pip      PipConfig      `toml:"pip"`
	Launch   LaunchConfig   `toml:"launch"`
	Download DownloadConfig `toml:"download"`
	Logging  LoggingConfig  `toml:"logging"`
}

// PathsConfig anchors the working tree. Base empty means "directory of
// the running executable"; runtime and temp resolve relative to base
// unless absolute.
type PathsConfig struct {
	Base    string `toml:"base"`
	Runtime string `toml:"runtime"`
	Temp    string `toml:"temp"`
}

// RuntimeConfig describes the embeddable runtime build to provision.
// ArchiveURL empty means "derive the python.org embeddable build URL
// from Version". Verify selects the installed-check: "exists" accepts a
// non-empty executable, "smoke" additionally requires a --version
// invocation to succeed and report Version.
type RuntimeConfig struct {
	Version       string `toml:"version"`
	ArchiveURL    string `toml:"archive_url"`
	ArchiveSHA256 string `toml:"archive_sha256,omitempty"`
	Verify        string `toml:"verify"`
}

type PipConfig struct {
	InstallerURL string `toml:"installer_url"`
}

type LaunchConfig struct {
	Script string `toml:"script"`
}

type DownloadConfig struct {
	Timeout  string `toml:"timeout"`
	Attempts int    `toml:"attempts"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}
