package config

const (
	SchemaVersion = 1

	// DefaultRuntimeVersion matches the embeddable build the core scripts
	// were written against.
	DefaultRuntimeVersion = "3.9.2"

	DefaultInstallerURL = "https://bootstrap.pypa.io/get-pip.py"
)

// DefaultConfig returns a fully-populated v1 config document.
func DefaultConfig() Config {
	return Config{
		Version: SchemaVersion,
		Paths: PathsConfig{
			Runtime: "python",
			Temp:    "temp",
		},
		Runtime: RuntimeConfig{
			Version: DefaultRuntimeVersion,
			Verify:  "exists",
		},
		Pip: PipConfig{
			InstallerURL: DefaultInstallerURL,
		},
		Launch: LaunchConfig{
			Script: "main.py",
		},
		Download: DownloadConfig{
			Timeout:  "10m",
			Attempts: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
