package config

func Normalize(cfg Config) Config {
	if cfg.Version == 0 {
		cfg.Version = SchemaVersion
	}
	if cfg.Paths.Runtime == "" {
		cfg.Paths.Runtime = "python"
	}
	if cfg.Paths.Temp == "" {
		cfg.Paths.Temp = "temp"
	}
	if cfg.Runtime.Version == "" {
		cfg.Runtime.Version = DefaultRuntimeVersion
	}
	if cfg.Runtime.ArchiveURL == "" {
		cfg.Runtime.ArchiveURL = DefaultArchiveURL(cfg.Runtime.Version)
	}
	if cfg.Runtime.Verify == "" {
		cfg.Runtime.Verify = "exists"
	}
	if cfg.Pip.InstallerURL == "" {
		cfg.Pip.InstallerURL = DefaultInstallerURL
	}
	if cfg.Launch.Script == "" {
		cfg.Launch.Script = "main.py"
	}
	if cfg.Download.Timeout == "" {
		cfg.Download.Timeout = "10m"
	}
	if cfg.Download.Attempts == 0 {
		cfg.Download.Attempts = 5
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	return cfg
}
