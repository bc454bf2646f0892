package logging

import (
	"io"

	"github.com/charmbracelet/log"

	"pyboot/internal/config"
)

// New builds the console logger from config. An unknown level falls
// back to the library default rather than failing a run over a
// cosmetic setting; Validate rejects unknown levels on load anyway.
func New(w io.Writer, cfg config.LoggingConfig) *log.Logger {
	opts := log.Options{
		Prefix: "pyboot",
	}
	if lvl, err := log.ParseLevel(cfg.Level); err == nil {
		opts.Level = lvl
	}
	if cfg.Format == "json" {
		opts.Formatter = log.JSONFormatter
	}
	return log.NewWithOptions(w, opts)
}
