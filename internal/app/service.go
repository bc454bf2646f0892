package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"pyboot/internal/audit"
	"pyboot/internal/bootstrap"
	"pyboot/internal/config"
	"pyboot/internal/doctor"
	"pyboot/internal/download"
	"pyboot/internal/launch"
	"pyboot/internal/logging"
	"pyboot/internal/pip"
	"pyboot/internal/runtime"
)

type Options struct {
	ConfigPath string
	BaseDir    string
	HTTPClient *http.Client
	LogWriter  io.Writer
}

type Service struct {
	ConfigPath string
	Config     config.Config
	Layout     config.Layout

	Bootstrap *bootstrap.Service
	Runtime   *runtime.Service
	Pip       *pip.Service
	Launcher  *launch.Service
	Doctor    *doctor.Service
	Audit     *audit.Logger
	Log       *log.Logger
}

func New(opts Options) (*Service, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.Ensure(configPath)
	if err != nil {
		return nil, err
	}
	if opts.BaseDir != "" {
		cfg.Paths.Base = opts.BaseDir
	}
	layout, err := config.ResolveLayout(cfg)
	if err != nil {
		return nil, err
	}

	logWriter := opts.LogWriter
	if logWriter == nil {
		logWriter = os.Stderr
	}
	logger := logging.New(logWriter, cfg.Logging)
	auditLog := audit.New(layout.AuditPath, audit.NewRunID())

	timeout, err := time.ParseDuration(cfg.Download.Timeout)
	if err != nil {
		return nil, fmt.Errorf("CFG_DOWNLOAD_TIMEOUT: %w", err)
	}
	client := download.New(
		download.WithHTTPClient(opts.HTTPClient),
		download.WithTimeout(timeout),
		download.WithAttempts(cfg.Download.Attempts),
	)

	runtimeSvc := runtime.New(client, auditLog, logger)
	pipSvc := pip.New(client, auditLog, logger)
	launchSvc := launch.New(auditLog, logger)
	bootstrapSvc := bootstrap.New(cfg, layout, runtimeSvc, pipSvc, launchSvc, auditLog, logger)
	doctorSvc := &doctor.Service{ConfigPath: configPath, BaseDir: opts.BaseDir}

	return &Service{
		ConfigPath: configPath,
		Config:     cfg,
		Layout:     layout,
		Bootstrap:  bootstrapSvc,
		Runtime:    runtimeSvc,
		Pip:        pipSvc,
		Launcher:   launchSvc,
		Doctor:     doctorSvc,
		Audit:      auditLog,
		Log:        logger,
	}, nil
}

// Run executes the full pipeline including the core-script launch.
func (s *Service) Run(ctx context.Context) (bootstrap.Report, error) {
	return s.Bootstrap.Run(ctx)
}

// Provision executes the environment steps without launching.
func (s *Service) Provision(ctx context.Context) (bootstrap.Report, error) {
	return s.Bootstrap.Provision(ctx)
}

func (s *Service) DoctorRun(ctx context.Context) doctor.Report {
	return s.Doctor.Run(ctx)
}

func (s *Service) SaveConfig() error {
	return config.Save(s.ConfigPath, s.Config)
}

// ConfigInit materializes the effective config as a file, refusing to
// clobber one that already exists.
func (s *Service) ConfigInit() (string, error) {
	if _, err := os.Stat(s.ConfigPath); err == nil {
		return s.ConfigPath, fmt.Errorf("CFG_EXISTS: %s already exists", s.ConfigPath)
	}
	if err := s.SaveConfig(); err != nil {
		return "", err
	}
	return s.ConfigPath, nil
}

type CleanResult struct {
	Removed    int   `json:"removed"`
	FreedBytes int64 `json:"freedBytes"`
}

// Clean deletes downloaded artifacts from the temp directory. The
// provisioned runtime is left alone.
func (s *Service) Clean() (CleanResult, error) {
	entries, err := os.ReadDir(s.Layout.TempDir)
	if errors.Is(err, fs.ErrNotExist) {
		return CleanResult{}, nil
	}
	if err != nil {
		return CleanResult{}, fmt.Errorf("CLN_READ: %w", err)
	}
	var res CleanResult
	for _, entry := range entries {
		path := filepath.Join(s.Layout.TempDir, entry.Name())
		res.FreedBytes += treeSize(path)
		if err := os.RemoveAll(path); err != nil {
			return res, fmt.Errorf("CLN_REMOVE: %w", err)
		}
		res.Removed++
	}
	_ = s.Audit.Log(audit.Event{Operation: "clean", Phase: "complete", Status: "ok",
		Fields: map[string]string{"removed": fmt.Sprint(res.Removed), "freedBytes": fmt.Sprint(res.FreedBytes)}})
	s.Log.Info("temp directory cleaned", "removed", res.Removed, "freedBytes", res.FreedBytes)
	return res, nil
}

func treeSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
