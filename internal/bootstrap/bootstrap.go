package bootstrap

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"pyboot/internal/audit"
	"pyboot/internal/config"
	"pyboot/internal/launch"
	"pyboot/internal/pip"
	"pyboot/internal/runtime"
)

// Service drives the fixed provisioning sequence: validate the base
// path, ensure the runtime, rewrite the search config, ensure pip,
// then hand off to the core script.
type Service struct {
	Config  config.Config
	Layout  config.Layout
	Runtime *runtime.Service
	Pip     *pip.Service
	Launch  *launch.Service
	Audit   *audit.Logger
	Log     *log.Logger
}

func New(cfg config.Config, layout config.Layout, rt *runtime.Service, pm *pip.Service, ln *launch.Service, auditLog *audit.Logger, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{Config: cfg, Layout: layout, Runtime: rt, Pip: pm, Launch: ln, Audit: auditLog, Log: logger}
}

// StepResult records whether a pipeline step changed anything and what
// it left behind.
type StepResult struct {
	Changed bool   `json:"changed"`
	Path    string `json:"path"`
}

type Report struct {
	RunID   string            `json:"runId,omitempty"`
	Base    string            `json:"base"`
	Runtime StepResult        `json:"runtime"`
	Search  StepResult        `json:"searchConfig"`
	Pip     StepResult        `json:"pip"`
	Launch  *launch.RunResult `json:"launch,omitempty"`
}

// Provision performs the environment steps without launching anything.
// Path validation runs before any network call, directory creation, or
// audit write, so a rejected base leaves the filesystem untouched.
func (s *Service) Provision(ctx context.Context) (Report, error) {
	report := Report{RunID: s.Audit.RunID(), Base: s.Layout.BaseDir}

	if err := config.ValidateBasePath(s.Layout.BaseDir); err != nil {
		return report, err
	}
	s.event("validate", "ok", map[string]string{"base": s.Layout.BaseDir})
	s.Log.Info("base path validated", "base", s.Layout.BaseDir)

	rres, err := s.Runtime.Ensure(ctx, s.Layout, s.Config.Runtime)
	if err != nil {
		return report, err
	}
	report.Runtime = StepResult{Changed: rres.Installed, Path: rres.Path}

	if err := s.Runtime.WriteSearchConfig(s.Layout, s.Config.Runtime); err != nil {
		return report, err
	}
	report.Search = StepResult{Changed: true, Path: s.Layout.SearchConfig}

	pres, err := s.Pip.Ensure(ctx, s.Layout, s.Config.Pip)
	if err != nil {
		return report, err
	}
	report.Pip = StepResult{Changed: pres.Installed, Path: pres.Path}

	s.event("provision", "ok", nil)
	return report, nil
}

// Run provisions and then launches the core script. Pausing for the
// operator is the caller's concern.
func (s *Service) Run(ctx context.Context) (Report, error) {
	report, err := s.Provision(ctx)
	if err != nil {
		return report, err
	}
	lres, err := s.Launch.Run(ctx, s.Layout)
	if err != nil {
		return report, err
	}
	report.Launch = &lres
	s.event("run", "ok", nil)
	return report, nil
}

func (s *Service) event(phase, status string, fields map[string]string) {
	_ = s.Audit.Log(audit.Event{Operation: "bootstrap", Phase: phase, Status: status, Fields: fields})
}
