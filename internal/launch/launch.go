package launch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"

	"pyboot/internal/audit"
	"pyboot/internal/config"
	"pyboot/internal/fsutil"
)

// execFunc runs a binary with inherited stdio so the core script owns
// the console while it runs. Tests substitute fakes.
type execFunc func(ctx context.Context, dir, bin string, args ...string) error

func defaultExec(ctx context.Context, dir, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Service hands control to the core script once the environment is up.
type Service struct {
	Audit *audit.Logger
	Log   *log.Logger
	Exec  execFunc
}

func New(auditLog *audit.Logger, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{Audit: auditLog, Log: logger, Exec: defaultExec}
}

// RunResult reports how the launch went. ExitOK is false when the
// script itself exited non-zero, which is tolerated.
type RunResult struct {
	Launched bool   `json:"launched"`
	ExitOK   bool   `json:"exitOk"`
	Script   string `json:"script"`
}

// Run invokes the runtime executable on the configured script from the
// base directory. A script that starts but exits non-zero is logged and
// tolerated; failing to start it at all is an error.
func (s *Service) Run(ctx context.Context, layout config.Layout) (RunResult, error) {
	if !fsutil.FileNonEmpty(layout.RuntimeExe) {
		return RunResult{}, fmt.Errorf("LNC_RUNTIME: runtime executable %s not found", layout.RuntimeExe)
	}
	if _, err := os.Stat(layout.ScriptPath); err != nil {
		return RunResult{}, fmt.Errorf("LNC_SCRIPT: core script %s not found", layout.ScriptPath)
	}

	s.event("invoke", "start", "", map[string]string{"script": layout.ScriptPath})
	s.Log.Info("launching core script", "script", layout.ScriptPath)
	err := s.Exec(ctx, layout.BaseDir, layout.RuntimeExe, layout.ScriptPath)
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		s.event("invoke", "ok", "", map[string]string{"script": layout.ScriptPath})
		return RunResult{Launched: true, ExitOK: true, Script: layout.ScriptPath}, nil
	case errors.As(err, &exitErr):
		s.event("invoke", "warn", err.Error(), nil)
		s.Log.Warn("core script exited with an error", "err", err)
		return RunResult{Launched: true, ExitOK: false, Script: layout.ScriptPath}, nil
	default:
		s.event("invoke", "fail", err.Error(), nil)
		return RunResult{}, fmt.Errorf("LNC_START: %w", err)
	}
}

// Pause blocks until the user presses Enter, or until input hits EOF
// when there is no interactive console behind it.
func Pause(in io.Reader, out io.Writer) {
	fmt.Fprint(out, "Press Enter to exit...")
	_, _ = bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
}

func (s *Service) event(phase, status, msg string, fields map[string]string) {
	_ = s.Audit.Log(audit.Event{Operation: "launch", Phase: phase, Status: status, Message: msg, Fields: fields})
}
