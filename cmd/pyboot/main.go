package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"pyboot/internal/app"
	"pyboot/internal/bootstrap"
	"pyboot/internal/config"
	"pyboot/internal/launch"
)

type ExitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	// A .env next to the process can pin PYBOOT_CONFIG.
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err)
		}
		if ex, ok := err.(ExitCoder); ok {
			os.Exit(ex.ExitCode())
		}
		os.Exit(1)
	}
}

func rootContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRootCmd() *cobra.Command {
	var configPath string
	var baseDir string
	var jsonOutput bool
	var noPause bool

	newSvc := func() (*app.Service, error) {
		return app.New(app.Options{ConfigPath: configPath, BaseDir: baseDir})
	}

	cmd := &cobra.Command{
		Use:           "pyboot",
		Short:         "Bootstrap an embeddable Python runtime next to a core script",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(newSvc, jsonOutput, noPause)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&baseDir, "base", "", "base directory (defaults to the executable's directory)")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.Flags().BoolVar(&noPause, "no-pause", false, "exit without waiting for Enter")

	cmd.AddCommand(newRunCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newProvisionCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newDoctorCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newCleanCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newConfigCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newVersionCmd(newSvc, &jsonOutput))

	return cmd
}

// runPipeline drives the full sequence and pauses before returning,
// success or failure, so a double-clicked console window does not
// vanish with the diagnostics. Errors are printed here, ahead of the
// pause, and returned with an empty message so main does not repeat
// them.
func runPipeline(newSvc func() (*app.Service, error), jsonOutput, noPause bool) error {
	ctx, stop := rootContext()
	defer stop()

	finish := func(err error) error {
		if !noPause {
			launch.Pause(os.Stdin, os.Stdout)
		}
		if err == nil {
			return nil
		}
		code := 1
		var pse *config.PathSpacesError
		if errors.As(err, &pse) {
			code = 2
		}
		return &exitError{code: code}
	}

	svc, err := newSvc()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return finish(err)
	}
	report, err := svc.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return finish(err)
	}
	if err := printPipelineReport(jsonOutput, report); err != nil {
		return err
	}
	return finish(nil)
}

func newRunCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var noPause bool
	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"start"},
		Short:   "Provision the environment and launch the core script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(newSvc, *jsonOutput, noPause)
		},
	}
	cmd.Flags().BoolVar(&noPause, "no-pause", false, "exit without waiting for Enter")
	return cmd
}

func newProvisionCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "provision",
		Aliases: []string{"setup", "ensure"},
		Short:   "Provision runtime, search config, and pip without launching",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := rootContext()
			defer stop()
			svc, err := newSvc()
			if err != nil {
				return err
			}
			report, err := svc.Provision(ctx)
			if err != nil {
				return mapExitCode(err)
			}
			return printPipelineReport(*jsonOutput, report)
		},
	}
}

func newDoctorCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"diag", "checkup"},
		Short:   "Run diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := rootContext()
			defer stop()
			svc, err := newSvc()
			if err != nil {
				return err
			}
			report := svc.DoctorRun(ctx)
			if *jsonOutput {
				return print(true, report, "")
			}
			if report.Healthy {
				fmt.Println("healthy")
			} else {
				fmt.Println("issues found:")
			}
			for _, f := range report.Findings {
				fmt.Printf("- [%s] %s\n", f.Code, f.Message)
			}
			return nil
		},
	}
}

func newCleanCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "clean",
		Aliases: []string{"clear"},
		Short:   "Delete downloaded artifacts from the temp directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			res, err := svc.Clean()
			if err != nil {
				return err
			}
			return print(*jsonOutput, res, fmt.Sprintf("removed %d temp entries, freed %d bytes", res.Removed, res.FreedBytes))
		},
	}
}

func newConfigCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	configCmd := &cobra.Command{Use: "config", Aliases: []string{"cfg"}, Short: "Manage configuration"}

	showCmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"get", "view"},
		Short:   "Show the resolved effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, svc.Config, "")
			}
			blob, err := toml.Marshal(svc.Config)
			if err != nil {
				return err
			}
			fmt.Print(string(blob))
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:     "init",
		Aliases: []string{"create"},
		Short:   "Materialize the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			path, err := svc.ConfigInit()
			if err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"path": path}, "wrote "+path)
		},
	}

	configCmd.AddCommand(showCmd, initCmd)
	return configCmd
}

func printPipelineReport(jsonOutput bool, report bootstrap.Report) error {
	if jsonOutput {
		return print(true, report, "")
	}
	fmt.Printf("runtime: %s (%s)\n", stepWord(report.Runtime.Changed), report.Runtime.Path)
	fmt.Printf("search config: rewritten (%s)\n", report.Search.Path)
	fmt.Printf("pip: %s (%s)\n", stepWord(report.Pip.Changed), report.Pip.Path)
	if report.Launch != nil {
		if report.Launch.ExitOK {
			fmt.Printf("script: completed (%s)\n", report.Launch.Script)
		} else {
			fmt.Printf("script: exited with an error (%s)\n", report.Launch.Script)
		}
	}
	return nil
}

func stepWord(changed bool) string {
	if changed {
		return "installed"
	}
	return "already present"
}

// mapExitCode lifts the path-validation failure onto its distinct exit
// code while leaving the message for main to print.
func mapExitCode(err error) error {
	var pse *config.PathSpacesError
	if errors.As(err, &pse) {
		return &exitError{code: 2, msg: err.Error()}
	}
	return err
}

func print(jsonOutput bool, payload any, message string) error {
	if jsonOutput {
		blob, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(blob))
		return nil
	}
	if message != "" {
		fmt.Println(message)
	}
	return nil
}
