// Package app implements the application layer for matrix.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.trai.ch/matrix/internal/adapters/telemetry/progrock"
	"go.trai.ch/matrix/internal/core/domain"
	"go.trai.ch/matrix/internal/core/ports"
	"go.trai.ch/matrix/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (
	timeRounding = 10 * time.Millisecond
	reportPerm   = 0o600
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	provisioner  ports.Provisioner
	executor     ports.Executor
	telemetry    ports.Telemetry
	logger       ports.Logger
}

// New creates a new App instance. The telemetry is the default recorder;
// RunOptions.Progress swaps it for the progress renderer per invocation.
func New(
	loader ports.ConfigLoader,
	provisioner ports.Provisioner,
	executor ports.Executor,
	tel ports.Telemetry,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		provisioner:  provisioner,
		executor:     executor,
		telemetry:    tel,
		logger:       log,
	}
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	// ConfigPath is the matrix.ini location.
	ConfigPath string
	// Selection overrides the configured envlist when non-empty.
	Selection []string
	// Parallel is the number of environments run concurrently; values
	// below two mean sequential execution.
	Parallel int
	// ReportPath, when non-empty, receives the run report as YAML.
	ReportPath string
	// Progress switches command output onto the progress recorder.
	Progress bool
}

// Run resolves the selection against the configured matrix and executes the
// plan. It returns domain.ErrRunFailed when at least one environment failed
// and domain.ErrRunInterrupted when the run was cancelled.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	plan, err := a.resolve(opts.ConfigPath, opts.Selection)
	if err != nil {
		return err
	}

	tel := a.telemetry
	if opts.Progress {
		rec := progrock.New()
		defer func() {
			_ = rec.Close()
		}()
		tel = rec
	}

	sched := scheduler.NewScheduler(a.provisioner, a.executor, tel, a.logger)
	report, runErr := sched.Run(ctx, plan, opts.Parallel)

	a.logSummary(report)

	if opts.ReportPath != "" {
		if err := writeReport(report, opts.ReportPath); err != nil {
			// A run outcome beats a reporting failure.
			a.logger.Error(zerr.Wrap(err, "failed to write report"))
		}
	}

	return runErr
}

// List resolves the selection and returns the concrete plan without
// executing anything.
func (a *App) List(configPath string, selection []string) ([]*domain.Environment, error) {
	return a.resolve(configPath, selection)
}

func (a *App) resolve(configPath string, selection []string) ([]*domain.Environment, error) {
	matrix, err := a.configLoader.Load(configPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	envs, err := matrix.Resolve(selection)
	if err != nil {
		return nil, err
	}

	plan := make([]*domain.Environment, len(envs))
	for i := range envs {
		plan[i] = &envs[i]
	}
	return plan, nil
}

func (a *App) logSummary(report *domain.RunReport) {
	passed := 0
	for _, res := range report.Results {
		a.logger.Info(fmt.Sprintf("%s: %s (%s)", res.Name, res.Status, res.Duration.Round(timeRounding)))
		if res.Status == domain.StatusPassed {
			passed++
		}
	}

	summary := fmt.Sprintf("%d of %d environments passed", passed, len(report.Results))
	if report.Interrupted {
		a.logger.Warn(summary + " (interrupted)")
		return
	}
	if passed != len(report.Results) {
		a.logger.Warn(summary)
		return
	}
	a.logger.Info(summary)
}

// writeReport serializes the report as YAML, rendering environment errors
// into their Reason field first.
func writeReport(report *domain.RunReport, path string) error {
	for i := range report.Results {
		if err := report.Results[i].Err; err != nil {
			report.Results[i].Reason = err.Error()
		}
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, reportPerm)
}
