// Package scheduler executes resolved environment plans.
package scheduler

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"

	"go.trai.ch/matrix/internal/core/domain"
	"go.trai.ch/matrix/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Scheduler runs a plan of concrete environments: each one is provisioned and
// its command list executed in order, stopping the environment at the first
// failure while the remaining environments keep running.
type Scheduler struct {
	provisioner ports.Provisioner
	executor    ports.Executor
	telemetry   ports.Telemetry
	log         ports.Logger

	mu     sync.RWMutex
	status map[domain.InternedString]domain.EnvStatus
}

// NewScheduler creates a Scheduler on the given adapters.
func NewScheduler(
	provisioner ports.Provisioner,
	executor ports.Executor,
	telemetry ports.Telemetry,
	log ports.Logger,
) *Scheduler {
	return &Scheduler{
		provisioner: provisioner,
		executor:    executor,
		telemetry:   telemetry,
		log:         log,
		status:      make(map[domain.InternedString]domain.EnvStatus),
	}
}

// Run executes the plan and returns the per-environment report. The plan is
// expected in dependency order (Matrix.Resolve produces it that way); with
// parallelism above one, `depends` edges gate start order while independent
// environments run concurrently. The returned error is the report's
// aggregate outcome: nil, domain.ErrRunFailed or domain.ErrRunInterrupted.
func (s *Scheduler) Run(ctx context.Context, envs []*domain.Environment, parallelism int) (*domain.RunReport, error) {
	s.initStatuses(envs)

	var report *domain.RunReport
	if parallelism <= 1 {
		report = s.runSequential(ctx, envs)
	} else {
		report = s.runParallel(ctx, envs, parallelism)
	}
	return report, report.Err()
}

func (s *Scheduler) initStatuses(envs []*domain.Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, env := range envs {
		s.status[env.Name] = domain.StatusPending
	}
}

func (s *Scheduler) setStatus(name domain.InternedString, status domain.EnvStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[name] = status
}

// Status returns the current lifecycle state of an environment.
func (s *Scheduler) Status(name domain.InternedString) domain.EnvStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[name]
}

func (s *Scheduler) runSequential(ctx context.Context, envs []*domain.Environment) *domain.RunReport {
	report := &domain.RunReport{Results: make([]domain.EnvResult, 0, len(envs))}

	for _, env := range envs {
		if ctx.Err() != nil {
			report.Interrupted = true
			s.setStatus(env.Name, domain.StatusInterrupted)
			report.Results = append(report.Results, interruptedResult(env.Name))
			continue
		}

		res := s.runEnv(ctx, env)
		if res.Status == domain.StatusInterrupted {
			report.Interrupted = true
		}
		report.Results = append(report.Results, res)
	}

	return report
}

// runEnv provisions one environment and walks its command list, stopping at
// the first failure. Interruption is distinguished from failure so that a
// command killed by cancellation is not reported as a broken environment.
func (s *Scheduler) runEnv(ctx context.Context, env *domain.Environment) domain.EnvResult {
	s.setStatus(env.Name, domain.StatusRunning)
	s.log.Info("running environment " + env.Name.String())

	res := domain.EnvResult{
		Name:        env.Name,
		Status:      domain.StatusPassed,
		FailedIndex: -1,
	}

	start := time.Now()
	vctx, vertex := s.telemetry.Record(ctx, env.Name.String())
	defer func() {
		res.Duration = time.Since(start)
		vertex.Complete(res.Err)
		s.setStatus(env.Name, res.Status)
	}()

	provisioned, err := s.provisioner.Provision(vctx, env)
	if err != nil {
		if vctx.Err() != nil {
			res.Status = domain.StatusInterrupted
			res.Err = err
			return res
		}
		res.Status = domain.StatusFailed
		res.Err = zerr.With(err, "environment", env.Name.String())
		s.log.Error(res.Err)
		return res
	}

	for i, command := range env.Commands {
		err := s.executor.Run(vctx, env, provisioned, command)
		if err == nil {
			continue
		}
		if vctx.Err() != nil {
			res.Status = domain.StatusInterrupted
			res.Err = err
			return res
		}
		res.Status = domain.StatusFailed
		res.FailedCommand = command
		res.FailedIndex = i
		res.ExitCode = exitCode(err)
		res.Err = zerr.With(zerr.With(err, "environment", env.Name.String()), "command", command)
		s.log.Error(res.Err)
		return res
	}

	return res
}

// exitCode extracts the process exit status from a command error, -1 when
// the command never ran or was terminated by a signal.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func interruptedResult(name domain.InternedString) domain.EnvResult {
	return domain.EnvResult{
		Name:        name,
		Status:      domain.StatusInterrupted,
		FailedIndex: -1,
	}
}

// runParallel fans the plan out over an errgroup bounded by the parallelism
// limit. Dependencies gate start order only: each environment waits for its
// `depends` entries to finish and then runs whatever their outcome was.
//
// The plan is dependency-ordered and g.Go only returns once the submitted
// environment has started, so a waiting environment never waits on one that
// has not been submitted yet.
func (s *Scheduler) runParallel(ctx context.Context, envs []*domain.Environment, parallelism int) *domain.RunReport {
	index := make(map[domain.InternedString]int, len(envs))
	for i, env := range envs {
		index[env.Name] = i
	}

	results := make([]domain.EnvResult, len(envs))
	done := make([]chan struct{}, len(envs))
	for i := range done {
		done[i] = make(chan struct{})
	}

	var g errgroup.Group
	g.SetLimit(parallelism)

	for i, env := range envs {
		g.Go(func() error {
			defer close(done[i])

			for _, dep := range env.Depends {
				j, ok := index[dep]
				if !ok {
					continue
				}
				select {
				case <-done[j]:
				case <-ctx.Done():
				}
			}

			if ctx.Err() != nil {
				s.setStatus(env.Name, domain.StatusInterrupted)
				results[i] = interruptedResult(env.Name)
				return nil
			}

			results[i] = s.runEnv(ctx, env)
			return nil
		})
	}
	_ = g.Wait()

	report := &domain.RunReport{Results: results}
	for _, res := range results {
		if res.Status == domain.StatusInterrupted {
			report.Interrupted = true
			break
		}
	}
	return report
}
