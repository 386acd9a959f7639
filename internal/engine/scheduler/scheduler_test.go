package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/matrix/internal/adapters/telemetry"
	"go.trai.ch/matrix/internal/core/domain"
	"go.trai.ch/matrix/internal/core/ports/mocks"
	"go.trai.ch/matrix/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

func env(name string, commands []string, depends ...string) *domain.Environment {
	e := &domain.Environment{
		Name:     domain.NewInternedString(name),
		Factors:  domain.Factors(name),
		Commands: commands,
	}
	for _, dep := range depends {
		e.Depends = append(e.Depends, domain.NewInternedString(dep))
	}
	return e
}

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()
	return log
}

func provisionAny(ctrl *gomock.Controller) *mocks.MockProvisioner {
	prov := mocks.NewMockProvisioner(ctrl)
	prov.EXPECT().Provision(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.Environment) (*domain.ProvisionedEnv, error) {
			return &domain.ProvisionedEnv{Name: e.Name}, nil
		}).AnyTimes()
	return prov
}

func TestScheduler_Run_AllPass(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := mocks.NewMockExecutor(ctrl)
	exec.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)

	s := scheduler.NewScheduler(provisionAny(ctrl), exec, telemetry.NewNoOp(), quietLogger(ctrl))

	envs := []*domain.Environment{
		env("py311", []string{"pytest", "pytest --cov"}),
		env("lint", []string{"flake8 tagging"}),
	}

	report, err := s.Run(context.Background(), envs, 1)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.False(t, report.Interrupted)
	for _, res := range report.Results {
		assert.Equal(t, domain.StatusPassed, res.Status)
		assert.Equal(t, -1, res.FailedIndex)
	}
}

func TestScheduler_Run_ShortCircuitsEnvironment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// ["true", "false", "true"]: the second command fails, the third must
	// never run.
	exec := mocks.NewMockExecutor(ctrl)
	gomock.InOrder(
		exec.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), "true").Return(nil),
		exec.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), "false").
			Return(errors.Join(domain.ErrCommandExecution, errors.New("exit status 1"))),
	)

	s := scheduler.NewScheduler(provisionAny(ctrl), exec, telemetry.NewNoOp(), quietLogger(ctrl))

	report, err := s.Run(context.Background(), []*domain.Environment{
		env("py311", []string{"true", "false", "true"}),
	}, 1)
	require.ErrorIs(t, err, domain.ErrRunFailed)

	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, "false", res.FailedCommand)
	assert.Equal(t, 1, res.FailedIndex)
	assert.ErrorIs(t, res.Err, domain.ErrCommandExecution)
}

func TestScheduler_Run_FailureDoesNotStopOtherEnvironments(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := mocks.NewMockExecutor(ctrl)
	exec.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.Environment, _ *domain.ProvisionedEnv, _ string) error {
			if e.Name.String() == "broken" {
				return errors.Join(domain.ErrCommandExecution, errors.New("exit status 2"))
			}
			return nil
		}).Times(2)

	s := scheduler.NewScheduler(provisionAny(ctrl), exec, telemetry.NewNoOp(), quietLogger(ctrl))

	report, err := s.Run(context.Background(), []*domain.Environment{
		env("broken", []string{"pytest"}),
		env("lint", []string{"flake8 tagging"}),
	}, 1)
	require.ErrorIs(t, err, domain.ErrRunFailed)

	require.Len(t, report.Results, 2)
	assert.Equal(t, domain.StatusFailed, report.Results[0].Status)
	assert.Equal(t, domain.StatusPassed, report.Results[1].Status)
}

func TestScheduler_Run_ProvisionFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	prov := mocks.NewMockProvisioner(ctrl)
	prov.EXPECT().Provision(gomock.Any(), gomock.Any()).
		Return(nil, errors.Join(domain.ErrDependencyResolution, errors.New("pip install failed")))

	// No command may run when provisioning failed.
	exec := mocks.NewMockExecutor(ctrl)

	s := scheduler.NewScheduler(prov, exec, telemetry.NewNoOp(), quietLogger(ctrl))

	report, err := s.Run(context.Background(), []*domain.Environment{
		env("py311", []string{"pytest"}),
	}, 1)
	require.ErrorIs(t, err, domain.ErrRunFailed)

	res := report.Results[0]
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, -1, res.FailedIndex)
	assert.ErrorIs(t, res.Err, domain.ErrDependencyResolution)
}

func TestScheduler_Run_ParallelOrdersDepends(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		coverageReady := make(chan struct{})
		djangoDone := make(chan struct{}, 2)

		exec := mocks.NewMockExecutor(ctrl)
		exec.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e *domain.Environment, _ *domain.ProvisionedEnv, _ string) error {
				switch e.Name.String() {
				case "py-django40", "py-django41":
					djangoDone <- struct{}{}
					return nil
				case "coverage":
					close(coverageReady)
					// Both dependencies finished before coverage started.
					if len(djangoDone) != 2 {
						t.Errorf("coverage started after %d of 2 dependencies", len(djangoDone))
					}
					return nil
				default:
					t.Errorf("unexpected environment: %s", e.Name)
					return nil
				}
			}).Times(3)

		s := scheduler.NewScheduler(provisionAny(ctrl), exec, telemetry.NewNoOp(), quietLogger(ctrl))

		report, err := s.Run(context.Background(), []*domain.Environment{
			env("py-django40", []string{"pytest"}),
			env("py-django41", []string{"pytest"}),
			env("coverage", []string{"coverage report"}, "py-django40", "py-django41"),
		}, 2)
		require.NoError(t, err)

		select {
		case <-coverageReady:
		default:
			t.Fatal("coverage never ran")
		}
		require.Len(t, report.Results, 3)
		assert.Equal(t, "coverage", report.Results[2].Name.String())
	})
}

func TestScheduler_Run_FailedDependencyStillRunsDependent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := mocks.NewMockExecutor(ctrl)
	exec.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.Environment, _ *domain.ProvisionedEnv, _ string) error {
			if e.Name.String() == "py311" {
				return errors.Join(domain.ErrCommandExecution, errors.New("exit status 1"))
			}
			return nil
		}).Times(2)

	s := scheduler.NewScheduler(provisionAny(ctrl), exec, telemetry.NewNoOp(), quietLogger(ctrl))

	report, err := s.Run(context.Background(), []*domain.Environment{
		env("py311", []string{"pytest"}),
		env("coverage", []string{"coverage report"}, "py311"),
	}, 2)
	require.ErrorIs(t, err, domain.ErrRunFailed)

	require.Len(t, report.Results, 2)
	assert.Equal(t, domain.StatusFailed, report.Results[0].Status)
	assert.Equal(t, domain.StatusPassed, report.Results[1].Status)
}

func TestScheduler_Run_InterruptMarksRemaining(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		ctx, cancel := context.WithCancel(context.Background())

		exec := mocks.NewMockExecutor(ctrl)
		exec.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(runCtx context.Context, _ *domain.Environment, _ *domain.ProvisionedEnv, _ string) error {
				cancel()
				<-runCtx.Done()
				return runCtx.Err()
			})

		s := scheduler.NewScheduler(provisionAny(ctrl), exec, telemetry.NewNoOp(), quietLogger(ctrl))

		report, err := s.Run(ctx, []*domain.Environment{
			env("py311", []string{"pytest"}),
			env("lint", []string{"flake8 tagging"}),
		}, 1)
		require.ErrorIs(t, err, domain.ErrRunInterrupted)

		assert.True(t, report.Interrupted)
		require.Len(t, report.Results, 2)
		assert.Equal(t, domain.StatusInterrupted, report.Results[0].Status)
		assert.Equal(t, domain.StatusInterrupted, report.Results[1].Status)
	})
}
