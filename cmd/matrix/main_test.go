package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/matrix/internal/adapters/telemetry"
	"go.trai.ch/matrix/internal/app"
	"go.trai.ch/matrix/internal/core/domain"
	"go.trai.ch/matrix/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func testMatrix() *domain.Matrix {
	return &domain.Matrix{
		Envlist:  []string{"py311"},
		Defaults: domain.EnvConfig{Commands: []string{"pytest"}},
	}
}

type testComponents struct {
	loader      *mocks.MockConfigLoader
	provisioner *mocks.MockProvisioner
	executor    *mocks.MockExecutor
	logger      *mocks.MockLogger
	provider    ComponentProvider
}

func newTestComponents(ctrl *gomock.Controller) *testComponents {
	c := &testComponents{
		loader:      mocks.NewMockConfigLoader(ctrl),
		provisioner: mocks.NewMockProvisioner(ctrl),
		executor:    mocks.NewMockExecutor(ctrl),
		logger:      mocks.NewMockLogger(ctrl),
	}
	c.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	c.logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	c.logger.EXPECT().Error(gomock.Any()).AnyTimes()

	application := app.New(c.loader, c.provisioner, c.executor, telemetry.NewNoOp(), c.logger)
	c.provider = func(_ context.Context) (*app.Components, error) {
		return &app.Components{
			App:          application,
			Logger:       c.logger,
			ConfigLoader: c.loader,
		}, nil
	}
	return c
}

// TestRun_Version verifies that the run function returns 0 when the command succeeds.
func TestRun_Version(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := newTestComponents(ctrl)
	stderr := new(bytes.Buffer)

	exitCode := run(context.Background(), []string{"version"}, stderr, c.provider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, error) {
		return nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_EnvironmentFailure verifies the exit code when an environment fails.
func TestRun_EnvironmentFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := newTestComponents(ctrl)
	c.loader.EXPECT().Load("matrix.ini").Return(testMatrix(), nil)
	c.provisioner.EXPECT().Provision(gomock.Any(), gomock.Any()).
		Return(&domain.ProvisionedEnv{Name: domain.NewInternedString("py311")}, nil)
	c.executor.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), "pytest").
		Return(errors.Join(domain.ErrCommandExecution, errors.New("exit status 1")))

	exitCode := run(context.Background(), []string{"run"}, new(bytes.Buffer), c.provider)
	assert.Equal(t, 1, exitCode)
}

// TestRun_Interrupt verifies the exit code when the run is cancelled.
func TestRun_Interrupt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newTestComponents(ctrl)
	c.loader.EXPECT().Load("matrix.ini").Return(testMatrix(), nil)
	c.provisioner.EXPECT().Provision(gomock.Any(), gomock.Any()).
		Return(&domain.ProvisionedEnv{Name: domain.NewInternedString("py311")}, nil)
	c.executor.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), "pytest").DoAndReturn(
		func(runCtx context.Context, _ *domain.Environment, _ *domain.ProvisionedEnv, _ string) error {
			cancel()
			<-runCtx.Done()
			return runCtx.Err()
		})

	exitCode := run(ctx, []string{"run"}, new(bytes.Buffer), c.provider)
	assert.Equal(t, exitInterrupted, exitCode)
}
