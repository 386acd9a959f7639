package ports

import (
	"context"

	"go.trai.ch/matrix/internal/core/domain"
)

// Executor runs a single command string inside a provisioned environment.
//
// The executable is resolved against the provisioned bin directory first;
// names outside it run only when the environment allow-lists them. Standard
// output and standard error are streamed, not captured.
//
// A non-zero exit maps to domain.ErrCommandExecution (with exit_code
// metadata); an executable outside the managed set and the allow-list maps
// to domain.ErrCommandNotAllowed.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	Run(ctx context.Context, env *domain.Environment, provisioned *domain.ProvisionedEnv, command string) error
}
