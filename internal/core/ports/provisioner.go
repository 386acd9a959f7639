package ports

import (
	"context"

	"go.trai.ch/matrix/internal/core/domain"
)

// Provisioner establishes isolated dependency sets for environments.
//
// Implementations are responsible for:
//   - Creating (or reusing) an installation satisfying the environment's
//     dependency specifiers
//   - Returning the installation as an explicit value, never ambient state
//
// Provisioning is side-effecting (it installs packages) and fails with
// domain.ErrDependencyResolution when the specifiers cannot be satisfied.
//
//go:generate go run go.uber.org/mock/mockgen -source=provisioner.go -destination=mocks/mock_provisioner.go -package=mocks
type Provisioner interface {
	Provision(ctx context.Context, env *domain.Environment) (*domain.ProvisionedEnv, error)
}
