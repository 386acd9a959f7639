// Package ports defines the core interfaces for the application.
package ports

import "go.trai.ch/matrix/internal/core/domain"

// ConfigLoader loads the declared environment matrix.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the matrix configuration from the given path.
	Load(path string) (*domain.Matrix, error)
}
