// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/matrix/internal/adapters/config"
	_ "go.trai.ch/matrix/internal/adapters/logger"
	_ "go.trai.ch/matrix/internal/adapters/shell"
	_ "go.trai.ch/matrix/internal/adapters/telemetry"
	_ "go.trai.ch/matrix/internal/adapters/venv"
	// Register app nodes.
	_ "go.trai.ch/matrix/internal/app"
)
