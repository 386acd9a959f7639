package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/matrix/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/matrix/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/matrix/internal/adapters/shell"     //nolint:depguard // Wired in app layer
	"go.trai.ch/matrix/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/matrix/internal/adapters/venv"      //nolint:depguard // Wired in app layer
	"go.trai.ch/matrix/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			venv.NodeID,
			shell.NodeID,
			telemetry.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}

			provisioner, err := graft.Dep[ports.Provisioner](ctx)
			if err != nil {
				return nil, err
			}

			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}

			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(loader, provisioner, executor, tel, log), nil
		},
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			config.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			application, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{
				App:          application,
				Logger:       log,
				ConfigLoader: loader,
			}, nil
		},
	})
}
