package venv

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/matrix/internal/adapters/logger"
	"go.trai.ch/matrix/internal/core/ports"
)

// NodeID is the unique identifier for the provisioner Graft node.
const NodeID graft.ID = "adapter.provisioner"

func init() {
	graft.Register(graft.Node[ports.Provisioner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Provisioner, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewProvisioner(log), nil
		},
	})
}
