package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/matrix/internal/core/ports"
)

// NodeID is the unique identifier for the telemetry Graft node.
const NodeID graft.ID = "adapter.telemetry"

func init() {
	// The passthrough telemetry is wired by default so command output is
	// inherited by the terminal; the progrock recorder is opted into from
	// the CLI.
	graft.Register(graft.Node[ports.Telemetry]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Telemetry, error) {
			return NewNoOp(), nil
		},
	})
}
