// Package telemetry provides implementations of the Telemetry port.
package telemetry

import (
	"context"
	"io"
	"os"

	"go.trai.ch/matrix/internal/core/ports"
)

// NoOp is the default Telemetry: it records nothing and leaves command
// output flowing to the process's own streams.
type NoOp struct{}

// NewNoOp creates a new NoOp telemetry.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Record returns a vertex whose writers are the process streams.
func (t *NoOp) Record(ctx context.Context, _ string) (context.Context, ports.Vertex) {
	v := &noopVertex{}
	return ports.ContextWithVertex(ctx, v), v
}

// Close does nothing.
func (t *NoOp) Close() error { return nil }

type noopVertex struct{}

func (v *noopVertex) Stdout() io.Writer { return os.Stdout }
func (v *noopVertex) Stderr() io.Writer { return os.Stderr }
func (v *noopVertex) Complete(error)    {}
