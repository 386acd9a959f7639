package ports

import (
	"context"
	"io"
)

// Telemetry records per-environment progress for observability.
//
//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks
type Telemetry interface {
	// Record starts recording a unit of work named after the environment.
	// The returned context carries the vertex (see VertexFromContext).
	Record(ctx context.Context, name string) (context.Context, Vertex)
	// Close flushes and closes the recording session.
	Close() error
}

// Vertex is one recorded unit of work. Command output is streamed through
// its writers unmodified.
type Vertex interface {
	Stdout() io.Writer
	Stderr() io.Writer
	// Complete marks the vertex finished, with a nil error on success.
	Complete(err error)
}

type vertexKey struct{}

// ContextWithVertex stores a vertex in the context.
func ContextWithVertex(ctx context.Context, v Vertex) context.Context {
	return context.WithValue(ctx, vertexKey{}, v)
}

// VertexFromContext returns the vertex stored in the context, or nil.
func VertexFromContext(ctx context.Context) Vertex {
	v, _ := ctx.Value(vertexKey{}).(Vertex)
	return v
}
