package telemetry

import (
	"context"
	"errors"
	"io"

	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
)

// Multi fans every vertex out to several recorders.
type Multi struct {
	recorders []ports.Telemetry
}

// NewMulti creates a Multi over recorders.
func NewMulti(recorders ...ports.Telemetry) *Multi {
	return &Multi{recorders: recorders}
}

// Record starts the vertex on every recorder. Each recorder sees the context
// it returned for its own parent, so nesting is preserved per recorder.
func (m *Multi) Record(ctx context.Context, name string, opts ...ports.VertexOption) (context.Context, ports.Vertex) {
	v := &MultiVertex{}
	for _, r := range m.recorders {
		var child ports.Vertex
		ctx, child = r.Record(ctx, name, opts...)
		v.vertices = append(v.vertices, child)
	}
	return ports.ContextWithVertex(ctx, v), v
}

// Close closes every recorder and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MultiVertex forwards to the vertices of each recorder.
type MultiVertex struct {
	vertices []ports.Vertex
}

// Stdout returns a writer duplicating to every vertex's stdout.
func (v *MultiVertex) Stdout() io.Writer {
	ws := make([]io.Writer, 0, len(v.vertices))
	for _, child := range v.vertices {
		ws = append(ws, child.Stdout())
	}
	return io.MultiWriter(ws...)
}

// Stderr returns a writer duplicating to every vertex's stderr.
func (v *MultiVertex) Stderr() io.Writer {
	ws := make([]io.Writer, 0, len(v.vertices))
	for _, child := range v.vertices {
		ws = append(ws, child.Stderr())
	}
	return io.MultiWriter(ws...)
}

// Log forwards msg to every vertex.
func (v *MultiVertex) Log(level domain.LogLevel, msg string) {
	for _, child := range v.vertices {
		child.Log(level, msg)
	}
}

// Complete completes every vertex.
func (v *MultiVertex) Complete(err error) {
	for _, child := range v.vertices {
		child.Complete(err)
	}
}

// Cached marks every vertex as cached.
func (v *MultiVertex) Cached() {
	for _, child := range v.vertices {
		child.Cached()
	}
}
