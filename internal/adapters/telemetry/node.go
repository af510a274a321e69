package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pbundle/internal/adapters/telemetry/progrock"
	"go.trai.ch/pbundle/internal/adapters/telemetry/tracing"
	"go.trai.ch/pbundle/internal/core/ports"
)

const (
	// NodeID is the unique identifier for the telemetry adapter node.
	NodeID graft.ID = "adapter.telemetry"
)

func init() {
	graft.Register(graft.Node[ports.Telemetry]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Telemetry, error) {
			return NewMulti(progrock.New(), tracing.New()), nil
		},
	})
}
