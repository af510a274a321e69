package activation

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pbundle/internal/core/ports"
)

// NodeID is the unique identifier for the activator Graft node.
const NodeID graft.ID = "adapter.activator"

func init() {
	graft.Register(graft.Node[ports.Activator]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Activator, error) {
			return New(), nil
		},
	})
}
