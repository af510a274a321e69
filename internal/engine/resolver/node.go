package resolver

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pbundle/internal/adapters/cas"       //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pbundle/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pbundle/internal/adapters/sources"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pbundle/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pbundle/internal/core/ports"
)

// NodeID is the unique identifier for the resolution engine Graft node.
const NodeID graft.ID = "engine.resolver"

func init() {
	graft.Register(graft.Node[*Engine]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			cas.NodeID,
			sources.NodeID,
			logger.NodeID,
			telemetry.NodeID,
		},
		Run: func(ctx context.Context) (*Engine, error) {
			store, err := graft.Dep[ports.LocalStore](ctx)
			if err != nil {
				return nil, err
			}

			factory, err := graft.Dep[ports.SourceFactory](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			return New(store, factory, log, tel), nil
		},
	})
}
