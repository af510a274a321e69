package sources

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pbundle/internal/adapters/distmeta"
	"go.trai.ch/pbundle/internal/adapters/fs"
	"go.trai.ch/pbundle/internal/adapters/logger"
	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
)

// NodeID is the unique identifier for the source factory Graft node.
const NodeID graft.ID = "adapter.sources"

func init() {
	graft.Register(graft.Node[ports.SourceFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, fs.WalkerNodeID, fs.HasherNodeID, distmeta.NodeID},
		Run: func(ctx context.Context) (ports.SourceFactory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			walker, err := graft.Dep[*fs.Walker](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[*fs.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			reader, err := graft.Dep[ports.MetadataReader](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(log, walker, hasher, reader, domain.HTTPTimeout()), nil
		},
	})
}
