package cas

import (
	"context"
	"time"

	"github.com/git-pkgs/registries/fetch"
	"github.com/grindlemire/graft"
	"go.trai.ch/pbundle/internal/adapters/distmeta"
	"go.trai.ch/pbundle/internal/adapters/logger"
	"go.trai.ch/pbundle/internal/build"
	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
)

// NodeID is the unique identifier for the local store Graft node.
const NodeID graft.ID = "adapter.local_store"

// NewFetcher returns the artifact downloader used by the store, with one
// circuit breaker per download host.
func NewFetcher() fetch.FetcherInterface {
	return fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(
		fetch.WithUserAgent("pbundle/"+build.Version),
		fetch.WithMaxRetries(3),
		fetch.WithBaseDelay(500*time.Millisecond),
	))
}

func init() {
	graft.Register(graft.Node[ports.LocalStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, distmeta.NodeID},
		Run: func(ctx context.Context) (ports.LocalStore, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			reader, err := graft.Dep[ports.MetadataReader](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(domain.DefaultCachePath(), NewFetcher(), reader, log), nil
		},
	})
}
