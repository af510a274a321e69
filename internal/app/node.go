package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pbundle/internal/adapters/activation" //nolint:depguard // Wired in app layer
	"go.trai.ch/pbundle/internal/adapters/config"     //nolint:depguard // Wired in app layer
	"go.trai.ch/pbundle/internal/adapters/lockfile"   //nolint:depguard // Wired in app layer
	"go.trai.ch/pbundle/internal/adapters/logger"     //nolint:depguard // Wired in app layer
	"go.trai.ch/pbundle/internal/adapters/shell"      //nolint:depguard // Wired in app layer
	"go.trai.ch/pbundle/internal/adapters/telemetry"  //nolint:depguard // Wired in app layer
	"go.trai.ch/pbundle/internal/core/ports"
	"go.trai.ch/pbundle/internal/engine/resolver"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App       *App
	Logger    ports.Logger
	Telemetry ports.Telemetry
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			lockfile.NodeID,
			resolver.NodeID,
			activation.NodeID,
			shell.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			telemetry.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	locks, err := graft.Dep[ports.LockfileStore](ctx)
	if err != nil {
		return nil, err
	}

	engine, err := graft.Dep[*resolver.Engine](ctx)
	if err != nil {
		return nil, err
	}

	activator, err := graft.Dep[ports.Activator](ctx)
	if err != nil {
		return nil, err
	}

	executor, err := graft.Dep[ports.Executor](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, locks, engine, activator, executor, log), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
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

	return &Components{
		App:       app,
		Logger:    log,
		Telemetry: tel,
	}, nil
}
