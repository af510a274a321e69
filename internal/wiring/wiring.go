// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/pbundle/internal/adapters/activation"
	_ "go.trai.ch/pbundle/internal/adapters/cas"
	_ "go.trai.ch/pbundle/internal/adapters/config"
	_ "go.trai.ch/pbundle/internal/adapters/distmeta"
	_ "go.trai.ch/pbundle/internal/adapters/fs"
	_ "go.trai.ch/pbundle/internal/adapters/lockfile"
	_ "go.trai.ch/pbundle/internal/adapters/logger"
	_ "go.trai.ch/pbundle/internal/adapters/shell"
	_ "go.trai.ch/pbundle/internal/adapters/sources"
	_ "go.trai.ch/pbundle/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/pbundle/internal/app"
	_ "go.trai.ch/pbundle/internal/engine/resolver"
)
