// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/frost/internal/adapters/fetch"
	_ "go.trai.ch/frost/internal/adapters/lockstore"
	_ "go.trai.ch/frost/internal/adapters/logger"
	_ "go.trai.ch/frost/internal/adapters/manifest"
	_ "go.trai.ch/frost/internal/adapters/registry"
	_ "go.trai.ch/frost/internal/adapters/telemetry/progrock"
	// Register app and engine nodes.
	_ "go.trai.ch/frost/internal/app"
	_ "go.trai.ch/frost/internal/engine/resolver"
)
