package resolver

import (
	"context"
	"runtime"

	"github.com/grindlemire/graft"
	"go.trai.ch/frost/internal/adapters/fetch"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/frost/internal/adapters/lockstore" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/frost/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/frost/internal/adapters/manifest"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/frost/internal/adapters/telemetry/progrock"
	"go.trai.ch/frost/internal/core/ports"
)

// NodeID is the unique identifier for the resolver Graft node.
const NodeID graft.ID = "engine.resolver"

func init() {
	graft.Register(graft.Node[*Resolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fetch.NodeID,
			manifest.NodeID,
			lockstore.NodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Resolver, error) {
			fetcher, err := graft.Dep[ports.Fetcher](ctx)
			if err != nil {
				return nil, err
			}

			evaluator, err := graft.Dep[ports.Evaluator](ctx)
			if err != nil {
				return nil, err
			}

			locks, err := graft.Dep[ports.LockStore](ctx)
			if err != nil {
				return nil, err
			}

			telemetry, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			logger, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(
				fetcher,
				evaluator,
				locks,
				telemetry,
				logger,
				runtime.NumCPU(),
			), nil
		},
	})
}
