// Package app implements the application layer for frost.
package app

import (
	"context"
	"path/filepath"

	"go.trai.ch/frost/internal/core/domain"
	"go.trai.ch/frost/internal/core/ports"
	"go.trai.ch/frost/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	registry         ports.RegistryStore
	userRegistry     ports.RegistryStore
	userRegistryPath string
	locks            ports.LockStore
	resolver         *resolver.Resolver
	logger           ports.Logger
}

// New creates a new App instance. registry reads the merged registry chain;
// userRegistry reads and writes only the per-user registry file at
// userRegistryPath.
func New(
	registry ports.RegistryStore,
	userRegistry ports.RegistryStore,
	userRegistryPath string,
	locks ports.LockStore,
	res *resolver.Resolver,
	logger ports.Logger,
) *App {
	return &App{
		registry:         registry,
		userRegistry:     userRegistry,
		userRegistryPath: userRegistryPath,
		locks:            locks,
		resolver:         res,
		logger:           logger,
	}
}

// Resolve parses refStr and recursively resolves its dependency graph.
func (a *App) Resolve(ctx context.Context, refStr string, impure bool) (*domain.Dependencies, error) {
	ref, err := domain.ParseFlakeRef(refStr, true)
	if err != nil {
		return nil, err
	}
	registry, err := a.registry.Load()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load registries")
	}
	return a.resolver.ResolveFlake(ctx, ref, registry, impure)
}

// Info fetches and evaluates a single flake without walking its
// requirements.
func (a *App) Info(ctx context.Context, refStr string, impure bool) (*domain.Flake, error) {
	ref, err := domain.ParseFlakeRef(refStr, true)
	if err != nil {
		return nil, err
	}
	registry, err := a.registry.Load()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load registries")
	}
	return a.resolver.GetFlake(ctx, ref, registry, impure)
}

// Lock resolves refStr and writes an updated lock file. Pins from the
// previous lock file that still satisfy their declared requirement are
// carried over unchanged. lockPath may be empty, in which case the lock file
// is written next to the top-level flake's manifest.
func (a *App) Lock(ctx context.Context, refStr string, impure bool, lockPath string) error {
	deps, err := a.Resolve(ctx, refStr, impure)
	if err != nil {
		return err
	}

	if lockPath == "" {
		lockPath = filepath.Join(deps.Flake.Path, deps.Flake.Ref.Subdir, domain.LockFileName)
	}

	prev, err := a.locks.Load(lockPath)
	if err != nil {
		return err
	}

	lock, err := domain.UpdateLockFile(deps, prev)
	if err != nil {
		return err
	}

	if err := a.locks.Save(lock, lockPath); err != nil {
		return err
	}
	a.logger.Info("wrote lock file " + lockPath)
	return nil
}

// RegistryList returns the merged registry chain.
func (a *App) RegistryList() (*domain.Registry, error) {
	return a.registry.Load()
}

// RegistryAdd records an alias substitution in the user registry.
func (a *App) RegistryAdd(fromStr, toStr string) error {
	from, err := domain.ParseFlakeRef(fromStr, false)
	if err != nil {
		return err
	}
	if from.Variant != domain.VariantAlias {
		return zerr.With(zerr.Wrap(domain.ErrBadFlakeRef, "registry source must be an alias"), "ref", fromStr)
	}
	to, err := domain.ParseFlakeRef(toStr, false)
	if err != nil {
		return err
	}

	reg, err := a.userRegistry.Load()
	if err != nil {
		return err
	}
	reg.Add(from, to)
	return a.userRegistry.Save(reg, a.userRegistryPath)
}

// RegistryRemove deletes an alias from the user registry.
func (a *App) RegistryRemove(alias string) error {
	reg, err := a.userRegistry.Load()
	if err != nil {
		return err
	}
	if !reg.Remove(alias) {
		a.logger.Warn("alias " + alias + " not present in user registry")
		return nil
	}
	return a.userRegistry.Save(reg, a.userRegistryPath)
}
