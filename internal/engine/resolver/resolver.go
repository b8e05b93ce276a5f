// Package resolver implements the recursive flake dependency resolution
// algorithm.
package resolver

import (
	"context"
	"maps"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/frost/internal/core/domain"
	"go.trai.ch/frost/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Resolver builds resolved dependency graphs for flake references.
type Resolver struct {
	fetcher     ports.Fetcher
	evaluator   ports.Evaluator
	locks       ports.LockStore
	telemetry   ports.Telemetry
	logger      ports.Logger
	parallelism int
}

// New creates a new Resolver. parallelism bounds the number of concurrent
// sibling fetches per node.
func New(
	fetcher ports.Fetcher,
	evaluator ports.Evaluator,
	locks ports.LockStore,
	telemetry ports.Telemetry,
	logger ports.Logger,
	parallelism int,
) *Resolver {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Resolver{
		fetcher:     fetcher,
		evaluator:   evaluator,
		locks:       locks,
		telemetry:   telemetry,
		logger:      logger,
		parallelism: parallelism,
	}
}

// run holds the state of one resolution run: the registry in use, the fetch
// cache and the in-flight dedup group. Runs are independent; nothing here is
// shared across concurrent resolutions.
type run struct {
	r            *Resolver
	registry     *domain.Registry
	impureTopRef bool

	flight  singleflight.Group
	mu      sync.Mutex
	flakes  map[string]*domain.Flake
	sources map[string]fetchOutcome
}

type fetchOutcome struct {
	pinned domain.FlakeRef
	res    ports.FetchResult
}

func (r *Resolver) newRun(registry *domain.Registry, impureTopRef bool) *run {
	return &run{
		r:            r,
		registry:     registry,
		impureTopRef: impureTopRef,
		flakes:       make(map[string]*domain.Flake),
		sources:      make(map[string]fetchOutcome),
	}
}

// ResolveFlake recursively resolves ref and its transitive requirements into
// a Dependencies graph. Only the top-level reference may be mutable, and
// only when impureTopRef is set; everything below it must resolve to an
// immutable reference.
func (r *Resolver) ResolveFlake(ctx context.Context, ref domain.FlakeRef, registry *domain.Registry, impureTopRef bool) (*domain.Dependencies, error) {
	rn := r.newRun(registry, impureTopRef)
	return rn.resolve(ctx, ref, true, nil)
}

// GetFlake materializes a single flake without walking its requirements.
func (r *Resolver) GetFlake(ctx context.Context, ref domain.FlakeRef, registry *domain.Registry, impureAllowed bool) (*domain.Flake, error) {
	rn := r.newRun(registry, impureAllowed)
	return rn.getFlake(ctx, ref, impureAllowed)
}

// resolve builds the Dependencies node for ref. ancestors carries the
// resolved identities on the active path, so the cycle check is
// path-relative and unrelated siblings never collide.
func (rn *run) resolve(ctx context.Context, ref domain.FlakeRef, isTop bool, ancestors []string) (*domain.Dependencies, error) {
	impure := isTop && rn.impureTopRef

	flake, err := rn.getFlake(ctx, ref, impure)
	if err != nil {
		return nil, err
	}
	if impure && !flake.Ref.IsImmutable() {
		rn.r.logger.Warn("using mutable flake reference " + flake.Ref.String())
	}

	key := flake.Ref.Key()
	if slices.Contains(ancestors, key) {
		return nil, cycleError(ancestors, key)
	}
	ancestors = append(slices.Clone(ancestors), key)

	node := &domain.Dependencies{Flake: *flake}

	// Resolve requirement aliases up front: child identity must be stable
	// before fanning out, and the lock diff compares direct references.
	reqs := make([]domain.FlakeRef, len(flake.Requires))
	for i, req := range flake.Requires {
		resolved, err := rn.registry.Resolve(req)
		if err != nil {
			return nil, err
		}
		reqs[i] = resolved
	}
	nonFlakeReqs := make(map[string]domain.FlakeRef, len(flake.NonFlakeRequires))
	for alias, req := range flake.NonFlakeRequires {
		resolved, err := rn.registry.Resolve(req)
		if err != nil {
			return nil, err
		}
		nonFlakeReqs[alias] = resolved
	}
	node.Flake.Requires = reqs
	node.Flake.NonFlakeRequires = nonFlakeReqs

	// Children land at their declaration index, so assembly order is
	// deterministic regardless of fetch completion order.
	node.FlakeDeps = make([]*domain.Dependencies, len(reqs))
	aliases := slices.Sorted(maps.Keys(nonFlakeReqs))
	node.NonFlakeDeps = make([]domain.NonFlake, len(aliases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rn.r.parallelism)
	for i, req := range reqs {
		g.Go(func() error {
			child, err := rn.resolve(gctx, req, false, ancestors)
			if err != nil {
				return err
			}
			node.FlakeDeps[i] = child
			return nil
		})
	}
	for i, alias := range aliases {
		g.Go(func() error {
			nf, err := rn.resolveNonFlake(gctx, alias, nonFlakeReqs[alias], impure)
			if err != nil {
				return err
			}
			node.NonFlakeDeps[i] = nf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return node, nil
}

// getFlake resolves ref through the registry, fetches it and evaluates its
// manifest. Results are cached per run, keyed by the resolved reference, so
// the same concrete flake is fetched and evaluated at most once.
func (rn *run) getFlake(ctx context.Context, ref domain.FlakeRef, impureAllowed bool) (*domain.Flake, error) {
	resolved, err := rn.registry.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if !impureAllowed && isHashlessArchive(resolved) {
		return nil, zerr.With(zerr.Wrap(domain.ErrPurityViolation, ""), "ref", resolved.String())
	}

	key := "flake:" + resolved.Key()
	v, err, _ := rn.flight.Do(key, func() (any, error) {
		rn.mu.Lock()
		if f, ok := rn.flakes[key]; ok {
			rn.mu.Unlock()
			return f, nil
		}
		rn.mu.Unlock()

		f, err := rn.loadFlake(ctx, resolved)
		if err != nil {
			return nil, err
		}
		rn.mu.Lock()
		rn.flakes[key] = f
		rn.mu.Unlock()
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	flake := v.(*domain.Flake)

	if !flake.Ref.IsImmutable() && !impureAllowed {
		return nil, zerr.With(zerr.Wrap(domain.ErrPurityViolation, ""), "ref", flake.Ref.String())
	}
	return flake, nil
}

func (rn *run) loadFlake(ctx context.Context, ref domain.FlakeRef) (*domain.Flake, error) {
	out, err := rn.fetchSource(ctx, ref)
	if err != nil {
		return nil, err
	}

	eval, err := rn.r.evaluator.Load(out.res.Path, out.pinned.Subdir)
	if err != nil {
		return nil, err
	}

	ownLock, err := rn.r.locks.Load(filepath.Join(out.res.Path, out.pinned.Subdir, domain.LockFileName))
	if err != nil {
		return nil, err
	}

	id := eval.ID
	if id == "" {
		id = deriveID(out.pinned)
	}

	flake := &domain.Flake{
		ID:               id,
		Ref:              out.pinned,
		Description:      eval.Description,
		Path:             out.res.Path,
		RevCount:         out.res.RevCount,
		Requires:         eval.Requires,
		NonFlakeRequires: eval.NonFlakeRequires,
		Outputs:          eval.Outputs,
	}
	if ownLock != nil && !ownLock.IsEmpty() {
		flake.LockFile = ownLock
	}
	return flake, nil
}

func (rn *run) resolveNonFlake(ctx context.Context, alias string, ref domain.FlakeRef, impureAllowed bool) (domain.NonFlake, error) {
	if !impureAllowed && isHashlessArchive(ref) {
		return domain.NonFlake{}, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrPurityViolation, ""), "ref", ref.String()),
			"alias", alias,
		)
	}
	out, err := rn.fetchSource(ctx, ref)
	if err != nil {
		return domain.NonFlake{}, err
	}
	if !out.pinned.IsImmutable() && !impureAllowed {
		return domain.NonFlake{}, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrPurityViolation, ""), "ref", out.pinned.String()),
			"alias", alias,
		)
	}
	return domain.NonFlake{Alias: alias, Ref: out.pinned, Path: out.res.Path}, nil
}

// fetchSource fetches the tree behind a direct reference with
// single-fetch-per-identity semantics: concurrent requests for the same
// resolved reference share one fetch, later requests hit the cache.
func (rn *run) fetchSource(ctx context.Context, ref domain.FlakeRef) (fetchOutcome, error) {
	key := "src:" + ref.Key()
	v, err, _ := rn.flight.Do(key, func() (any, error) {
		rn.mu.Lock()
		if out, ok := rn.sources[key]; ok {
			rn.mu.Unlock()
			_, vertex := rn.r.telemetry.Record(ctx, "fetch "+ref.String())
			vertex.Cached()
			return out, nil
		}
		rn.mu.Unlock()

		tctx, vertex := rn.r.telemetry.Record(ctx, "fetch "+ref.String())
		pinned, res, err := rn.r.fetcher.Fetch(tctx, ref)
		vertex.Complete(err)
		if err != nil {
			return fetchOutcome{}, err
		}

		out := fetchOutcome{pinned: pinned, res: res}
		rn.mu.Lock()
		rn.sources[key] = out
		rn.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return fetchOutcome{}, err
	}
	return v.(fetchOutcome), nil
}

// isHashlessArchive reports an archive reference without a declared content
// hash. The fetch fills the hash from the downloaded bytes, so such a
// reference cannot be trusted as a pin and is rejected before fetching when
// purity is required.
func isHashlessArchive(ref domain.FlakeRef) bool {
	return ref.Variant == domain.VariantGit && domain.IsArchiveURI(ref.URI) && ref.NarHash == ""
}

// cycleError reports the portion of the active path that closed the loop.
func cycleError(ancestors []string, key string) error {
	start := slices.Index(ancestors, key)
	cycle := strings.Join(append(slices.Clone(ancestors[start:]), key), " -> ")
	return zerr.With(zerr.Wrap(domain.ErrDependencyCycle, ""), "cycle", cycle)
}

// deriveID picks a logical id for a flake whose manifest does not declare
// one, from the last path element of its location.
func deriveID(ref domain.FlakeRef) domain.FlakeID {
	var base string
	switch ref.Variant {
	case domain.VariantGitHub:
		base = ref.Repo
	case domain.VariantGit:
		p := ref.URI
		if u, err := url.Parse(ref.URI); err == nil && u.Path != "" {
			p = u.Path
		}
		base = strings.TrimSuffix(domain.TrimArchiveExt(path.Base(p)), ".git")
	case domain.VariantPath:
		base = filepath.Base(ref.Path)
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "flake"
	}
	return domain.FlakeID(base)
}
