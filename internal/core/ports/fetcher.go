// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/frost/internal/core/domain"
)

// FetchResult describes the source tree materialized for a flake reference.
type FetchResult struct {
	// Path is the local directory holding the fetched tree.
	Path string

	// Rev is the concrete revision that was fetched, if any.
	Rev string

	// RevCount is the total number of revisions leading up to Rev. Only
	// mechanisms that see full history (generic Git) report it.
	RevCount *uint64

	// NarHash is the SRI content hash of the fetched archive, when one was
	// computed.
	NarHash string
}

// Fetcher materializes the source tree behind a direct flake reference.
//
//go:generate mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	// Fetch retrieves the tree for ref and returns the pinned form of the
	// reference (rev or content hash filled in) together with fetch
	// metadata. Fetch failures carry a "kind" of not-found, network or
	// hash-mismatch.
	Fetch(ctx context.Context, ref domain.FlakeRef) (domain.FlakeRef, FetchResult, error)
}
