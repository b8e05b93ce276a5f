package ports

import "go.trai.ch/frost/internal/core/domain"

// RegistryStore loads and persists flake registries.
//
//go:generate mockgen -source=registry_store.go -destination=mocks/mock_registry_store.go -package=mocks
type RegistryStore interface {
	// Load reads all configured registry files and merges them,
	// first-match-wins, into a single registry. Missing files are skipped.
	Load() (*domain.Registry, error)

	// Save writes the registry to the given destination path.
	Save(reg *domain.Registry, path string) error
}
