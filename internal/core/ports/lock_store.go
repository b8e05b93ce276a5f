package ports

import "go.trai.ch/frost/internal/core/domain"

// LockStore loads and persists lock files.
//
//go:generate mockgen -source=lock_store.go -destination=mocks/mock_lock_store.go -package=mocks
type LockStore interface {
	// Load reads the lock file at path. A missing file yields an empty
	// lock, so a first run needs no special casing.
	Load(path string) (*domain.LockFile, error)

	// Save writes the lock file to path atomically.
	Save(lock *domain.LockFile, path string) error
}
