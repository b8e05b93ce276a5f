package registry

import (
	"context"
	"os"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/frost/internal/core/ports"
)

// NodeID is the unique identifier for the registry store Graft node.
const NodeID graft.ID = "adapter.registry_store"

// UserRegistryPath returns the path of the writable per-user registry file.
func UserRegistryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "frost", "registry.json")
}

func init() {
	graft.Register(graft.Node[ports.RegistryStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.RegistryStore, error) {
			return New(UserRegistryPath(), "/etc/frost/registry.json"), nil
		},
	})
}
