package fetch

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/frost/internal/core/ports"
)

// NodeID is the unique identifier for the fetch gateway Graft node.
const NodeID graft.ID = "adapter.fetcher"

func init() {
	graft.Register(graft.Node[ports.Fetcher]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Fetcher, error) {
			cacheDir, err := os.UserCacheDir()
			if err != nil {
				cacheDir = os.TempDir()
			}
			return New(filepath.Join(cacheDir, "frost", "sources"), http.DefaultClient)
		},
	})
}
