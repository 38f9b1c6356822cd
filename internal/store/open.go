package store

import (
	"fmt"

	"github.com/ofscp/server/internal/store/memstore"
	"github.com/ofscp/server/internal/store/pgstore"
	"github.com/ofscp/server/internal/store/redisstore"
)

// Open constructs the configured backend: "memory" (default), "redis", or
// "postgres".
func Open(backend, redisAddr, postgresDSN string) (DocumentStore, error) {
	switch backend {
	case "", "memory":
		return memstore.New(), nil
	case "redis":
		return redisstore.New(redisAddr), nil
	case "postgres":
		return pgstore.Open(postgresDSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
