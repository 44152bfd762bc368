package main

import (
	"context"
	"fmt"

	"foodshare/internal/db"
	"foodshare/internal/docstore"
	"foodshare/pkg/types"
)

// openStore connects the configured document store. The returned func
// releases it.
func openStore(ctx context.Context, c *types.Config) (docstore.Store, func(), error) {
	switch c.StoreBackend {
	case types.StoreBackendMemory:
		return docstore.NewMemory(), func() {}, nil

	case types.StoreBackendPostgres:
		pool, err := db.Connect(ctx, c)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return docstore.NewPostgres(pool), pool.Close, nil

	case types.StoreBackendFirestore:
		client, err := db.ConnectFirestore(ctx, c)
		if err != nil {
			return nil, nil, err
		}
		return docstore.NewFirestore(client), func() { _ = client.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
}
