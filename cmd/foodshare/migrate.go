package main

import (
	"context"
	"fmt"

	"foodshare/internal/db"
	"foodshare/internal/docstore"
	"foodshare/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Create the postgres documents table and indexes",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cfg.StoreBackend != types.StoreBackendPostgres {
			logrus.WithField("backend", cfg.StoreBackend).Info("nothing to migrate")
			return nil
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if err := docstore.NewPostgres(pool).EnsureSchema(ctx, cfg.DatabaseSchema); err != nil {
			return err
		}

		logrus.WithField("schema", cfg.DatabaseSchema).Info("schema is up to date")
		return nil
	},
}
