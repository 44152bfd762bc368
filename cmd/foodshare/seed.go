package main

import (
	"context"
	"fmt"

	"foodshare/internal/seed"
	"foodshare/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the document store with demo donations and ngo requests",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "donations",
			Usage: "Number of demo donations to create",
			Value: 12,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		docs, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		logrus.WithField("backend", cfg.StoreBackend).Info("Connected to document store")

		logrus.Info("Seeding ngo requests...")
		if err := seed.SeedNGORequests(ctx, store.NewNGORequestRepository(docs)); err != nil {
			return fmt.Errorf("failed to seed ngo requests: %w", err)
		}

		logrus.Info("Seeding donations...")
		if err := seed.SeedDonations(ctx, store.NewDonationRepository(docs), c.Int("donations")); err != nil {
			return fmt.Errorf("failed to seed donations: %w", err)
		}

		logrus.Info("Seed complete")
		return nil
	},
}
