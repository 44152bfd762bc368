package main

import (
	"context"
	"fmt"

	"foodshare/internal/store"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var showCommand = &cli.Command{
	Name:      "show",
	Usage:     "Pretty-print a donation as stored",
	ArgsUsage: "<donation-id>",
	Action: func(c *cli.Context) error {
		id := c.Args().First()
		if id == "" {
			return fmt.Errorf("donation id is required")
		}

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

		donation, err := store.NewDonationRepository(docs).Donation(ctx, id)
		if err != nil {
			return err
		}

		pp.Println(donation)
		return nil
	},
}
