package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lyzr/haystack/common/db"
	"github.com/lyzr/haystack/common/store"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the keyspace and tables on every store partition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := application.cfg.Store
			if len(cfg.Partitions) == 0 {
				return fmt.Errorf("no store partitions configured (STORE_IPS)")
			}

			g, ctx := errgroup.WithContext(ctx)
			for machineID, address := range cfg.Partitions {
				g.Go(func() error {
					d, err := db.New(ctx, cfg, address, application.log)
					if err != nil {
						return fmt.Errorf("machine %d: %w", machineID, err)
					}
					defer d.Close()

					if err := store.EnsureSchema(ctx, d, cfg.Keyspace); err != nil {
						return fmt.Errorf("machine %d: %w", machineID, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "machine %d (%s): schema ready\n", machineID, address)
					return nil
				})
			}
			return g.Wait()
		},
	}
}
