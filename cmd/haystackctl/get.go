package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lyzr/haystack/common/clients"
	"github.com/lyzr/haystack/common/models"
)

func newGetCmd() *cobra.Command {
	var (
		cacheURL      string
		machineID     int
		logicalVolume string
		cookie        string
		output        string
	)

	cmd := &cobra.Command{
		Use:   "get <photo_id>",
		Short: "Fetch a photo through the cache server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			c := clients.NewCacheServerClient(cacheURL, application.log)

			data, err := c.Fetch(ctx, machineID, logicalVolume, models.NewPhotoIdentity(args[0], cookie))
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(data), output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cacheURL, "cache-url", "http://localhost:8080", "cache server base URL")
	f.IntVar(&machineID, "machine", 0, "store partition (machine_id)")
	f.StringVar(&logicalVolume, "logical-volume", "1", "logical volume")
	f.StringVar(&cookie, "cookie", "", "cookie")
	f.StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	_ = cmd.MarkFlagRequired("cookie")

	return cmd
}

func newLocateCmd() *cobra.Command {
	var directoryURL string

	cmd := &cobra.Command{
		Use:   "locate <photo_id>",
		Short: "Print the URL a photo is served from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := clients.NewDirectoryClient(directoryURL, application.log)
			location, err := dir.Lookup(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}

	cmd.Flags().StringVar(&directoryURL, "directory-url", "http://localhost:8081", "directory server base URL")
	return cmd
}
