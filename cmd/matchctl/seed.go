package main

import (
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/stylematch/internal/app"
	"github.com/okian/stylematch/pkg/logger"
)

func newSeedCmd(g *globalFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Publish every offering of a YAML catalog",
		Long: `Reads a catalog in the server's seed format and publishes each offering
through POST /offerings. Ratings in the file are ignored; the server owns them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			seed, err := service.ReadSeedFile(file)
			if err != nil {
				return err
			}
			offerings, err := seed.Resolve()
			if err != nil {
				return err
			}
			client := g.client()
			for _, o := range offerings {
				if err := client.PublishOffering(ctx, o); err != nil {
					return fmt.Errorf("offering %s: %w", o.ID, err)
				}
				logger.Get().Debug(ctx, "offering published", logger.String("id", o.ID), logger.String("stylist", o.Stylist.ID))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d offerings\n", len(offerings))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
