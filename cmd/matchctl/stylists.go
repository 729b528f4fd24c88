package main

import (
	"github.com/spf13/cobra"
)

func newTopCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the stylist Elo leaderboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := g.client().Top(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of stylists")
	return cmd
}

func newRankCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rank <stylist-id>",
		Short: "Print one stylist's rating and rank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := g.client().Rank(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entry)
		},
	}
}
