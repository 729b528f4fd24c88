package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/stylematch/internal/loadgen"
)

func newLoadCmd(g *globalFlags) *cobra.Command {
	var cfg loadgen.Config
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Submit synthetic match outcomes and verify the ratings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.BaseURL = g.url
			cfg.Timeout = g.timeout
			report, err := loadgen.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "stylists:      %d\n", report.Stylists)
			fmt.Fprintf(out, "submitted:     %d\n", report.Submitted)
			fmt.Fprintf(out, "accepted:      %d\n", report.Accepted)
			fmt.Fprintf(out, "duplicates:    %d\n", report.Duplicates)
			fmt.Fprintf(out, "backpressured: %d\n", report.Backpressured)
			fmt.Fprintf(out, "failed:        %d\n", report.Failed)
			fmt.Fprintf(out, "applied:       %d\n", report.Applied)
			fmt.Fprintf(out, "duration:      %s\n", report.Duration)
			return printJSON(out, report.Leaderboard)
		},
	}
	f := cmd.Flags()
	f.IntVar(&cfg.Stylists, "stylists", loadgen.DefaultStylists, "stylists to publish")
	f.IntVar(&cfg.Outcomes, "outcomes", loadgen.DefaultOutcomes, "distinct outcomes to submit")
	f.Float64Var(&cfg.DuplicateRatio, "duplicates", 0.1, "share of outcomes resubmitted with the same event id")
	f.IntVar(&cfg.TopN, "top", loadgen.DefaultTopN, "leaderboard size to verify")
	f.IntVar(&cfg.Workers, "workers", 0, "concurrent submitters (default CPU cores * 2)")
	f.DurationVar(&cfg.SettleTimeout, "settle-timeout", loadgen.DefaultSettleTimeout, "how long to wait for queued outcomes")
	f.Uint64Var(&cfg.Seed, "seed", 0, "generator seed (default from clock)")
	f.StringVar(&cfg.StyleName, "style", "loadgen", "style published for generated stylists")
	return cmd
}
