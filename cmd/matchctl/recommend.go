package main

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newRecommendCmd(g *globalFlags) *cobra.Command {
	var (
		style            string
		lat, lon         float64
		page, size       int
		minCost, maxCost float64
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Query ranked offerings for a style near a location",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			q.Set("styleName", style)
			q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
			q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
			q.Set("page", strconv.Itoa(page))
			if cmd.Flags().Changed("size") {
				q.Set("size", strconv.Itoa(size))
			}
			if cmd.Flags().Changed("min-cost") {
				q.Set("minCost", strconv.FormatFloat(minCost, 'f', -1, 64))
			}
			if cmd.Flags().Changed("max-cost") {
				q.Set("maxCost", strconv.FormatFloat(maxCost, 'f', -1, 64))
			}
			doc, err := g.client().Recommend(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().StringVarP(&style, "style", "s", "", "style name")
	cmd.Flags().Float64Var(&lat, "lat", 0, "customer latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "customer longitude")
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&size, "size", 0, "page size (server default when unset)")
	cmd.Flags().Float64Var(&minCost, "min-cost", 0, "minimum total cost")
	cmd.Flags().Float64Var(&maxCost, "max-cost", 0, "maximum total cost")
	_ = cmd.MarkFlagRequired("style")
	return cmd
}
