package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newStableCmd(g *globalFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "stable",
		Short: "Run stable matching for a JSON request document",
		Long: `Posts a {"customers": [...], "stylists": [...]} document to POST /stable
and prints the matched pairs. Use --file - to read from stdin.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open request: %w", err)
				}
				defer f.Close()
				r = f
			}
			raw, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read request: %w", err)
			}
			if !json.Valid(raw) {
				return fmt.Errorf("request in %s is not valid JSON", file)
			}
			pairs, err := g.client().Stable(cmd.Context(), raw)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pairs)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "request file")
	return cmd
}
