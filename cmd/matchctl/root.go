package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/stylematch/internal/loadgen"
	"github.com/okian/stylematch/pkg/logger"
)

const app = "matchctl"

type globalFlags struct {
	url      string
	timeout  time.Duration
	debug    bool
	jsonLogs bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:          app,
		Short:        app + " is a cli for the stylist matching service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			format := logger.FormatText
			if g.jsonLogs {
				format = logger.FormatJSON
			}
			if err := logger.InitWith(cmd.ErrOrStderr(), format); err != nil {
				return err
			}
			if g.debug {
				return logger.SetLevelString("debug")
			}
			return nil
		},
	}

	defaultURL := os.Getenv("MATCH_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:9080"
	}
	root.PersistentFlags().StringVar(&g.url, "url", defaultURL, "base URL of the service (env MATCH_URL)")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", loadgen.DefaultTimeout, "per-request timeout")
	root.PersistentFlags().BoolVarP(&g.debug, "debug", "d", false, "verbose/debug output")
	root.PersistentFlags().BoolVarP(&g.jsonLogs, "json", "j", false, "json format for logging")

	root.AddCommand(
		newSeedCmd(g),
		newRecommendCmd(g),
		newStableCmd(g),
		newTopCmd(g),
		newRankCmd(g),
		newLoadCmd(g),
	)
	return root
}

func (g *globalFlags) client() *loadgen.Client {
	return loadgen.NewClient(g.url, g.timeout)
}

// printJSON writes v indented to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("print: %w", err)
	}
	return nil
}
