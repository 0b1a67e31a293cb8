package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemap-explorer",
		Short: "Summarize a website's content structure from its sitemaps",
		Long: `sitemap-explorer fetches a site's /sitemap.xml, follows a sitemap index
to its child sitemaps, classifies each child (products, collections, blogs,
pages, other) and reports URL counts per category.

Use "analyze" for one-off or batch runs and "serve" to expose the same
analysis as a JSON HTTP API.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Config file (default ./.sitemap-explorer.yaml, then $XDG_CONFIG_HOME/sitemap-explorer/config.yaml)")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
