package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/uniscrape/internal/source"
)

func newScrapeCmd(flags *rootFlags) *cobra.Command {
	var (
		input    string
		maxLinks int
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch and process the URLs of a crawler output file",
		Long: `Scrape reads a URL list (a "url" column, tab or comma separated), fetches every
page not yet in the visited ledger, extracts its text (PDF links go through PDF
extraction) and publishes a record for each page with enough text.

Examples:
  uniscrape scrape
  uniscrape scrape --input to_scrape/urls_to_scrape.csv --max-links 50
  uniscrape scrape -c uniscrape.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			if input == "" {
				input = e.cfg.Input.URLs
			}
			urls, err := source.LoadURLs(input)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-links") {
				maxLinks = e.cfg.MaxLinks
			}
			if maxLinks > 0 && len(urls) > maxLinks {
				urls = urls[:maxLinks]
			}

			_, err = e.run(ctx, urls, source.Web{Fetcher: e.comp.Fetcher}, e.cfg.Ledger.URLs, "url", true)
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "URL list file (default: input.urls from config)")
	cmd.Flags().IntVar(&maxLinks, "max-links", 0, "process at most this many URLs (default: max_links from config)")
	return cmd
}
