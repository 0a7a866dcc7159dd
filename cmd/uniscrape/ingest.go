package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/uniscrape/internal/source"
)

func newIngestCmd(flags *rootFlags) *cobra.Command {
	var ledgerPath string
	cmd := &cobra.Command{
		Use:   "ingest <items.jsonl>",
		Short: "Process text extracted elsewhere, such as OCR output",
		Long: `Ingest reads one JSON object per line with the fields provenance, title, text
and is_pdf, and runs each item through normalization and metadata extraction.

Examples:
  uniscrape ingest ocr/skany.jsonl
  uniscrape ingest ocr/skany.jsonl --ledger visited/visited_ocr.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			items, err := source.LoadJSONL(args[0])
			if err != nil {
				return err
			}
			if ledgerPath == "" {
				ledgerPath = e.cfg.Ledger.URLs
			}
			static := source.NewStatic(items)
			_, err = e.run(ctx, static.Provenances(), static, ledgerPath, "url", false)
			return err
		},
	}
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "visited ledger file (default: ledger.urls from config)")
	return cmd
}
