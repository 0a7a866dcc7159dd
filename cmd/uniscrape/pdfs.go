package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/uniscrape/internal/source"
)

func newPDFsCmd(flags *rootFlags) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "pdfs",
		Short: "Process the PDF files of a local directory",
		Long: `PDFs extracts the text of every PDF in a directory and publishes a record for
each file not yet in the PDF ledger. The file name is the record source.

Examples:
  uniscrape pdfs
  uniscrape pdfs --dir downloads/statuty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			if dir == "" {
				dir = e.cfg.Input.PDFs
			}
			names, err := source.ListPDFs(dir)
			if err != nil {
				return err
			}
			_, err = e.run(ctx, names, source.Files{Dir: dir}, e.cfg.Ledger.PDFs, "filename", false)
			return err
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "PDF directory (default: input.pdfs from config)")
	return cmd
}
