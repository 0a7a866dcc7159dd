package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cognicore/uniscrape/internal/logging"
	"github.com/cognicore/uniscrape/pkg/uniscrape"
	"github.com/cognicore/uniscrape/pkg/uniscrape/config"
	"github.com/cognicore/uniscrape/pkg/uniscrape/ledger"
	"github.com/cognicore/uniscrape/pkg/uniscrape/store"
)

type rootFlags struct {
	configPath string
	logLevel   string
	quiet      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "uniscrape",
		Short: "uniscrape: normalize institutional documents and extract their metadata",
		Long: `uniscrape turns web pages and PDFs published by Polish schools and universities
into records with cleaned text, title, owning institution, document type and
readability metrics. Processed sources are recorded in visited ledgers so that
later runs skip them.

Usage:
  uniscrape scrape [--input urls.csv]
  uniscrape pdfs [--dir to_scrape/pdfs]
  uniscrape ingest items.jsonl`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "YAML config file (default: built-in defaults)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "tool log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "disable console output")

	cmd.AddCommand(newScrapeCmd(flags), newPDFsCmd(flags), newIngestCmd(flags))
	return cmd
}

// env is everything a run needs, opened from the config.
type env struct {
	cfg   config.Config
	logs  *logging.Loggers
	comp  *config.Components
	store store.Store
}

func openEnv(ctx context.Context, flags *rootFlags, stdout, stderr io.Writer) (*env, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Logs.Level = flags.logLevel
	}
	if flags.quiet {
		cfg.Logs.Console = false
	}

	logs, err := logging.Setup(logging.Config{
		Dir:     cfg.Logs.Dir,
		File:    cfg.Logs.File,
		Level:   cfg.Logs.Level,
		Console: cfg.Logs.Console,
	}, stderr)
	if err != nil {
		return nil, err
	}

	loader := &config.Loader{Config: cfg, Logger: logs.Tool}
	comp, err := loader.Load()
	if err != nil {
		logs.Close()
		return nil, err
	}
	st, err := loader.OpenStore(ctx, stdout)
	if err != nil {
		logs.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &env{cfg: cfg, logs: logs, comp: comp, store: st}, nil
}

func (e *env) close() error {
	return errors.Join(e.store.Close(), e.logs.Close())
}

// run processes provenances against the ledger at ledgerPath.
func (e *env) run(ctx context.Context, provenances []string, f uniscrape.Fetcher, ledgerPath, column string, pace bool) (uniscrape.Summary, error) {
	led, err := ledger.Open(ledgerPath, column)
	if err != nil {
		return uniscrape.Summary{}, err
	}
	defer led.Close()

	opts := uniscrape.Options{
		Store:         e.store,
		Pipeline:      e.comp.Pipeline,
		Ledger:        led,
		ChunkSize:     e.cfg.LLM.ChunkSize,
		Logger:        e.logs.Tool,
		Console:       e.logs.Console,
		MinTextLength: e.cfg.MinTextLength,
		Language:      e.cfg.Language,
	}
	if pace {
		opts.Pace = e.cfg.SleepTime
	}
	if e.cfg.LLM.CleanupPDF && e.comp.LLM != nil {
		opts.Cleaner = e.comp.LLM
	}

	e.logs.Tool.Info("run started", "items", len(provenances), "ledger", ledgerPath, "visited", led.Len())
	return uniscrape.New(opts).Run(ctx, provenances, f)
}
