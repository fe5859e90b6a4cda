package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrq/internal/config"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
	"github.com/kailas-cloud/solrq/internal/ingest"
	logpkg "github.com/kailas-cloud/solrq/internal/logger"
)

type indexOptions struct {
	Class       string
	BatchSize   int
	SkipInvalid bool
	NoCommit    bool
}

func newIndexCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &indexOptions{}
	cmd := &cobra.Command{
		Use:   "index <file>...",
		Short: "Bulk index rows of a declared class",
		Long: `Read rows from Parquet files (.parquet) or NDJSON files (anything else)
and index them as documents of the class given by --class. Column names
match field names; the primary key column is "id". The index is
committed once every file is read unless --no-commit is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := logpkg.NewLogger(rootOpts.Env, logpkg.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			client, err := newSolrClient(cfg.Solr, logger)
			if err != nil {
				return err
			}
			return runIndex(cmd.Context(), cmd.OutOrStdout(), cfg, client, logger, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Class, "class", "", "declared class of the rows (required)")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 500, "documents per update request")
	cmd.Flags().BoolVar(&opts.SkipInvalid, "skip-invalid", false, "skip rows that fail conversion instead of stopping")
	cmd.Flags().BoolVar(&opts.NoCommit, "no-commit", false, "leave the commit to Solr's autoCommit")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func runIndex(
	ctx context.Context, out io.Writer, cfg config.Config, w ingest.Writer,
	logger *zap.Logger, files []string, opts *indexOptions,
) error {
	if ctx == nil {
		ctx = context.Background()
	}
	reg, err := cfg.Registry(func(string) setup.DataAccessor { return nil })
	if err != nil {
		return err
	}
	st, err := reg.Setup(opts.Class)
	if err != nil {
		return err
	}

	ixOpts := []ingest.Option{ingest.WithBatchSize(opts.BatchSize), ingest.WithLogger(logger)}
	if opts.SkipInvalid {
		ixOpts = append(ixOpts, ingest.SkipInvalid())
	}
	ix := ingest.NewIndexer(w, st, ixOpts...)

	start := time.Now()
	for _, path := range files {
		logger.Info("Indexing file", zap.String("path", path), zap.String("class", opts.Class))
		if err := ingest.ReadFile(path, func(row ingest.Row) error { return ix.Add(ctx, row) }); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := ix.Close(ctx, !opts.NoCommit); err != nil {
		return err
	}

	stats := ix.Stats()
	logger.Info("Indexing finished",
		zap.Int("read", stats.Read),
		zap.Int("indexed", stats.Indexed),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	_, err = fmt.Fprintf(out, "indexed %d of %d rows (%d skipped)\n", stats.Indexed, stats.Read, stats.Skipped)
	return err
}
