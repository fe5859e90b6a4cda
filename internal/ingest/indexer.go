package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrq/internal/domain/setup"
	"github.com/kailas-cloud/solrq/internal/metrics"
)

const defaultBatchSize = 500

// Writer sends documents to the index.
type Writer interface {
	Add(ctx context.Context, docs []setup.Document) error
	Commit(ctx context.Context) error
}

// Stats counts the rows seen by an Indexer.
type Stats struct {
	Read    int
	Indexed int
	Skipped int
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithBatchSize sets how many documents go in one update request.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// SkipInvalid logs and skips rows that do not convert to a document
// instead of failing.
func SkipInvalid() Option {
	return func(ix *Indexer) { ix.skipInvalid = true }
}

// WithLogger sets the logger for skipped rows and flushed batches.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Indexer) { ix.logger = l }
}

// Indexer converts rows to documents of one class and writes them in
// batches. Not safe for concurrent use.
type Indexer struct {
	writer      Writer
	setup       *setup.Setup
	batchSize   int
	skipInvalid bool
	logger      *zap.Logger

	buf   []setup.Document
	stats Stats
}

// NewIndexer creates an Indexer writing documents of st to w.
func NewIndexer(w Writer, st *setup.Setup, opts ...Option) *Indexer {
	ix := &Indexer{writer: w, setup: st, batchSize: defaultBatchSize, logger: zap.NewNop()}
	for _, o := range opts {
		o(ix)
	}
	ix.buf = make([]setup.Document, 0, ix.batchSize)
	return ix
}

// Add converts row and flushes when the batch is full.
func (ix *Indexer) Add(ctx context.Context, row Row) error {
	ix.stats.Read++
	doc, err := ix.setup.Document(row)
	if err != nil {
		if !ix.skipInvalid {
			return fmt.Errorf("row %d: %w", ix.stats.Read, err)
		}
		ix.stats.Skipped++
		metrics.DocumentsIndexedTotal.WithLabelValues(ix.setup.ClassName(), "skipped").Inc()
		ix.logger.Warn("Skipping row", zap.Int("row", ix.stats.Read), zap.Error(err))
		return nil
	}
	ix.buf = append(ix.buf, doc)
	if len(ix.buf) >= ix.batchSize {
		return ix.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered documents.
func (ix *Indexer) Flush(ctx context.Context) error {
	if len(ix.buf) == 0 {
		return nil
	}
	class := ix.setup.ClassName()
	if err := ix.writer.Add(ctx, ix.buf); err != nil {
		metrics.DocumentsIndexedTotal.WithLabelValues(class, "error").Add(float64(len(ix.buf)))
		return fmt.Errorf("flush %d documents: %w", len(ix.buf), err)
	}
	metrics.DocumentsIndexedTotal.WithLabelValues(class, "ok").Add(float64(len(ix.buf)))
	ix.stats.Indexed += len(ix.buf)
	ix.logger.Debug("Flushed batch",
		zap.String("class", class),
		zap.Int("documents", len(ix.buf)),
		zap.Int("indexed", ix.stats.Indexed),
	)
	ix.buf = make([]setup.Document, 0, ix.batchSize)
	return nil
}

// Close flushes the remaining documents and, when commit is set, commits.
func (ix *Indexer) Close(ctx context.Context, commit bool) error {
	if err := ix.Flush(ctx); err != nil {
		return err
	}
	if !commit {
		return nil
	}
	if err := ix.writer.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Stats returns the counts so far.
func (ix *Indexer) Stats() Stats { return ix.stats }
