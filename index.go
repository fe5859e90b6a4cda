package solrq

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

// TypedIndex is a generic, schema-first index backed by a solrq Client.
// Schema is inferred from T's struct tags at construction time.
type TypedIndex[T any] struct {
	class  string
	client *Client
	meta   *schemaMeta
	setup  *setup.Setup
	loader Loader[T]
}

// NewIndex registers T as className on client. T must be a struct (or
// pointer to struct) with solr tags. Schema is parsed once and cached.
func NewIndex[T any](client *Client, className string, opts ...IndexOption[T]) (*TypedIndex[T], error) {
	cfg := &indexConfig[T]{}
	for _, o := range opts {
		o(cfg)
	}

	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new index %q: %w", className, err)
	}
	idx := &TypedIndex[T]{class: className, client: client, meta: meta, loader: cfg.loader}

	st, err := meta.setup(className, idx.accessor())
	if err != nil {
		return nil, fmt.Errorf("new index %q: %w", className, err)
	}
	idx.setup = st
	client.registry.Register(st)
	return idx, nil
}

// ClassName returns the indexed class name.
func (idx *TypedIndex[T]) ClassName() string { return idx.class }

// accessor picks where searches load items from: the loader, then Redis.
// nil means items are rebuilt from stored fields.
func (idx *TypedIndex[T]) accessor() setup.DataAccessor {
	switch {
	case idx.loader != nil:
		return loaderAccessor[T]{load: idx.loader}
	case idx.client.redis != nil:
		return recordAccessor{inner: idx.client.redis.Accessor(idx.class), meta: idx.meta}
	default:
		return nil
	}
}

// Index writes items to Solr, and to Redis when configured. Changes are
// visible to searches after Commit.
func (idx *TypedIndex[T]) Index(ctx context.Context, items ...T) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]setup.Document, 0, len(items))
	records := make([]*setup.Record, 0, len(items))
	for i, item := range items {
		doc, err := idx.setup.Document(item)
		if err != nil {
			return fmt.Errorf("index item %d: %w", i, err)
		}
		docs = append(docs, doc)
		if idx.client.redis != nil {
			rec, err := idx.meta.toRecord(idx.class, item)
			if err != nil {
				return fmt.Errorf("index item %d: %w", i, err)
			}
			records = append(records, rec)
		}
	}

	if len(records) > 0 {
		if err := idx.client.redis.Save(ctx, records...); err != nil {
			return fmt.Errorf("index: %w", err)
		}
	}
	if err := idx.client.solr.Add(ctx, docs); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return nil
}

// Remove deletes items by primary key.
func (idx *TypedIndex[T]) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	indexIDs := make([]string, len(ids))
	for i, id := range ids {
		indexIDs[i] = setup.IndexID(idx.class, id)
	}
	if err := idx.client.solr.Delete(ctx, indexIDs); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	if idx.client.redis != nil {
		if err := idx.client.redis.Delete(ctx, idx.class, ids...); err != nil {
			return fmt.Errorf("remove: %w", err)
		}
	}
	return nil
}

// Get loads items by primary key, in the order given. Missing ids are
// skipped. It needs WithLoader or WithRedis.
func (idx *TypedIndex[T]) Get(ctx context.Context, ids ...string) ([]T, error) {
	loaded, err := idx.setup.LoadByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if item, ok := loaded[id].(T); ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// Search returns a fluent search builder over this index.
func (idx *TypedIndex[T]) Search() *SearchBuilder[T] {
	return newSearchBuilder(idx)
}

// loaderAccessor adapts a typed Loader.
type loaderAccessor[T any] struct {
	load Loader[T]
}

func (a loaderAccessor[T]) LoadAll(ctx context.Context, ids []string) ([]any, error) {
	items, err := a.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out, nil
}

// recordAccessor rebuilds items from the Redis hashes written by Index.
type recordAccessor struct {
	inner setup.DataAccessor
	meta  *schemaMeta
}

func (a recordAccessor) LoadAll(ctx context.Context, ids []string) ([]any, error) {
	records, err := a.inner.LoadAll(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(records))
	for _, r := range records {
		rec, ok := r.(*setup.Record)
		if !ok {
			continue
		}
		item, err := a.meta.fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", rec.Class, rec.ID, err)
		}
		out = append(out, item)
	}
	return out, nil
}
