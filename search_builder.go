package solrq

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrq/internal/domain/search/facet"
	"github.com/kailas-cloud/solrq/internal/domain/search/query"
	"github.com/kailas-cloud/solrq/internal/domain/search/scope"
	logpkg "github.com/kailas-cloud/solrq/internal/logger"
)

// Scope groups restrictions inside AnyOf and NoneOf.
type Scope = query.Scope

// Direction is a sort direction.
type Direction = query.Direction

// Sort directions.
const (
	Asc  = query.Asc
	Desc = query.Desc
)

// KeywordsOption tunes a keyword search.
type KeywordsOption = query.FulltextOption

// Boost searches the text field name with the given boost.
func Boost(name string, boost float64) KeywordsOption { return query.Field(name, boost) }

// MinimumMatch sets how many keywords must match, e.g. "2" or "75%".
func MinimumMatch(mm string) KeywordsOption { return query.MinimumMatch(mm) }

// Highlight requests highlighted snippets of the named text fields, or of
// all searched fields when none are named.
func Highlight(fields ...string) KeywordsOption {
	if len(fields) == 0 {
		return query.WithHighlight()
	}
	return query.WithHighlight(query.HighlightFields(fields...))
}

// FacetOption tunes a field facet.
type FacetOption = facet.Option

// FacetLimit caps the rows of a facet.
func FacetLimit(n int) FacetOption { return facet.Limit(n) }

// FacetMinimumCount drops rows counting fewer hits.
func FacetMinimumCount(n int) FacetOption { return facet.MinimumCount(n) }

// SearchBuilder is a fluent builder for typed searches. The first invalid
// call is remembered and returned by Params and Do.
type SearchBuilder[T any] struct {
	idx *TypedIndex[T]
	q   *query.Query
	err error
}

func newSearchBuilder[T any](idx *TypedIndex[T]) *SearchBuilder[T] {
	q, err := idx.client.search.NewQuery(idx.class)
	return &SearchBuilder[T]{idx: idx, q: q, err: err}
}

func (b *SearchBuilder[T]) apply(fn func(q *query.Query)) *SearchBuilder[T] {
	if b.err == nil {
		fn(b.q)
	}
	return b
}

// Keywords runs a fulltext search over the text fields.
func (b *SearchBuilder[T]) Keywords(keywords string, opts ...KeywordsOption) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) { q.Keywords(keywords, opts...) })
}

// With restricts name to value: equality for scalars, any-of for slices
// and arrays. Use Between for ranges.
func (b *SearchBuilder[T]) With(name string, value any) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) { q.With(name, value) })
}

// Between restricts name to the inclusive range lo..hi. A nil bound leaves
// that side open.
func (b *SearchBuilder[T]) Between(name string, lo, hi any) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) {
		q.Where(name, string(scope.Between), scope.Range{From: lo, To: hi})
	})
}

// Without excludes hits where name matches value.
func (b *SearchBuilder[T]) Without(name string, value any) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) { q.Without(name, value) })
}

// Where restricts name with a named restriction kind such as
// "greater_than" or "starting_with".
func (b *SearchBuilder[T]) Where(name, kind string, value any) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) { q.Where(name, kind, value) })
}

// AnyOf matches hits satisfying at least one restriction added by fn.
func (b *SearchBuilder[T]) AnyOf(fn func(*Scope)) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) { q.AnyOf(fn) })
}

// NoneOf drops hits satisfying all restrictions added by fn.
func (b *SearchBuilder[T]) NoneOf(fn func(*Scope)) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) { q.NoneOf(fn) })
}

// Exclude drops the items with the given primary keys.
func (b *SearchBuilder[T]) Exclude(ids ...string) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) {
		for _, id := range ids {
			q.Exclude(b.idx.class, id)
		}
	})
}

// Near keeps hits within km of lat/lng on the location field name.
func (b *SearchBuilder[T]) Near(name string, lat, lng, km float64) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) { q.InRadius(name, lat, lng, km) })
}

// OrderBy sorts by a field or "score". Calls add criteria in order.
func (b *SearchBuilder[T]) OrderBy(name string, dir Direction) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) { q.OrderBy(name, dir) })
}

// OrderByDistance sorts by distance from lat/lng on a location field.
func (b *SearchBuilder[T]) OrderByDistance(name string, lat, lng float64, dir Direction) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) { q.OrderByDistance(name, lat, lng, dir) })
}

// Facet counts hits per value of the field name.
func (b *SearchBuilder[T]) Facet(name string, opts ...FacetOption) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) { q.FieldFacet(name, opts...) })
}

// Page selects page (from 1) of perPage hits; perPage 0 keeps the default.
func (b *SearchBuilder[T]) Page(page, perPage int) *SearchBuilder[T] {
	return b.apply(func(q *query.Query) { q.Paginate(page, perPage) })
}

// Err returns the first invalid call, if any.
func (b *SearchBuilder[T]) Err() error {
	if b.err != nil {
		return b.err
	}
	return b.q.Err()
}

// Params returns the Solr request parameters without sending them.
func (b *SearchBuilder[T]) Params() (map[string][]string, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	p, err := b.idx.client.search.Params(b.q)
	if err != nil {
		return nil, err
	}
	return p.Values()
}

// Do runs the search.
func (b *SearchBuilder[T]) Do(ctx context.Context) (*Results[T], error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	ctx = logpkg.With(logpkg.ContextWithLogger(ctx, b.idx.client.logger), zap.String("class", b.idx.class))
	res, err := b.idx.client.search.Execute(ctx, b.q)
	if err != nil {
		return nil, err
	}
	return newResults(ctx, b.idx, res)
}
