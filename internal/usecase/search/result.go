package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrq/internal/domain/search/facet"
	"github.com/kailas-cloud/solrq/internal/domain/search/hit"
	"github.com/kailas-cloud/solrq/internal/domain/search/paginate"
	"github.com/kailas-cloud/solrq/internal/domain/search/query"
	"github.com/kailas-cloud/solrq/internal/metrics"
)

// Result is one executed search.
type Result struct {
	query    *query.Query
	hits     *hit.Set
	grouping *hit.Grouping
	facets   []*facet.Result
	numFound int
	qtime    time.Duration
	logger   *zap.Logger

	reportHits   sync.Once
	reportFacets sync.Once
}

// Query returns the executed query.
func (r *Result) Query() *query.Query { return r.query }

// NumFound returns the total number of matches; for grouped searches the
// number of matching documents.
func (r *Result) NumFound() int { return r.numFound }

// QTime returns the query time reported by Solr.
func (r *Result) QTime() time.Duration { return r.qtime }

// Hits returns the hit set, or the set of all grouped hits.
func (r *Result) Hits() *hit.Set {
	if r.grouping != nil {
		return r.grouping.Set
	}
	return r.hits
}

// Grouping returns the groups of a grouped search, or nil.
func (r *Result) Grouping() *hit.Grouping { return r.grouping }

// Facets returns the facet results in request order.
func (r *Result) Facets() []*facet.Result { return r.facets }

// Facet returns the facet result named name, or nil.
func (r *Result) Facet(name string) *facet.Result {
	for _, f := range r.facets {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// Page returns the hits as one page of the query's pagination. Instances
// are not loaded.
func (r *Result) Page() (*paginate.Collection[*hit.Hit], error) {
	return paginate.New(r.Hits().Hits(), r.query.Page(), r.query.PerPage(), r.numFound)
}

// VerifiedPage returns the hits whose instance loaded, paginated as the
// query requested. Hits whose instance is gone are dropped and counted.
func (r *Result) VerifiedPage(ctx context.Context) (*paginate.Collection[*hit.Hit], error) {
	set := r.Hits()
	verified, err := set.VerifiedHits(ctx)
	if err != nil {
		return nil, err
	}
	r.reportHits.Do(func() { r.reportUnresolvedHits(ctx, set) })
	return paginate.New(verified, r.query.Page(), r.query.PerPage(), r.numFound)
}

// Results returns the loaded instances paginated as the query requested.
func (r *Result) Results(ctx context.Context) (*paginate.Collection[any], error) {
	page, err := r.VerifiedPage(ctx)
	if err != nil {
		return nil, err
	}
	return paginate.Map(page, (*hit.Hit).Instance), nil
}

// PopulateFacets loads the referenced instances of every reference facet.
func (r *Result) PopulateFacets(ctx context.Context) error {
	for _, f := range r.facets {
		if !f.HasInstances() {
			continue
		}
		if err := f.Load(ctx); err != nil {
			return err
		}
	}
	r.reportFacets.Do(func() { r.reportUnresolvedFacets(ctx) })
	return nil
}

func (r *Result) reportUnresolvedHits(ctx context.Context, set *hit.Set) {
	unresolved, err := set.Unresolved(ctx)
	if err != nil {
		return
	}
	for class, n := range unresolved {
		metrics.HitsUnresolvedTotal.WithLabelValues(class).Add(float64(n))
		r.logger.Warn("hits without instance",
			zap.String("class", class),
			zap.Int("count", n),
		)
	}
}

func (r *Result) reportUnresolvedFacets(ctx context.Context) {
	for _, f := range r.facets {
		n, err := f.Unresolved(ctx)
		if err != nil || n == 0 {
			continue
		}
		metrics.FacetInstancesUnresolvedTotal.WithLabelValues(f.Name()).Add(float64(n))
		r.logger.Warn("facet rows without instance",
			zap.String("facet", f.Name()),
			zap.Int("count", n),
		)
	}
}
