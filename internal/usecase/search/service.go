package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrq/internal/domain/search/facet"
	"github.com/kailas-cloud/solrq/internal/domain/search/hit"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/solrq/internal/logger"
	"github.com/kailas-cloud/solrq/internal/metrics"
)

// Service assembles queries over registered classes and executes them
// against Solr.
type Service struct {
	solr           Transport
	setups         Setups
	defaultPerPage int
}

// New creates a search service.
func New(solr Transport, setups Setups) *Service {
	return &Service{solr: solr, setups: setups, defaultPerPage: query.DefaultPerPage}
}

// WithDefaultPerPage sets the page size of queries built by NewQuery.
func (s *Service) WithDefaultPerPage(n int) *Service {
	if n > 0 {
		s.defaultPerPage = n
	}
	return s
}

// NewQuery starts a query over the given classes.
func (s *Service) NewQuery(classNames ...string) (*query.Query, error) {
	if len(classNames) == 0 {
		return nil, fmt.Errorf("%w: at least one class is required", ErrInvalidRequest)
	}
	c, err := s.setups.Composite(classNames...)
	if err != nil {
		return nil, fmt.Errorf("compose setups: %w", err)
	}
	return query.New(c, query.WithDefaultPerPage(s.defaultPerPage)), nil
}

// Params returns the wire parameters of q without executing it.
func (s *Service) Params(q *query.Query) (params.Params, error) {
	return q.Params()
}

// Execute sends q to Solr and maps the response. Hit and facet instances
// are loaded lazily by the Result.
func (s *Service) Execute(ctx context.Context, q *query.Query) (*Result, error) {
	log := logpkg.FromContext(ctx)
	handler := string(q.Handler())

	p, err := q.Params()
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(handler, "invalid").Inc()
		return nil, err
	}

	resp, err := s.solr.Query(ctx, handler, p)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(handler, "error").Inc()
		return nil, fmt.Errorf("execute %s: %w", handler, err)
	}
	metrics.SearchesTotal.WithLabelValues(handler, "ok").Inc()
	qtime := time.Duration(resp.Header.QTime) * time.Millisecond
	metrics.SolrQTime.WithLabelValues(handler).Observe(qtime.Seconds())

	res := &Result{query: q, numFound: resp.Response.NumFound, qtime: qtime, logger: log}

	if g := q.Group(); g != nil {
		res.grouping, err = hit.Groups(resp, g.Field(), s.setups)
		if err != nil {
			return nil, fmt.Errorf("map groups: %w", err)
		}
		if res.grouping != nil {
			res.numFound = res.grouping.Matches
		}
	}
	if res.grouping == nil {
		res.hits, err = hit.FromResponse(resp, s.setups)
		if err != nil {
			return nil, fmt.Errorf("map hits: %w", err)
		}
		if resp.Match != nil && resp.Response.NumFound == 0 && len(resp.Response.Docs) == 0 {
			res.numFound = resp.Match.NumFound
		}
	}

	for _, f := range q.Facets() {
		fr, err := facet.Extract(f, resp, s.facetLoaders(log, f))
		if err != nil {
			return nil, fmt.Errorf("facet %s: %w", f.Name(), err)
		}
		res.facets = append(res.facets, fr)
	}

	log.Debug("search executed",
		zap.String("handler", handler),
		zap.Strings("classes", q.Composite().Classes()),
		zap.Int("start", q.Start()),
		zap.Int("rows", q.PerPage()),
		zap.Int("num_found", res.numFound),
		zap.Duration("qtime", qtime),
	)
	return res, nil
}

// facetLoaders resolves the loader of each class referenced by f's rows.
func (s *Service) facetLoaders(log *zap.Logger, f facet.Facet) facet.Loaders {
	return func(class string) facet.Loader {
		st, err := s.setups.Setup(class)
		if err != nil {
			log.Warn("facet reference class not registered",
				zap.String("facet", f.Name()),
				zap.String("class", class),
			)
			return nil
		}
		return st
	}
}
