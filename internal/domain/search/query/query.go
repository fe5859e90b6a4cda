// Package query assembles a Solr request from scope restrictions, fulltext,
// facets, sorting, pagination, geo filtering, grouping and more-like-this.
//
// Build errors are sticky: the first failing call is recorded, later calls
// are no-ops, and Params reports the error.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/facet"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/scope"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

// DefaultPerPage is the page size used when none is configured.
const DefaultPerPage = 30

// Handler is the Solr request handler a query targets.
type Handler string

// Request handlers.
const (
	HandlerSelect       Handler = "select"
	HandlerMoreLikeThis Handler = "mlt"
)

// Option configures a new Query.
type Option func(*Query)

// WithDefaultPerPage sets the page size used until Paginate is called.
func WithDefaultPerPage(n int) Option {
	return func(q *Query) {
		if n > 0 {
			q.defaultPerPage = n
			q.perPage = n
		}
	}
}

type taggedFilter struct {
	tag  string
	conn *scope.Connective
}

// Query is one search over the classes of a composite setup. It is built
// incrementally and is not safe for concurrent mutation.
type Query struct {
	composite *setup.CompositeSetup
	root      *scope.Connective
	scope     *Scope
	tagged    []taggedFilter

	fulltext *Fulltext
	facets   []facet.Facet
	sorts    []sortCriterion

	defaultPerPage int
	page           int
	perPage        int

	geo   *geoFilter
	group *Group
	mlt   *MoreLikeThis

	err error
}

// New starts a query over the classes of c.
func New(c *setup.CompositeSetup, opts ...Option) *Query {
	q := &Query{
		composite:      c,
		root:           scope.NewConjunction(false),
		defaultPerPage: DefaultPerPage,
		page:           1,
		perPage:        DefaultPerPage,
	}
	q.scope = newScope(q.root, c, &q.err)
	for _, o := range opts {
		o(q)
	}
	return q
}

// Err returns the first build error.
func (q *Query) Err() error { return q.err }

func (q *Query) fail(err error) *Query {
	if q.err == nil {
		q.err = err
	}
	return q
}

// Composite returns the searched classes' setup.
func (q *Query) Composite() *setup.CompositeSetup { return q.composite }

// Scope returns the top-level conjunction.
func (q *Query) Scope() *scope.Connective { return q.root }

// With restricts name to value; see Scope.With.
func (q *Query) With(name string, value any) *Query {
	q.scope.With(name, value)
	return q
}

// Without excludes documents where name matches value.
func (q *Query) Without(name string, value any) *Query {
	q.scope.Without(name, value)
	return q
}

// Where restricts name with the restriction kind named by tag.
func (q *Query) Where(name, tag string, value any) *Query {
	q.scope.Where(name, tag, value)
	return q
}

// WhereNot is the negation of Where.
func (q *Query) WhereNot(name, tag string, value any) *Query {
	q.scope.WhereNot(name, tag, value)
	return q
}

// Exclude drops one document by class and primary key.
func (q *Query) Exclude(className, pk string) *Query {
	q.scope.Exclude(className, pk)
	return q
}

// ExcludeInstance drops the document of obj.
func (q *Query) ExcludeInstance(className string, obj any) *Query {
	q.scope.ExcludeInstance(className, obj)
	return q
}

// AnyOf adds a disjunction.
func (q *Query) AnyOf(fn func(*Scope)) *Query {
	q.scope.AnyOf(fn)
	return q
}

// AllOf adds a conjunction.
func (q *Query) AllOf(fn func(*Scope)) *Query {
	q.scope.AllOf(fn)
	return q
}

// NoneOf adds a negated conjunction.
func (q *Query) NoneOf(fn func(*Scope)) *Query {
	q.scope.NoneOf(fn)
	return q
}

// Tag adds a filter built by fn under tag. Facets created with
// facet.Exclude(tag) ignore it when counting.
func (q *Query) Tag(tag string, fn func(*Scope)) *Query {
	if q.err != nil {
		return q
	}
	if tag == "" || strings.ContainsAny(tag, " ,}") {
		return q.fail(fmt.Errorf("%w: invalid filter tag %q", field.ErrInvalidArgument, tag))
	}
	conn := scope.NewConjunction(false)
	fn(newScope(conn, q.composite, &q.err))
	q.tagged = append(q.tagged, taggedFilter{tag: tag, conn: conn})
	return q
}

// Keywords adds an edismax fulltext query.
func (q *Query) Keywords(keywords string, opts ...FulltextOption) *Query {
	if q.err != nil {
		return q
	}
	ft, err := newFulltext(keywords, q.composite, opts)
	if err != nil {
		return q.fail(err)
	}
	q.fulltext = ft
	return q
}

// Fulltext returns the fulltext query, or nil.
func (q *Query) Fulltext() *Fulltext { return q.fulltext }

// OrderBy appends a sort on a field or on SortScore. Earlier calls take
// precedence.
func (q *Query) OrderBy(name string, dir Direction) *Query {
	if q.err != nil {
		return q
	}
	if dir != Asc && dir != Desc {
		return q.fail(fmt.Errorf("%w: unknown sort direction %q", field.ErrInvalidArgument, dir))
	}
	if name == SortScore {
		q.sorts = append(q.sorts, scoreSort(dir))
		return q
	}
	f, err := q.composite.Field(name)
	if err != nil {
		return q.fail(err)
	}
	s, err := fieldSort(f, dir)
	if err != nil {
		return q.fail(err)
	}
	q.sorts = append(q.sorts, s)
	return q
}

// OrderByRandom appends a random sort; equal seeds give equal orders.
func (q *Query) OrderByRandom(seed int64) *Query {
	if q.err != nil {
		return q
	}
	q.sorts = append(q.sorts, randomSort(seed, Asc))
	return q
}

// OrderByDistance appends a sort by distance from lat,lng on a location
// field.
func (q *Query) OrderByDistance(name string, lat, lng float64, dir Direction) *Query {
	if q.err != nil {
		return q
	}
	f, err := q.composite.Field(name)
	if err != nil {
		return q.fail(err)
	}
	if f.FieldType() != field.Location {
		return q.fail(fmt.Errorf("%w: %q is not a location field", field.ErrInvalidArgument, name))
	}
	q.sorts = append(q.sorts, geodistSort(f, lat, lng, dir))
	return q
}

// Paginate selects a page; page counts from 1. A perPage of 0 keeps the
// configured default.
func (q *Query) Paginate(page, perPage int) *Query {
	if q.err != nil {
		return q
	}
	if page < 1 {
		return q.fail(fmt.Errorf("%w: page must be at least 1, got %d", field.ErrInvalidArgument, page))
	}
	if perPage < 0 {
		return q.fail(fmt.Errorf("%w: per page must be positive, got %d", field.ErrInvalidArgument, perPage))
	}
	if perPage == 0 {
		perPage = q.defaultPerPage
	}
	q.page, q.perPage = page, perPage
	return q
}

// Page returns the requested page.
func (q *Query) Page() int { return q.page }

// PerPage returns the page size.
func (q *Query) PerPage() int { return q.perPage }

// Start returns the offset of the first row.
func (q *Query) Start() int { return (q.page - 1) * q.perPage }

// InRadius keeps documents whose location field lies within km of lat,lng.
func (q *Query) InRadius(name string, lat, lng, km float64) *Query {
	if q.err != nil {
		return q
	}
	f, err := q.composite.Field(name)
	if err != nil {
		return q.fail(err)
	}
	g, err := newGeoFilter(f, lat, lng, km)
	if err != nil {
		return q.fail(err)
	}
	q.geo = g
	return q
}

// GroupBy collapses hits by a single-valued field, keeping limit hits per
// group.
func (q *Query) GroupBy(name string, limit int) *Query {
	if q.err != nil {
		return q
	}
	f, err := q.composite.Field(name)
	if err != nil {
		return q.fail(err)
	}
	if f.Multiple() {
		return q.fail(fmt.Errorf("%w: cannot group by multi-valued field %q", field.ErrInvalidArgument, name))
	}
	if limit < 1 {
		limit = 1
	}
	q.group = &Group{field: f, limit: limit}
	return q
}

// Group returns the grouping, or nil.
func (q *Query) Group() *Group { return q.group }

// MoreLikeThis turns the query into a similarity search for the document of
// className/pk on the mlt handler.
func (q *Query) MoreLikeThis(className, pk string, opts ...MoreLikeThisOption) *Query {
	if q.err != nil {
		return q
	}
	m := &MoreLikeThis{indexID: setup.IndexID(className, pk)}
	for _, o := range opts {
		if err := o(m, q.composite); err != nil {
			return q.fail(fmt.Errorf("more like this: %w", err))
		}
	}
	if len(m.fields) == 0 {
		m.fields = q.composite.TextFields()
	}
	if len(m.fields) == 0 {
		return q.fail(fmt.Errorf("%w: more like this needs text fields", field.ErrInvalidArgument))
	}
	q.mlt = m
	return q
}

// Handler returns the request handler the query targets.
func (q *Query) Handler() Handler {
	if q.mlt != nil {
		return HandlerMoreLikeThis
	}
	return HandlerSelect
}

// AddFacet registers f. A facet with the same name replaces the earlier
// one in place.
func (q *Query) AddFacet(f facet.Facet) *Query {
	if q.err != nil {
		return q
	}
	for i, existing := range q.facets {
		if existing.Name() == f.Name() {
			q.facets[i] = f
			return q
		}
	}
	q.facets = append(q.facets, f)
	return q
}

// Facets returns the registered facets in registration order.
func (q *Query) Facets() []facet.Facet { return q.facets }

// Facet returns the facet registered under name, or nil.
func (q *Query) Facet(name string) facet.Facet {
	for _, f := range q.facets {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// FieldFacet facets on an attribute field.
func (q *Query) FieldFacet(name string, opts ...facet.Option) *Query {
	return q.NamedFieldFacet("", name, opts...)
}

// NamedFieldFacet facets on an attribute field under a custom facet name.
func (q *Query) NamedFieldFacet(facetName, fieldName string, opts ...facet.Option) *Query {
	if q.err != nil {
		return q
	}
	f, err := q.composite.Field(fieldName)
	if err != nil {
		return q.fail(err)
	}
	ff, err := facet.NewFieldFacet(facetName, f, opts...)
	if err != nil {
		return q.fail(err)
	}
	return q.AddFacet(ff)
}

// DateFacet buckets a time field into gap-wide windows.
func (q *Query) DateFacet(name string, start, end time.Time, gap time.Duration, opts ...facet.Option) *Query {
	if q.err != nil {
		return q
	}
	f, err := q.composite.Field(name)
	if err != nil {
		return q.fail(err)
	}
	df, err := facet.NewDateFacet("", f, start, end, gap, opts...)
	if err != nil {
		return q.fail(err)
	}
	return q.AddFacet(df)
}

// RangeFacet buckets a numeric field into gap-wide intervals.
func (q *Query) RangeFacet(name string, start, end, gap float64, opts ...facet.Option) *Query {
	if q.err != nil {
		return q
	}
	f, err := q.composite.Field(name)
	if err != nil {
		return q.fail(err)
	}
	rf, err := facet.NewRangeFacet("", f, start, end, gap, opts...)
	if err != nil {
		return q.fail(err)
	}
	return q.AddFacet(rf)
}

// FacetRows registers the rows of a query facet.
type FacetRows struct {
	facet *facet.QueryFacet
	q     *Query
}

// Row adds a row labelled label counting documents matching fn's
// restrictions.
func (r *FacetRows) Row(label any, fn func(*Scope)) *FacetRows {
	if r.q.err != nil {
		return r
	}
	conn := scope.NewConjunction(false)
	fn(newScope(conn, r.q.composite, &r.q.err))
	if r.q.err != nil {
		return r
	}
	if err := r.facet.AddRow(label, conn); err != nil {
		r.q.fail(err)
	}
	return r
}

// QueryFacet adds a facet whose rows are the labelled conditions registered
// by fn.
func (q *Query) QueryFacet(name string, fn func(*FacetRows), opts ...facet.Option) *Query {
	if q.err != nil {
		return q
	}
	qf, err := facet.NewQueryFacet(name, opts...)
	if err != nil {
		return q.fail(err)
	}
	fn(&FacetRows{facet: qf, q: q})
	if q.err != nil {
		return q
	}
	if qf.Len() == 0 {
		return q.fail(fmt.Errorf("%w: query facet %s has no rows", field.ErrInvalidArgument, name))
	}
	return q.AddFacet(qf)
}

// PivotFacet counts documents per value path across fields, outermost
// first.
func (q *Query) PivotFacet(names []string, opts ...facet.Option) *Query {
	if q.err != nil {
		return q
	}
	fields := make([]field.Field, 0, len(names))
	for _, name := range names {
		f, err := q.composite.Field(name)
		if err != nil {
			return q.fail(err)
		}
		fields = append(fields, f)
	}
	pf, err := facet.NewPivotFacet("", fields, opts...)
	if err != nil {
		return q.fail(err)
	}
	return q.AddFacet(pf)
}

// JSONFacet adds a JSON terms facet on a field. Nested facets are built
// with facet.NewJSONFacet and AddFacet.
func (q *Query) JSONFacet(name string, opts ...facet.Option) *Query {
	if q.err != nil {
		return q
	}
	f, err := q.composite.Field(name)
	if err != nil {
		return q.fail(err)
	}
	jf, err := facet.NewJSONFacet("", f, opts...)
	if err != nil {
		return q.fail(err)
	}
	return q.AddFacet(jf)
}

// TypeClause restricts hits to the searched classes: "type:Post",
// "type:(Post OR Comment)", or "type:[* TO *]" when no class is bound.
func (q *Query) TypeClause() string {
	classes := q.composite.Classes()
	switch len(classes) {
	case 0:
		return setup.KeyType + ":[* TO *]"
	case 1:
		return setup.KeyType + ":" + field.Escape(classes[0])
	}
	escaped := make([]string, 0, len(classes))
	for _, c := range classes {
		escaped = append(escaped, field.Escape(c))
	}
	return setup.KeyType + ":(" + strings.Join(escaped, " OR ") + ")"
}

// FilterQueries returns the fq values: the type clause, one entry per
// top-level scope component, then tagged filters.
func (q *Query) FilterQueries() []string {
	fq := []string{q.TypeClause()}
	for _, c := range q.root.Components() {
		if phrase := c.BooleanPhrase(); phrase != "" {
			fq = append(fq, phrase)
		}
	}
	for _, t := range q.tagged {
		if phrase := t.conn.BooleanPhrase(); phrase != "" {
			fq = append(fq, "{!tag="+t.tag+"}"+phrase)
		}
	}
	return fq
}

// Params assembles the wire parameters. Fragments are deep-merged so list
// parameters such as fq accumulate; the geo filter merges last.
func (q *Query) Params() (params.Params, error) {
	if q.err != nil {
		return nil, q.err
	}
	base := params.Params{}
	base.Add(params.FilterQuery, q.FilterQueries()...)
	base.Set(params.FieldList, "* score")
	base.Set(params.Start, strconv.Itoa(q.Start()))
	base.Set(params.Rows, strconv.Itoa(q.perPage))

	fragments := []params.Params{base}
	if q.fulltext != nil {
		fragments = append(fragments, q.fulltext.params())
	}
	if q.mlt != nil {
		fragments = append(fragments, q.mlt.params())
	}
	for _, f := range q.facets {
		fragments = append(fragments, f.Params())
	}
	if len(q.sorts) > 0 {
		fragments = append(fragments, params.Params{params.Sort: joinSorts(q.sorts)})
	}
	if q.group != nil {
		fragments = append(fragments, q.group.params())
	}
	if q.geo != nil {
		fragments = append(fragments, q.geo.params())
	}

	p := params.DeepMerge(fragments...)
	if p.Get(params.Query) == "" {
		p.Set(params.Query, params.MatchAllDocs)
	}
	return p, nil
}

func joinComma(s []string) string { return strings.Join(s, ",") }
