package facet

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
	"github.com/kailas-cloud/solrq/internal/domain/search/scope"
)

var (
	blogID        = field.MustNew("blog_id", field.Integer, field.Reference("Blog"))
	categoryIDs   = field.MustNew("category_ids", field.Integer, field.Multiple())
	averageRating = field.MustNew("average_rating", field.Float)
	publishedAt   = field.MustNew("published_at", field.Time)
	tags          = field.MustNew("tags", field.String, field.Multiple())
)

func decode(t *testing.T, body string) *response.Response {
	t.Helper()
	resp, err := response.DecodeBytes([]byte(body))
	require.NoError(t, err)
	return resp
}

func values(rows []Row) []any {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Value)
	}
	return out
}

const fieldFacetBody = `{"facet_counts":{"facet_fields":{"blog_id_i":["2",5,"1",3,"7",0,"4",9,"3",1]}}}`

func TestFieldFacet_Params(t *testing.T) {
	f, err := NewFieldFacet("", blogID, SortBy(SortCount), Limit(3), Zeros(), Offset(2), Prefix("1"), Missing())
	require.NoError(t, err)
	p := f.Params()

	assert.Equal(t, "true", p.Get("facet"))
	assert.Equal(t, []string{
		"{!facet.sort=count facet.limit=3 facet.mincount=0 facet.offset=2 facet.prefix=1 facet.missing=true}blog_id_i",
	}, p.List("facet.field"))
	assert.Empty(t, p.Get("f.blog_id_i.facet.limit"), "no per-field parameters")
}

func TestFieldFacet_SameFieldTwice(t *testing.T) {
	top, err := NewFieldFacet("top_blogs", blogID, Limit(3))
	require.NoError(t, err)
	all, err := NewFieldFacet("", blogID, Zeros())
	require.NoError(t, err)

	merged := params.DeepMerge(top.Params(), all.Params())
	assert.Equal(t, []string{
		"{!key=top_blogs facet.limit=3 facet.mincount=1}blog_id_i",
		"{!facet.mincount=0}blog_id_i",
	}, merged.List("facet.field"))
	for k := range merged {
		assert.NotContains(t, k, "f.blog_id_i.", "settings of one facet must not reach the other")
	}
}

func TestLocalParams_QuotesValues(t *testing.T) {
	f, err := NewFieldFacet("by tag", tags, Prefix("it's"))
	require.NoError(t, err)
	assert.Equal(t, []string{`{!key='by tag' facet.mincount=1 facet.prefix='it\'s'}tags_sm`}, f.Params().List("facet.field"))
}

func TestFieldFacet_KeyAndExclude(t *testing.T) {
	f, err := NewFieldFacet("blogs", blogID, Exclude("blog"))
	require.NoError(t, err)
	assert.Equal(t, []string{"{!ex=blog key=blogs facet.mincount=1}blog_id_i"}, f.Params().List("facet.field"))

	resp := decode(t, `{"facet_counts":{"facet_fields":{"blogs":["2",5]}}}`)
	rows, err := f.Rows(resp)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Value)
}

func TestFieldFacet_ParamsAccumulate(t *testing.T) {
	a, _ := NewFieldFacet("", blogID)
	b, _ := NewFieldFacet("", categoryIDs)
	merged := params.DeepMerge(a.Params(), b.Params())
	assert.Equal(t, []string{"{!facet.mincount=1}blog_id_i", "{!facet.mincount=1}category_ids_im"}, merged.List("facet.field"))
}

func TestFieldFacet_Rows(t *testing.T) {
	resp := decode(t, fieldFacetBody)
	tests := []struct {
		name string
		opts []Option
		want []any
	}{
		{"default drops zeros, keeps response order", nil, []any{2, 1, 4, 3}},
		{"zeros", []Option{Zeros()}, []any{2, 1, 7, 4, 3}},
		{"explicit minimum count 0", []Option{MinimumCount(0)}, []any{2, 1, 7, 4, 3}},
		{"minimum count 4", []Option{MinimumCount(4)}, []any{2, 4}},
		{"count sort", []Option{SortBy(SortCount)}, []any{4, 2, 1, 3}},
		{"index sort is by cast value", []Option{SortBy(SortIndex)}, []any{1, 2, 3, 4}},
		{"limit after sort", []Option{SortBy(SortCount), Limit(3)}, []any{4, 2, 1}},
		{"limit without sort", []Option{Limit(3)}, []any{2, 1, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFieldFacet("", blogID, tt.opts...)
			require.NoError(t, err)
			rows, err := f.Rows(resp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, values(rows))
		})
	}
}

func TestFieldFacet_IndexSortNumeric(t *testing.T) {
	resp := decode(t, `{"facet_counts":{"facet_fields":{"blog_id_i":["10",1,"9",1,"100",1]}}}`)
	f, _ := NewFieldFacet("", blogID, SortBy(SortIndex))
	rows, err := f.Rows(resp)
	require.NoError(t, err)
	assert.Equal(t, []any{9, 10, 100}, values(rows))
}

func TestFieldFacet_NoFacetCounts(t *testing.T) {
	f, _ := NewFieldFacet("", blogID)
	rows, err := f.Rows(decode(t, `{"response":{"numFound":0,"docs":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFieldFacet_MissingRow(t *testing.T) {
	f, _ := NewFieldFacet("", tags, Missing())
	rows, err := f.Rows(decode(t, `{"facet_counts":{"facet_fields":{"tags_sm":["go",2,null,4]}}}`))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[1].Value)
	assert.Equal(t, 4, rows[1].Count)
}

func TestOptions_Invalid(t *testing.T) {
	_, err := NewFieldFacet("", blogID, Limit(-1))
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
	_, err = NewFieldFacet("", blogID, SortBy("alpha"))
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
	_, err = NewFieldFacet("", blogID, MinimumCount(-2))
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
}

func TestGap(t *testing.T) {
	assert.Equal(t, "+86400SECONDS", FormatGap(24*time.Hour))
	d, err := ParseGap("+3600SECONDS")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)
	_, err = ParseGap("+1DAY")
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
}

const dateFacetBody = `{"facet_counts":{"facet_ranges":{"published_at_d":{
	"counts":["2009-07-01T00:00:00Z",2,"2009-07-02T00:00:00Z",5,"2009-07-03T00:00:00Z",0,"2009-07-04T00:00:00Z",3],
	"gap":"+86400SECONDS","start":"2009-07-01T00:00:00Z","end":"2009-07-05T00:00:00Z"}}}}`

func TestDateFacet_Params(t *testing.T) {
	start := time.Date(2009, 7, 1, 0, 0, 0, 0, time.UTC)
	f, err := NewDateFacet("", publishedAt, start, start.AddDate(0, 0, 4), 24*time.Hour)
	require.NoError(t, err)
	p := f.Params()
	assert.Equal(t, []string{
		"{!facet.range.start=2009-07-01T00:00:00Z facet.range.end=2009-07-05T00:00:00Z" +
			" facet.range.gap=+86400SECONDS facet.mincount=1}published_at_d",
	}, p.List("facet.range"))
	assert.Equal(t, KindDate, f.Kind())
}

func TestDateFacet_Rows(t *testing.T) {
	start := time.Date(2009, 7, 1, 0, 0, 0, 0, time.UTC)
	resp := decode(t, dateFacetBody)

	f, err := NewDateFacet("", publishedAt, start, start.AddDate(0, 0, 4), 24*time.Hour)
	require.NoError(t, err)
	rows, err := f.Rows(resp)
	require.NoError(t, err)
	require.Len(t, rows, 3, "zero-count window dropped")
	w := rows[0].Value.(Window)
	assert.Equal(t, start, w.Start)
	assert.Equal(t, start.Add(24*time.Hour), w.End)

	// index sort still yields chronological rows
	f, _ = NewDateFacet("", publishedAt, start, start.AddDate(0, 0, 4), 24*time.Hour, SortBy(SortIndex), Zeros())
	rows, err = f.Rows(resp)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i-1].Value.(Window).Start.Before(rows[i].Value.(Window).Start))
	}

	f, _ = NewDateFacet("", publishedAt, start, start.AddDate(0, 0, 4), 24*time.Hour, SortBy(SortCount), Limit(2))
	rows, err = f.Rows(resp)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 5, rows[0].Count)
	assert.Equal(t, 3, rows[1].Count)
}

func TestDateFacet_LegacyResponse(t *testing.T) {
	start := time.Date(2009, 7, 1, 0, 0, 0, 0, time.UTC)
	resp := decode(t, `{"facet_counts":{"facet_dates":{"published_at_d":{
		"2009-07-02T00:00:00Z":1,"2009-07-01T00:00:00Z":4,"gap":"+43200SECONDS","end":"2009-07-03T00:00:00Z"}}}}`)
	f, _ := NewDateFacet("", publishedAt, start, start.AddDate(0, 0, 2), 24*time.Hour)
	rows, err := f.Rows(resp)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	w := rows[0].Value.(Window)
	assert.Equal(t, start, w.Start)
	assert.Equal(t, 12*time.Hour, w.End.Sub(w.Start), "gap read from the response")
}

func TestDateFacet_Invalid(t *testing.T) {
	start := time.Now()
	_, err := NewDateFacet("", blogID, start, start.Add(time.Hour), time.Hour)
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
	_, err = NewDateFacet("", publishedAt, start, start, time.Hour)
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
	_, err = NewDateFacet("", publishedAt, start, start.Add(time.Hour), time.Millisecond)
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
	_, err = NewDateFacet("", publishedAt, start, start.Add(time.Hour), 1500*time.Millisecond)
	assert.ErrorIs(t, err, field.ErrInvalidArgument, "fractional seconds cannot be sent as a gap")
}

func TestRangeFacet(t *testing.T) {
	f, err := NewRangeFacet("ratings", averageRating, 0, 5, 1)
	require.NoError(t, err)
	p := f.Params()
	assert.Equal(t, []string{
		"{!key=ratings facet.range.start=0.0 facet.range.end=5.0 facet.range.gap=1.0 facet.mincount=1}average_rating_f",
	}, p.List("facet.range"))

	resp := decode(t, `{"facet_counts":{"facet_ranges":{"ratings":{"counts":["1.0",2,"0.0",1],"gap":1.0}}}}`)
	rows, err := f.Rows(resp)
	require.NoError(t, err)
	assert.Equal(t, []any{Interval{From: 0, To: 1}, Interval{From: 1, To: 2}}, values(rows))

	_, err = NewRangeFacet("", publishedAt, 0, 1, 1)
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
}

func TestRangeFacet_Bounds(t *testing.T) {
	f, err := NewRangeFacet("", blogID, 0, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"{!facet.range.start=0 facet.range.end=10 facet.range.gap=5 facet.mincount=1}blog_id_i",
	}, f.Params().List("facet.range"))

	tests := []struct {
		name            string
		f               field.Field
		start, end, gap float64
	}{
		{"fractional integer start", blogID, 0.5, 10, 5},
		{"fractional integer gap", blogID, 0, 10, 2.5},
		{"infinite end", averageRating, 0, math.Inf(1), 1},
		{"nan start", averageRating, math.NaN(), 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRangeFacet("", tt.f, tt.start, tt.end, tt.gap)
			assert.ErrorIs(t, err, field.ErrInvalidArgument)
		})
	}
}

func rangeRestriction(t *testing.T, lo, hi float64) *scope.Restriction {
	t.Helper()
	r, err := scope.NewRestriction(scope.Between, averageRating, scope.Range{From: lo, To: hi}, false)
	require.NoError(t, err)
	return r
}

func TestQueryFacet(t *testing.T) {
	f, err := NewQueryFacet("rating_ranges")
	require.NoError(t, err)
	require.NoError(t, f.AddRow("1-2", rangeRestriction(t, 1, 2)))
	require.NoError(t, f.AddRow("2-3", rangeRestriction(t, 2, 3)))
	require.NoError(t, f.AddRow("3-4", rangeRestriction(t, 3, 4)))

	assert.Equal(t, []string{
		`average_rating_f:[1\.0 TO 2\.0]`,
		`average_rating_f:[2\.0 TO 3\.0]`,
		`average_rating_f:[3\.0 TO 4\.0]`,
	}, f.Params().List("facet.query"))

	// 3-4 absent from the response, 2-3 present with zero
	resp := decode(t, `{"facet_counts":{"facet_queries":{
		"average_rating_f:[1\\.0 TO 2\\.0]":4,
		"average_rating_f:[2\\.0 TO 3\\.0]":0}}}`)

	rows, err := f.Rows(resp)
	require.NoError(t, err)
	assert.Equal(t, []any{"1-2"}, values(rows))

	zeros, _ := NewQueryFacet("rating_ranges", Zeros())
	require.NoError(t, zeros.AddRow("1-2", rangeRestriction(t, 1, 2)))
	require.NoError(t, zeros.AddRow("2-3", rangeRestriction(t, 2, 3)))
	require.NoError(t, zeros.AddRow("3-4", rangeRestriction(t, 3, 4)))
	rows, err = zeros.Rows(resp)
	require.NoError(t, err)
	assert.Equal(t, []any{"1-2", "2-3"}, values(rows), "absent phrases are dropped, not zero-filled")
}

func TestQueryFacet_SortAndExclude(t *testing.T) {
	f, _ := NewQueryFacet("q", SortBy(SortCount), Exclude("rating"))
	require.NoError(t, f.AddRow("low", rangeRestriction(t, 0, 2)))
	require.NoError(t, f.AddRow("high", rangeRestriction(t, 2, 5)))
	assert.Equal(t, `{!ex=rating}average_rating_f:[0\.0 TO 2\.0]`, f.Params().List("facet.query")[0])

	resp := decode(t, `{"facet_counts":{"facet_queries":{
		"{!ex=rating}average_rating_f:[0\\.0 TO 2\\.0]":1,
		"{!ex=rating}average_rating_f:[2\\.0 TO 5\\.0]":6}}}`)
	rows, err := f.Rows(resp)
	require.NoError(t, err)
	assert.Equal(t, []any{"high", "low"}, values(rows))
}

func TestQueryFacet_IndexSortNumericLabels(t *testing.T) {
	f, _ := NewQueryFacet("min_rating", SortBy(SortIndex))
	require.NoError(t, f.AddRow(10, rangeRestriction(t, 10, 20)))
	require.NoError(t, f.AddRow(9, rangeRestriction(t, 9, 20)))
	require.NoError(t, f.AddRow(100, rangeRestriction(t, 100, 200)))

	resp := decode(t, `{"facet_counts":{"facet_queries":{
		"average_rating_f:[10\\.0 TO 20\\.0]":2,
		"average_rating_f:[9\\.0 TO 20\\.0]":3,
		"average_rating_f:[100\\.0 TO 200\\.0]":1}}}`)
	rows, err := f.Rows(resp)
	require.NoError(t, err)
	assert.Equal(t, []any{9, 10, 100}, values(rows))
}

func TestQueryFacet_EmptyRow(t *testing.T) {
	f, _ := NewQueryFacet("q")
	err := f.AddRow("nothing", scope.NewConjunction(false))
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
	_, err = NewQueryFacet("")
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
}

func TestPivotFacet(t *testing.T) {
	f, err := NewPivotFacet("", []field.Field{blogID, categoryIDs}, Limit(5))
	require.NoError(t, err)
	assert.Equal(t, "blog_id,category_ids", f.Name())

	p := f.Params()
	assert.Equal(t, []string{
		"{!key=blog_id,category_ids facet.limit=5 facet.pivot.mincount=1}blog_id_i,category_ids_im",
	}, p.List("facet.pivot"))
	assert.Empty(t, p.Get("f.category_ids_im.facet.limit"))

	resp := decode(t, `{"facet_counts":{"facet_pivot":{"blog_id,category_ids":[
		{"field":"blog_id_i","value":2,"count":5,"pivot":[
			{"field":"category_ids_im","value":3,"count":4},
			{"field":"category_ids_im","value":8,"count":0}]},
		{"field":"blog_id_i","value":1,"count":2}]}}}`)
	rows, err := f.Rows(resp)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Value)
	require.Len(t, rows[0].Children, 1, "zero-count child dropped")
	assert.Equal(t, 3, rows[0].Children[0].Value)
	assert.Empty(t, rows[1].Children)

	_, err = NewPivotFacet("", []field.Field{blogID})
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
}

func TestJSONFacet(t *testing.T) {
	inner, err := NewJSONFacet("blogs", blogID, Limit(2))
	require.NoError(t, err)
	outer, err := NewJSONFacet("tags", tags, SortBy(SortCount), Exclude("t"))
	require.NoError(t, err)
	outer.Nest(inner)

	p := outer.Params()
	def := p.Map(params.JSONFacet).Map("tags")
	require.NotNil(t, def)
	assert.Equal(t, "terms", def["type"])
	assert.Equal(t, "tags_sm", def["field"])
	assert.Equal(t, "count desc", def["sort"])
	assert.Equal(t, params.Params{"excludeTags": []string{"t"}}, def["domain"])
	assert.Equal(t, 2, def.Map("facet").Map("blogs")["limit"])

	resp := decode(t, `{"facets":{"count":3,"tags":{"buckets":[
		{"val":"a","count":1},
		{"val":"b","count":2,"blogs":{"buckets":[{"val":2,"count":2},{"val":5,"count":1}]}}]}}}`)
	rows, err := outer.Rows(resp)
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "a"}, values(rows))
	assert.Equal(t, []any{2, 5}, values(rows[0].SubFacets["blogs"]))
	assert.Nil(t, rows[1].SubFacets)
}

type fakeLoader struct {
	calls   int
	lastIDs []string
	records map[string]any
}

func (l *fakeLoader) LoadByIDs(_ context.Context, ids []string) (map[string]any, error) {
	l.calls++
	l.lastIDs = ids
	out := make(map[string]any)
	for _, id := range ids {
		if r, ok := l.records[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func loadersFor(class string, l Loader) Loaders {
	return func(c string) Loader {
		if c == class {
			return l
		}
		return nil
	}
}

func TestExtract_ReferenceInstances(t *testing.T) {
	loader := &fakeLoader{records: map[string]any{"2": "blog two", "4": "blog four"}}
	f, _ := NewFieldFacet("", blogID)
	res, err := Extract(f, decode(t, fieldFacetBody), loadersFor("Blog", loader))
	require.NoError(t, err)
	require.True(t, res.HasInstances())
	assert.Equal(t, 0, loader.calls, "instances load on first access")

	rows := res.Rows()
	inst, err := res.Instance(context.Background(), rows[0])
	require.NoError(t, err)
	assert.Equal(t, "blog two", inst)

	all, err := res.Instances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{"blog two", nil, "blog four", nil}, all)
	assert.Equal(t, 1, loader.calls, "one batched load")

	missing, err := res.Unresolved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, missing)
}

func TestExtract_NoReference(t *testing.T) {
	loader := &fakeLoader{}
	f, _ := NewFieldFacet("", categoryIDs)
	res, err := Extract(f, decode(t, `{"facet_counts":{"facet_fields":{"category_ids_im":["1",1]}}}`), loadersFor("Blog", loader))
	require.NoError(t, err)
	assert.False(t, res.HasInstances())
	inst, err := res.Instance(context.Background(), res.Rows()[0])
	require.NoError(t, err)
	assert.Nil(t, inst)
	assert.Equal(t, 0, loader.calls)
}

func TestExtract_NestedReferenceInstances(t *testing.T) {
	blogs := &fakeLoader{records: map[string]any{"2": "blog two"}}

	inner, _ := NewJSONFacet("blogs", blogID)
	outer, _ := NewJSONFacet("tags", tags)
	outer.Nest(inner)
	resp := decode(t, `{"facets":{"count":3,"tags":{"buckets":[
		{"val":"b","count":2,"blogs":{"buckets":[{"val":2,"count":2},{"val":5,"count":1}]}}]}}}`)
	res, err := Extract(outer, resp, loadersFor("Blog", blogs))
	require.NoError(t, err)
	require.True(t, res.HasInstances(), "sub-facet rows reference Blog")

	sub := res.Rows()[0].SubFacets["blogs"]
	require.Len(t, sub, 2)
	inst, err := res.Instance(context.Background(), sub[0])
	require.NoError(t, err)
	assert.Equal(t, "blog two", inst)
	inst, err = res.Instance(context.Background(), res.Rows()[0])
	require.NoError(t, err)
	assert.Nil(t, inst, "tags carry no reference")

	missing, err := res.Unresolved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, missing, "blog 5 is gone")
	assert.Equal(t, 1, blogs.calls)
}

func TestExtract_PivotChildInstances(t *testing.T) {
	blogs := &fakeLoader{records: map[string]any{"2": "blog two", "4": "blog four"}}
	f, _ := NewPivotFacet("", []field.Field{categoryIDs, blogID})
	resp := decode(t, `{"facet_counts":{"facet_pivot":{"category_ids,blog_id":[
		{"field":"category_ids_im","value":3,"count":5,"pivot":[
			{"field":"blog_id_i","value":2,"count":4},
			{"field":"blog_id_i","value":4,"count":1}]}]}}}`)
	res, err := Extract(f, resp, loadersFor("Blog", blogs))
	require.NoError(t, err)
	require.True(t, res.HasInstances())

	require.NoError(t, res.Load(context.Background()))
	assert.Equal(t, 1, blogs.calls)
	assert.ElementsMatch(t, []string{"2", "4"}, blogs.lastIDs)

	children := res.Rows()[0].Children
	require.Len(t, children, 2)
	for i, want := range []any{"blog two", "blog four"} {
		inst, err := res.Instance(context.Background(), children[i])
		require.NoError(t, err)
		assert.Equal(t, want, inst)
	}
	assert.Equal(t, 1, blogs.calls, "children resolve from the one batch")
}
