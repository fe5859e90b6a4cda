package query

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/facet"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/scope"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

func postSetup() *setup.Setup {
	return setup.NewBuilder("Post").
		String("title").
		Integer("blog_id", field.Reference("Blog")).
		Integer("category_ids", field.Multiple()).
		Float("average_rating").
		Time("published_at").
		Boolean("featured").
		Location("location").
		Text("body").
		Text("headline", field.Boost(2)).
		MustBuild()
}

func commentSetup() *setup.Setup {
	return setup.NewBuilder("Comment").
		Integer("blog_id").
		Time("published_at").
		Float("average_rating").
		Text("body").
		MustBuild()
}

func posts() *setup.CompositeSetup { return setup.NewComposite(postSetup()) }

func postsAndComments() *setup.CompositeSetup {
	return setup.NewComposite(postSetup(), commentSetup())
}

func assertGolden(t *testing.T, name string, q *Query) {
	t.Helper()
	p, err := q.Params()
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(p.Canonical()))
}

func TestGolden_Scope(t *testing.T) {
	q := New(posts()).
		With("title", "My Pet Post").
		Without("blog_id", 2).
		AnyOf(func(s *Scope) {
			s.With("category_ids", []int{2, 7}).Without("featured", true)
		}).
		OrderBy("published_at", Desc).
		OrderBy(SortScore, Desc).
		Paginate(4, 15)
	assertGolden(t, "scope", q)
}

func TestGolden_FulltextFacets(t *testing.T) {
	cutoff := time.Date(2009, 7, 1, 0, 0, 0, 0, time.UTC)
	q := New(postsAndComments(), WithDefaultPerPage(10)).
		Keywords("  pizza  ",
			PhraseField("body", 2),
			MinimumMatch("2"),
			WithHighlight(HighlightFields("body"), MaxSnippets(3)),
		).
		Tag("blog", func(s *Scope) { s.With("blog_id", 4) }).
		FieldFacet("blog_id", facet.Limit(5), facet.Exclude("blog")).
		QueryFacet("age", func(r *FacetRows) {
			r.Row("old", func(s *Scope) { s.Where("published_at", "less_than", cutoff) })
		})
	assertGolden(t, "fulltext_facets", q)
}

func TestGolden_GeoGroup(t *testing.T) {
	q := New(posts()).
		InRadius("location", 32.7, -117.1, 5).
		GroupBy("blog_id", 3).
		OrderByDistance("location", 32.7, -117.1, Asc)
	assertGolden(t, "geo_group", q)
}

func TestGolden_MoreLikeThis(t *testing.T) {
	q := New(posts()).
		MoreLikeThis("Post", "1", SimilarFields("body"), MinTermFrequency(1), MinDocumentFrequency(2)).
		With("blog_id", 2)
	assert.Equal(t, HandlerMoreLikeThis, q.Handler())
	assertGolden(t, "more_like_this", q)
}

func TestTypeClause(t *testing.T) {
	namespaced := setup.NewBuilder("Blog::Post").String("title").MustBuild()
	tests := []struct {
		name      string
		composite *setup.CompositeSetup
		want      string
	}{
		{"single", posts(), "type:Post"},
		{"several", postsAndComments(), "type:(Post OR Comment)"},
		{"unbound", setup.NewComposite(), "type:[* TO *]"},
		{"namespaced", setup.NewComposite(namespaced), `type:Blog\:\:Post`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.composite).TypeClause())
		})
	}
}

func TestParams_Defaults(t *testing.T) {
	p, err := New(posts()).Params()
	require.NoError(t, err)
	assert.Equal(t, params.MatchAllDocs, p.Get(params.Query))
	assert.Equal(t, "0", p.Get(params.Start))
	assert.Equal(t, "30", p.Get(params.Rows))
	assert.Equal(t, []string{"type:Post"}, p.List(params.FilterQuery))
	assert.Equal(t, HandlerSelect, New(posts()).Handler())
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		page, per int
		start     string
		rows      string
	}{
		{"fourth page", 4, 15, "45", "15"},
		{"first page", 1, 15, "0", "15"},
		{"default per page", 3, 0, "60", "30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(posts()).Paginate(tt.page, tt.per).Params()
			require.NoError(t, err)
			assert.Equal(t, tt.start, p.Get(params.Start))
			assert.Equal(t, tt.rows, p.Get(params.Rows))
		})
	}

	q := New(posts(), WithDefaultPerPage(20)).Paginate(2, 0)
	assert.Equal(t, 20, q.Start())

	// resetting recomputes start
	q = New(posts()).Paginate(2, 10).Paginate(3, 5)
	assert.Equal(t, 10, q.Start())
	assert.Equal(t, 5, q.PerPage())
}

func TestPaginate_Invalid(t *testing.T) {
	_, err := New(posts()).Paginate(0, 10).Params()
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
	_, err = New(posts()).Paginate(1, -1).Params()
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
}

func TestUnrecognizedField(t *testing.T) {
	q := New(postsAndComments()).With("title", "x")
	require.Error(t, q.Err())
	assert.ErrorIs(t, q.Err(), setup.ErrUnrecognizedField)

	var ufe *setup.UnrecognizedFieldError
	require.True(t, errors.As(q.Err(), &ufe))
	assert.Equal(t, "title", ufe.Field)
	assert.Equal(t, []string{"Post", "Comment"}, ufe.Classes)

	_, err := q.Params()
	assert.ErrorIs(t, err, setup.ErrUnrecognizedField)
}

func TestIncompatibleFieldDropped(t *testing.T) {
	a := setup.NewBuilder("Photo").String("caption").MustBuild()
	b := setup.NewBuilder("Video").Integer("caption").MustBuild()
	q := New(setup.NewComposite(a, b)).With("caption", "x")
	assert.ErrorIs(t, q.Err(), setup.ErrUnrecognizedField)
}

func TestStickyError(t *testing.T) {
	q := New(posts()).
		Where("blog_id", "bogus_kind", 1).
		With("missing", 1).
		With("blog_id", 1)

	var uke *scope.UnknownKindError
	require.True(t, errors.As(q.Err(), &uke), "first error wins")
	assert.Equal(t, "bogus_kind", uke.Kind)
	assert.False(t, errors.Is(q.Err(), field.ErrInvalidArgument))
	assert.Zero(t, q.Scope().Len(), "calls after the failure are skipped")
}

func TestInvalidRestrictionArguments(t *testing.T) {
	tests := []struct {
		name string
		q    *Query
	}{
		{"nil greater than", New(posts()).Where("blog_id", "greater_than", nil)},
		{"list on single-valued", New(posts()).Where("blog_id", "equal_to", []int{1, 2})},
		{"empty any of", New(posts()).With("category_ids", []int{})},
		{"sort on multi-valued", New(posts()).OrderBy("category_ids", Asc)},
		{"bad direction", New(posts()).OrderBy("blog_id", "up")},
		{"group by multi-valued", New(posts()).GroupBy("category_ids", 1)},
		{"radius on non-location", New(posts()).InRadius("blog_id", 1, 1, 1)},
		{"bad coordinates", New(posts()).InRadius("location", 91, 0, 1)},
		{"bad tag", New(posts()).Tag("a b", func(*Scope) {})},
		{"empty query facet", New(posts()).QueryFacet("empty", func(*FacetRows) {})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.q.Err(), field.ErrInvalidArgument)
		})
	}
}

func TestWithNil(t *testing.T) {
	q := New(posts()).With("average_rating", nil).Without("published_at", nil)
	p, err := q.Params()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"type:Post",
		"-average_rating_f:[* TO *]",
		"published_at_d:[* TO *]",
	}, p.List(params.FilterQuery))
}

func TestWhereKinds(t *testing.T) {
	q := New(posts()).
		Where("average_rating", "between", scope.Range{From: 2.0, To: 4.0}).
		Where("category_ids", "any_of", []int{2, 7, 12}).
		Where("category_ids", "all_of", []int{1, 2}).
		Where("blog_id", "greater_than_or_equal_to", 3).
		WhereNot("title", "starting_with", "Draft")
	p, err := q.Params()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"type:Post",
		`average_rating_f:[2\.0 TO 4\.0]`,
		"category_ids_im:(2 OR 7 OR 12)",
		"category_ids_im:(1 AND 2)",
		"blog_id_i:[3 TO *]",
		"-title_s:Draft*",
	}, p.List(params.FilterQuery))
}

func TestExclude(t *testing.T) {
	rec := &setup.Record{Class: "Post", ID: "7"}
	q := New(posts()).Exclude("Post", "3").ExcludeInstance("Post", rec)
	p, err := q.Params()
	require.NoError(t, err)
	assert.Equal(t, []string{"type:Post", `-id:Post\ 3`, `-id:Post\ 7`}, p.List(params.FilterQuery))

	q = New(posts()).ExcludeInstance("Comment", rec)
	assert.ErrorIs(t, q.Err(), setup.ErrNoSetup)
}

func TestNestedConnectives(t *testing.T) {
	q := New(posts()).AnyOf(func(s *Scope) {
		s.With("blog_id", 1).AllOf(func(s *Scope) {
			s.With("featured", true).With("average_rating", scope.Range{From: 4.0, To: 5.0})
		})
	}).NoneOf(func(s *Scope) {
		s.With("blog_id", 9).With("featured", false)
	})
	p, err := q.Params()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"type:Post",
		`(blog_id_i:1 OR (featured_b:true AND average_rating_f:[4\.0 TO 5\.0]))`,
		"-(blog_id_i:9 AND featured_b:false)",
	}, p.List(params.FilterQuery))
}

func TestApplyConditionMap(t *testing.T) {
	q := New(posts()).ApplyConditionMap(map[string]any{
		"blog_id":        2,
		"category_ids":   []any{3.0, 14.0},
		"average_rating": map[string]any{"greater_than": 3.5},
		"-featured":      true,
		"unknown_field":  "ignored",
		"page":           2,
	})
	require.NoError(t, q.Err())
	p, err := q.Params()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"type:Post",
		"-featured_b:true",
		`average_rating_f:{3\.5 TO *}`,
		"blog_id_i:2",
		"category_ids_im:(3 OR 14)",
	}, p.List(params.FilterQuery))

	q = New(posts()).ApplyConditionMap(map[string]any{"blog_id": map[string]any{"nearly": 1}})
	var uke *scope.UnknownKindError
	assert.True(t, errors.As(q.Err(), &uke))
}

func TestKeywords_DefaultFields(t *testing.T) {
	p, err := New(posts()).Keywords("pizza").Params()
	require.NoError(t, err)
	assert.Equal(t, "pizza", p.Get(params.Query))
	assert.Equal(t, "edismax", p.Get(params.DefType))
	assert.Equal(t, "body_text headline_text^2.0", p.Get(params.QueryFields))
}

func TestKeywords_Options(t *testing.T) {
	q := New(posts()).Keywords("pizza",
		Field("headline", 3),
		PhraseSlop(2),
		QueryPhraseSlop(1),
		Tie(0.1),
		BoostQuery(2, func(s *Scope) { s.With("featured", true) }),
		BoostFunction("recip(ms(NOW,published_at_d),3.16e-11,1,1)"),
		WithHighlight(FragmentSize(0), MergeContiguousFragments(), PhraseHighlighter()),
	)
	p, err := q.Params()
	require.NoError(t, err)
	assert.Equal(t, "headline_text^3.0", p.Get(params.QueryFields))
	assert.Equal(t, "2", p.Get("ps"))
	assert.Equal(t, "1", p.Get("qs"))
	assert.Equal(t, "0.1", p.Get("tie"))
	assert.Equal(t, []string{"featured_b:true^2.0"}, p.List("bq"))
	assert.Equal(t, []string{"recip(ms(NOW,published_at_d),3.16e-11,1,1)"}, p.List("bf"))
	assert.Equal(t, "on", p.Get("hl"))
	assert.Equal(t, "0", p.Get("hl.fragsize"))
	assert.Equal(t, "true", p.Get("hl.mergeContiguous"))
	assert.Equal(t, "true", p.Get("hl.usePhraseHighlighter"))
	assert.Equal(t, params.HighlightPre, p.Get("hl.simple.pre"))
}

func TestKeywords_Invalid(t *testing.T) {
	q := New(posts()).Keywords("pizza", Field("title", 1))
	assert.ErrorIs(t, q.Err(), setup.ErrUnrecognizedField, "title is not a text field")

	q = New(posts()).Keywords("pizza", Tie(2))
	assert.ErrorIs(t, q.Err(), field.ErrInvalidArgument)

	q = New(posts()).Keywords("pizza", BoostQuery(1, func(*Scope) {}))
	assert.ErrorIs(t, q.Err(), field.ErrInvalidArgument)
}

func TestKeywords_Blank(t *testing.T) {
	p, err := New(posts()).Keywords("   ").Params()
	require.NoError(t, err)
	assert.Equal(t, params.MatchAllDocs, p.Get(params.Query))
	assert.False(t, p.Has(params.DefType))
}

func TestSortOrderPreserved(t *testing.T) {
	p, err := New(posts()).
		OrderBy("blog_id", Asc).
		OrderByRandom(42).
		OrderBy(SortScore, Desc).
		Params()
	require.NoError(t, err)
	assert.Equal(t, "blog_id_i asc, random_42 asc, score desc", p.Get(params.Sort))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Desc, d)
	d, err = ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Asc, d)
	_, err = ParseDirection("sideways")
	assert.ErrorIs(t, err, field.ErrInvalidArgument)
}

func TestFacets_LastWriteWins(t *testing.T) {
	q := New(posts()).
		FieldFacet("blog_id", facet.Limit(5)).
		FieldFacet("category_ids").
		FieldFacet("blog_id", facet.Limit(2))
	require.NoError(t, q.Err())
	require.Len(t, q.Facets(), 2)
	assert.Equal(t, "blog_id", q.Facets()[0].Name(), "replaced in place")

	p, err := q.Params()
	require.NoError(t, err)
	assert.Equal(t, []string{"{!facet.limit=2 facet.mincount=1}blog_id_i", "{!facet.mincount=1}category_ids_im"}, p.List("facet.field"))
	assert.NotNil(t, q.Facet("category_ids"))
	assert.Nil(t, q.Facet("nope"))
}

func TestFacets_Kinds(t *testing.T) {
	start := time.Date(2009, 7, 1, 0, 0, 0, 0, time.UTC)
	q := New(posts()).
		DateFacet("published_at", start, start.AddDate(0, 0, 7), 24*time.Hour).
		RangeFacet("average_rating", 0, 5, 1).
		PivotFacet([]string{"blog_id", "category_ids"}).
		JSONFacet("category_ids", facet.SortBy(facet.SortCount)).
		NamedFieldFacet("blogs", "blog_id")
	require.NoError(t, q.Err())

	p, err := q.Params()
	require.NoError(t, err)
	ranges := p.List("facet.range")
	require.Len(t, ranges, 2)
	assert.True(t, strings.HasSuffix(ranges[0], "}published_at_d"), ranges[0])
	assert.True(t, strings.HasSuffix(ranges[1], "}average_rating_f"), ranges[1])
	assert.Equal(t, []string{"{!key=blog_id,category_ids facet.pivot.mincount=1}blog_id_i,category_ids_im"}, p.List("facet.pivot"))
	assert.Equal(t, []string{"{!key=blogs facet.mincount=1}blog_id_i"}, p.List("facet.field"))
	require.NotNil(t, p.Map(params.JSONFacet).Map("category_ids"))

	q = New(posts()).DateFacet("blog_id", start, start.AddDate(0, 0, 7), 24*time.Hour)
	assert.ErrorIs(t, q.Err(), field.ErrInvalidArgument)
	q = New(posts()).PivotFacet([]string{"blog_id", "nope"})
	assert.ErrorIs(t, q.Err(), setup.ErrUnrecognizedField)
}

func TestMoreLikeThis_DefaultFields(t *testing.T) {
	p, err := New(posts()).MoreLikeThis("Post", "1").Params()
	require.NoError(t, err)
	assert.Equal(t, "body_text,headline_text", p.Get("mlt.fl"))

	q := New(setup.NewComposite(setup.NewBuilder("Tag").String("name").MustBuild())).MoreLikeThis("Tag", "1")
	assert.ErrorIs(t, q.Err(), field.ErrInvalidArgument)
}
