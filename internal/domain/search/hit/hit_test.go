package hit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

// reversingAccessor returns records in reverse request order and omits ids
// it does not hold.
type reversingAccessor struct {
	records map[string]*setup.Record
	calls   atomic.Int32
	err     error
}

func (a *reversingAccessor) LoadAll(_ context.Context, ids []string) ([]any, error) {
	a.calls.Add(1)
	if a.err != nil {
		return nil, a.err
	}
	var out []any
	for i := len(ids) - 1; i >= 0; i-- {
		if r, ok := a.records[ids[i]]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func records(class string, ids ...string) map[string]*setup.Record {
	out := make(map[string]*setup.Record, len(ids))
	for _, id := range ids {
		out[id] = &setup.Record{Class: class, ID: id}
	}
	return out
}

type fixture struct {
	registry *setup.Registry
	posts    *reversingAccessor
	comments *reversingAccessor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		registry: setup.NewRegistry(),
		posts:    &reversingAccessor{records: records("Post", "1", "2", "3")},
		comments: &reversingAccessor{records: records("Comment", "9")},
	}
	post, err := setup.NewBuilder("Post").
		String("title", field.Stored()).
		String("tags", field.Multiple(), field.Stored()).
		Long("hits", field.Stored()).
		Integer("blog_id").
		Text("body").
		Accessor(fx.posts).
		Build()
	require.NoError(t, err)
	comment, err := setup.NewBuilder("Comment").Text("body").Accessor(fx.comments).Build()
	require.NoError(t, err)
	fx.registry.Register(post)
	fx.registry.Register(comment)
	return fx
}

func docs(ids ...string) []response.Document {
	out := make([]response.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, response.Document{"id": id})
	}
	return out
}

func TestPopulate_PreservesResponseOrder(t *testing.T) {
	fx := newFixture(t)
	set, err := NewSet(docs("Post 3", "Comment 9", "Post 1", "Post 2"), nil, fx.registry)
	require.NoError(t, err)

	results, err := set.Results(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.(*setup.Record).Class+" "+r.(*setup.Record).ID)
	}
	assert.Equal(t, []string{"Post 3", "Comment 9", "Post 1", "Post 2"}, ids)
	assert.Equal(t, int32(1), fx.posts.calls.Load(), "one batch per class")
	assert.Equal(t, int32(1), fx.comments.calls.Load())
}

func TestPopulate_MissingInstances(t *testing.T) {
	fx := newFixture(t)
	set, err := NewSet(docs("Post 1", "Post 42", "Comment 9", "Comment 8"), nil, fx.registry)
	require.NoError(t, err)

	verified, err := set.VerifiedHits(context.Background())
	require.NoError(t, err)
	require.Len(t, verified, 2)
	assert.Equal(t, "Post 1", verified[0].ID())
	assert.Equal(t, "Comment 9", verified[1].ID())

	missing := set.Hits()[1]
	assert.Nil(t, missing.Instance())
	assert.False(t, missing.Loaded())

	unresolved, err := set.Unresolved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Post": 1, "Comment": 1}, unresolved)
}

func TestPopulate_Once(t *testing.T) {
	fx := newFixture(t)
	set, err := NewSet(docs("Post 1", "Post 2"), nil, fx.registry)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, set.Populate(ctx))
	require.NoError(t, set.Populate(ctx))
	_, err = set.Results(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fx.posts.calls.Load())
}

func TestPopulate_LoadError(t *testing.T) {
	fx := newFixture(t)
	boom := errors.New("connection refused")
	fx.posts.err = boom
	set, err := NewSet(docs("Post 1"), nil, fx.registry)
	require.NoError(t, err)
	_, err = set.Results(context.Background())
	assert.ErrorIs(t, err, boom)

	// a failed load is retried
	fx.posts.err = nil
	results, err := set.Results(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestPopulate_UnknownClass(t *testing.T) {
	fx := newFixture(t)
	set, err := NewSet(docs("Photo 1"), nil, fx.registry)
	require.NoError(t, err)
	err = set.Populate(context.Background())
	assert.ErrorIs(t, err, setup.ErrNoSetup)
}

func TestNewSet_MalformedID(t *testing.T) {
	_, err := NewSet([]response.Document{{"id": "no-class"}}, nil, nil)
	assert.Error(t, err)
}

func TestFromResponse(t *testing.T) {
	fx := newFixture(t)
	resp := decodeFixture(t)
	set, err := FromResponse(resp, fx.registry)
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())

	first := set.Hits()[0]
	assert.Equal(t, "Post", first.ClassName())
	assert.Equal(t, "2", first.PrimaryKey())
	score, ok := first.Score()
	assert.True(t, ok)
	assert.InDelta(t, 1.5, score, 1e-9)

	title, err := first.Stored("title")
	require.NoError(t, err)
	assert.Equal(t, "Second", title)

	hits, err := first.Stored("hits")
	require.NoError(t, err)
	assert.Equal(t, int64(9000000000123), hits)

	tags, err := set.Hits()[1].Stored("tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, tags)

	absent, err := set.Hits()[1].Stored("title")
	require.NoError(t, err)
	assert.Nil(t, absent)

	stored, err := first.StoredValues()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Second", "hits": int64(9000000000123)}, stored)

	_, err = first.Stored("blog_id")
	assert.ErrorIs(t, err, field.ErrInvalidArgument, "not stored")
	_, err = first.Stored("nope")
	assert.ErrorIs(t, err, setup.ErrUnrecognizedField)
}

func TestHighlights(t *testing.T) {
	fx := newFixture(t)
	set, err := FromResponse(decodeFixture(t), fx.registry)
	require.NoError(t, err)

	h := set.Hits()[0]
	hl, ok := h.Highlight("body")
	require.True(t, ok, "matched by public field name")
	assert.Equal(t, "the <em>pet</em> shop", hl.String())
	assert.Equal(t, "the <b>pet</b> shop", hl.Format("<b>", "</b>"))
	assert.Equal(t, "the pet shop", hl.Text())
	assert.Len(t, h.Highlights(""), 1)
	assert.Empty(t, set.Hits()[1].Highlights("body"))
}

func TestHighlights_UnknownSetupStripsSuffix(t *testing.T) {
	set, err := NewSet(docs("Photo 1"), map[string]map[string][]string{
		"Photo 1": {"caption_text": {"@@@hl@@@x@@@endhl@@@"}},
	}, nil)
	require.NoError(t, err)
	hl, ok := set.Hits()[0].Highlight("caption")
	require.True(t, ok)
	assert.Equal(t, "<em>x</em>", hl.String())
}

func TestGroups(t *testing.T) {
	fx := newFixture(t)
	resp, err := response.DecodeBytes([]byte(`{"grouped":{"blog_id_i":{"matches":3,"ngroups":2,"groups":[
		{"groupValue":2,"doclist":{"numFound":2,"start":0,"docs":[{"id":"Post 2"},{"id":"Post 3"}]}},
		{"groupValue":null,"doclist":{"numFound":1,"start":0,"docs":[{"id":"Post 1"}]}}]}}}`))
	require.NoError(t, err)

	f := field.MustNew("blog_id", field.Integer)
	grouping, err := Groups(resp, f, fx.registry)
	require.NoError(t, err)
	require.NotNil(t, grouping)
	assert.Equal(t, 3, grouping.Matches)
	assert.Equal(t, 2, grouping.NGroups)
	require.Len(t, grouping.Groups, 2)
	assert.Equal(t, 2, grouping.Groups[0].Value)
	assert.Nil(t, grouping.Groups[1].Value)
	require.Len(t, grouping.Groups[0].Hits, 2)
	assert.Equal(t, "Post 3", grouping.Groups[0].Hits[1].ID())

	require.NoError(t, grouping.Set.Populate(context.Background()))
	assert.True(t, grouping.Groups[1].Hits[0].Loaded())

	none, err := Groups(resp, field.MustNew("other", field.Integer), fx.registry)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func decodeFixture(t *testing.T) *response.Response {
	t.Helper()
	resp, err := response.DecodeBytes([]byte(`{
		"response":{"numFound":3,"start":0,"docs":[
			{"id":"Post 2","title_ss":"Second","hits_ls":9000000000123,"score":1.5},
			{"id":"Post 1","tags_sms":["a","b"],"score":0.75},
			{"id":"Comment 9","score":0.5}]},
		"highlighting":{"Post 2":{"body_text":["the @@@hl@@@pet@@@endhl@@@ shop"]}}}`))
	require.NoError(t, err)
	return resp
}
