package params

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGet(t *testing.T) {
	p := Params{}
	p.Set(Query, "*:*")
	p.Add(FilterQuery, "type:Post")
	p.Add(FilterQuery, "title_s:a", "blog_id_i:2")

	assert.Equal(t, "*:*", p.Get(Query))
	assert.Equal(t, []string{"type:Post", "title_s:a", "blog_id_i:2"}, p.List(FilterQuery))
	assert.Equal(t, "type:Post", p.Get(FilterQuery))
	assert.Empty(t, p.Get("missing"))
	assert.Nil(t, p.List("missing"))

	p.Add(Query, "other")
	assert.Equal(t, []string{"*:*", "other"}, p.List(Query), "scalar promoted to list")
}

func TestMerge(t *testing.T) {
	a := Params{
		"fq":          []string{"type:Post"},
		"facet.field": []string{"blog_id_i"},
		"q":           "*:*",
		"json.facet":  Params{"tags": Params{"type": "terms", "field": "tags_sm"}},
	}
	b := Params{
		"fq":          []string{"title_s:a"},
		"facet.field": []string{"category_ids_im"},
		"q":           "pet",
		"json.facet":  Params{"tags": Params{"limit": 5}, "blogs": Params{"type": "terms"}},
	}

	merged := DeepMerge(a, b)
	assert.Equal(t, []string{"type:Post", "title_s:a"}, merged.List("fq"))
	assert.Equal(t, []string{"blog_id_i", "category_ids_im"}, merged.List("facet.field"))
	assert.Equal(t, "pet", merged.Get("q"))

	jf := merged.Map("json.facet")
	require.NotNil(t, jf)
	assert.Equal(t, Params{"type": "terms", "field": "tags_sm", "limit": 5}, jf.Map("tags"))
	assert.Contains(t, jf, "blogs")

	// inputs untouched
	assert.Equal(t, []string{"type:Post"}, a.List("fq"))
	assert.NotContains(t, a.Map("json.facet").Map("tags"), "limit")
}

func TestMerge_ScalarOverwritesList(t *testing.T) {
	p := Params{"fq": []string{"a"}}
	p.Merge(Params{"fq": "b"})
	assert.Equal(t, "b", p["fq"])
}

func TestCanonical(t *testing.T) {
	p := Params{
		"rows":       "30",
		"fq":         []string{"type:Post", "blog_id_i:2"},
		"q":          "*:*",
		"json.facet": Params{"b": 1, "a": "x"},
	}
	want := "fq=type:Post\n" +
		"fq=blog_id_i:2\n" +
		"json.facet={\"a\":\"x\",\"b\":1}\n" +
		"q=*:*\n" +
		"rows=30\n"
	assert.Equal(t, want, p.Canonical())
}

func TestUnmarshalJSON(t *testing.T) {
	var p Params
	err := json.Unmarshal([]byte(`{"q":"*:*","fq":["a","b"],"rows":10,"json.facet":{"t":{"type":"terms","limit":3}}}`), &p)
	require.NoError(t, err)

	assert.Equal(t, "*:*", p.Get("q"))
	assert.Equal(t, []string{"a", "b"}, p.List("fq"))
	assert.Equal(t, "10", p.Get("rows"))
	assert.Equal(t, float64(3), p.Map("json.facet").Map("t")["limit"])
}

func TestClone(t *testing.T) {
	p := Params{"fq": []string{"a"}, "m": Params{"k": "v"}}
	c := p.Clone()
	c.Add("fq", "b")
	c.Map("m")["k"] = "changed"
	assert.Equal(t, []string{"a"}, p.List("fq"))
	assert.Equal(t, "v", p.Map("m")["k"])
}
