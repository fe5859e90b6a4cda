package solrq

import (
	"strings"
	"testing"
	"time"
)

type post struct {
	ID          int       `solr:"id,id"`
	Title       string    `solr:"title,string,stored"`
	Body        string    `solr:"body,text,boost=2"`
	BlogID      int       `solr:"blog_id,integer,stored,ref=Blog"`
	CategoryIDs []int     `solr:"category_ids,integer,multiple"`
	PublishedAt time.Time `solr:"published_at,time"`
	Location    Point     `solr:"location,location"`
	Draft       string
}

type noIDDoc struct {
	Title string `solr:"title,string"`
}

func TestParseSchema(t *testing.T) {
	meta, err := parseSchema[post]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.idIdx != 0 {
		t.Errorf("idIdx = %d, want 0", meta.idIdx)
	}
	if len(meta.fields) != 6 {
		t.Fatalf("fields = %d, want 6", len(meta.fields))
	}
	want := []string{"title_ss", "body_text", "blog_id_is", "category_ids_im", "published_at_d", "location_ll"}
	for i, fm := range meta.fields {
		if got := fm.field.IndexedName(); got != want[i] {
			t.Errorf("field %d indexed name = %q, want %q", i, got, want[i])
		}
	}
	if meta.fields[1].field.Boost() != 2 {
		t.Errorf("body boost = %v, want 2", meta.fields[1].field.Boost())
	}
	if meta.fields[2].field.Reference() != "Blog" {
		t.Errorf("blog_id reference = %q", meta.fields[2].field.Reference())
	}
}

func TestParseSchema_Pointer(t *testing.T) {
	meta, err := parseSchema[*post]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !meta.ptr {
		t.Error("expected ptr")
	}
}

func TestParseSchema_Errors(t *testing.T) {
	type badType struct {
		ID string `solr:"id,id"`
		X  string `solr:"x,blob"`
	}
	type dupID struct {
		A string `solr:"a,id"`
		B string `solr:"b,id"`
	}
	type sliceNotMultiple struct {
		ID   string   `solr:"id,id"`
		Tags []string `solr:"tags,string"`
	}
	type multipleNotSlice struct {
		ID  string `solr:"id,id"`
		Tag string `solr:"tag,string,multiple"`
	}
	type badModifier struct {
		ID  string `solr:"id,id"`
		Tag string `solr:"tag,string,sorted"`
	}
	type missingType struct {
		ID  string `solr:"id,id"`
		Tag string `solr:"tag"`
	}

	tests := []struct {
		name  string
		parse func() error
		want  string
	}{
		{"no id", func() error { _, err := parseSchema[noIDDoc](); return err }, "no field"},
		{"non struct", func() error { _, err := parseSchema[int](); return err }, "not a struct"},
		{"unknown type", func() error { _, err := parseSchema[badType](); return err }, "blob"},
		{"duplicate id", func() error { _, err := parseSchema[dupID](); return err }, "duplicate id"},
		{"slice without multiple", func() error { _, err := parseSchema[sliceNotMultiple](); return err }, "multiple modifier"},
		{"multiple without slice", func() error { _, err := parseSchema[multipleNotSlice](); return err }, "slice type"},
		{"unknown modifier", func() error { _, err := parseSchema[badModifier](); return err }, "sorted"},
		{"missing type", func() error { _, err := parseSchema[missingType](); return err }, "missing type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.parse()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func samplePost() post {
	return post{
		ID:          7,
		Title:       "Hello",
		Body:        "the pet shop",
		BlogID:      2,
		CategoryIDs: []int{3, 14},
		PublishedAt: time.Date(2009, 7, 1, 12, 30, 0, 0, time.UTC),
		Location:    Point{Lat: 32.7, Lng: -117.1},
	}
}

func TestSetup_Document(t *testing.T) {
	meta, err := parseSchema[post]()
	if err != nil {
		t.Fatal(err)
	}
	st, err := meta.setup("Post", nil)
	if err != nil {
		t.Fatal(err)
	}

	doc, err := st.Document(samplePost())
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if doc.ID != "Post 7" {
		t.Errorf("id = %q, want %q", doc.ID, "Post 7")
	}
	if got := doc.Fields["category_ids_im"]; len(got) != 2 || got[0] != "3" || got[1] != "14" {
		t.Errorf("category_ids_im = %v", got)
	}
	if got := doc.Fields["published_at_d"]; len(got) != 1 || got[0] != "2009-07-01T12:30:00Z" {
		t.Errorf("published_at_d = %v", got)
	}

	// pointers resolve the same way
	p := samplePost()
	if _, err := st.Document(&p); err != nil {
		t.Errorf("document of pointer: %v", err)
	}
	if _, err := st.Document(noIDDoc{}); err == nil {
		t.Error("expected error for foreign type")
	}
}

func TestRecord_RoundTrip(t *testing.T) {
	meta, err := parseSchema[post]()
	if err != nil {
		t.Fatal(err)
	}
	in := samplePost()
	in.Draft = "not indexed"

	rec, err := meta.toRecord("Post", in)
	if err != nil {
		t.Fatalf("toRecord: %v", err)
	}
	if rec.ID != "7" || rec.Class != "Post" {
		t.Errorf("record identity = %s %s", rec.Class, rec.ID)
	}
	if rec.Fields["category_ids"] != `["3","14"]` {
		t.Errorf("category_ids = %v", rec.Fields["category_ids"])
	}

	out, err := meta.fromRecord(rec)
	if err != nil {
		t.Fatalf("fromRecord: %v", err)
	}
	got := out.(post)
	want := samplePost()
	if got.ID != want.ID || got.Title != want.Title || got.Body != want.Body || got.BlogID != want.BlogID {
		t.Errorf("scalars = %+v", got)
	}
	if len(got.CategoryIDs) != 2 || got.CategoryIDs[1] != 14 {
		t.Errorf("category ids = %v", got.CategoryIDs)
	}
	if !got.PublishedAt.Equal(want.PublishedAt) {
		t.Errorf("published at = %v", got.PublishedAt)
	}
	if got.Location != want.Location {
		t.Errorf("location = %v", got.Location)
	}
	if got.Draft != "" {
		t.Errorf("untagged field restored: %q", got.Draft)
	}
}

func TestBuild_ConvertsStoredValues(t *testing.T) {
	meta, err := parseSchema[*post]()
	if err != nil {
		t.Fatal(err)
	}
	out, err := meta.build("9", map[string]any{
		"title":   "Stored",
		"blog_id": int64(4),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	p := out.(*post)
	if p.ID != 9 || p.Title != "Stored" || p.BlogID != 4 {
		t.Errorf("built = %+v", p)
	}

	if _, err := meta.build("x", nil); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestStructAdapter(t *testing.T) {
	meta, err := parseSchema[post]()
	if err != nil {
		t.Fatal(err)
	}
	pk, err := structAdapter{meta: meta}.PrimaryKey(post{ID: 12})
	if err != nil || pk != "12" {
		t.Errorf("pk = %q, %v", pk, err)
	}
	var nilPost *post
	if _, err := (structAdapter{meta: meta}).PrimaryKey(nilPost); err == nil {
		t.Error("expected error for nil pointer")
	}
}
