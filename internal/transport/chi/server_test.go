package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
	"github.com/kailas-cloud/solrq/internal/transport/solr"
	healthuc "github.com/kailas-cloud/solrq/internal/usecase/health"
	searchuc "github.com/kailas-cloud/solrq/internal/usecase/search"
)

// --- Mocks ---

type mockSolr struct {
	body       string
	err        error
	pingErr    error
	lastParams params.Params
}

func (m *mockSolr) Query(_ context.Context, _ string, p params.Params) (*response.Response, error) {
	m.lastParams = p
	if m.err != nil {
		return nil, m.err
	}
	return response.DecodeBytes([]byte(m.body))
}

func (m *mockSolr) Ping(_ context.Context) error { return m.pingErr }

type mockAccessor struct {
	class string
	ids   map[string]bool
}

func (m *mockAccessor) LoadAll(_ context.Context, ids []string) ([]any, error) {
	var out []any
	for _, id := range ids {
		if m.ids[id] {
			out = append(out, &setup.Record{Class: m.class, ID: id, Fields: map[string]any{"id": id}})
		}
	}
	return out, nil
}

const selectBody = `{"responseHeader":{"status":0,"QTime":7},
	"response":{"numFound":3,"start":0,"docs":[
		{"id":"Post 1","title_ss":"Hello","score":2.5},{"id":"Post 9","score":1.0}]},
	"highlighting":{"Post 1":{"body_text":["a @@@hl@@@cat@@@endhl@@@ sat"]}},
	"facet_counts":{"facet_fields":{"blogs":["2",3,"5",1]}}}`

func newTestServer(t *testing.T, sol *mockSolr) http.Handler {
	t.Helper()
	reg := setup.NewRegistry()
	reg.Register(setup.NewBuilder("Post").
		String("title", field.Stored()).
		Integer("blog_id", field.Reference("Blog")).
		Text("body").
		Accessor(&mockAccessor{class: "Post", ids: map[string]bool{"1": true}}).
		MustBuild())
	reg.Register(setup.NewBuilder("Blog").
		String("name").
		Accessor(&mockAccessor{class: "Blog", ids: map[string]bool{"2": true}}).
		MustBuild())

	srv := NewServer(
		searchuc.New(sol, reg),
		healthuc.New(sol, nil),
		zap.NewNop(),
		WithHighlightWrapper("[", "]"),
	)
	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

// --- Tests ---

func TestSearch_OK(t *testing.T) {
	sol := &mockSolr{body: selectBody}
	h := newTestServer(t, sol)

	rr := post(t, h, "/search", `{"classes":["Post"],"keywords":"cat","with":{"blog_id":2},
		"facets":[{"name":"blogs","field":"blog_id"}],"per_page":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.NumFound != 3 || resp.QTimeMs != 7 {
		t.Errorf("num_found/qtime: got %d/%d", resp.NumFound, resp.QTimeMs)
	}
	if len(resp.Hits) != 2 {
		t.Fatalf("hits: got %d, want 2", len(resp.Hits))
	}
	first := resp.Hits[0]
	if first.Class != "Post" || first.PrimaryKey != "1" {
		t.Errorf("first hit: got %s %s", first.Class, first.PrimaryKey)
	}
	if first.Score == nil || *first.Score != 2.5 {
		t.Errorf("score: got %v", first.Score)
	}
	if first.Stored["title"] != "Hello" {
		t.Errorf("stored title: got %v", first.Stored["title"])
	}
	if got := first.Highlights["body"]; len(got) != 1 || got[0] != "a [cat] sat" {
		t.Errorf("highlights: got %v", got)
	}
	if first.Instance != nil {
		t.Errorf("instance without populate: got %v", first.Instance)
	}
	if resp.Pagination.TotalPages != 2 || resp.Pagination.NextPage != 2 {
		t.Errorf("pagination: got %+v", resp.Pagination)
	}
	if len(resp.Facets) != 1 || len(resp.Facets[0].Rows) != 2 {
		t.Fatalf("facets: got %+v", resp.Facets)
	}
	if fq := sol.lastParams.List("fq"); len(fq) != 2 || fq[1] != "blog_id_i:2" {
		t.Errorf("fq: got %v", fq)
	}
}

func TestSearch_Populate(t *testing.T) {
	h := newTestServer(t, &mockSolr{body: selectBody})

	rr := post(t, h, "/search", `{"classes":["Post"],"facets":[{"name":"blogs","field":"blog_id"}],"populate":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}
	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].PrimaryKey != "1" {
		t.Fatalf("verified hits: got %+v", resp.Hits)
	}
	if resp.Hits[0].Instance == nil {
		t.Error("expected instance on verified hit")
	}
	if len(resp.Facets) != 1 || len(resp.Facets[0].Rows) != 2 {
		t.Fatalf("facets: got %+v", resp.Facets)
	}
	rows := resp.Facets[0].Rows
	if rows[0].Instance == nil {
		t.Error("expected Blog 2 instance on first facet row")
	}
	if rows[1].Instance != nil {
		t.Errorf("Blog 5 is gone, got %v", rows[1].Instance)
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		solrErr  error
		body     string
		wantCode int
		wantErr  ErrorCode
	}{
		{"malformed body", nil, `{`, http.StatusBadRequest, CodeBadRequest},
		{"no classes", nil, `{}`, http.StatusBadRequest, CodeValidationFailed},
		{"unknown class", nil, `{"classes":["Photo"]}`, http.StatusNotFound, CodeUnknownClass},
		{"unknown field", nil, `{"classes":["Post"],"with":{"color":"red"}}`, http.StatusBadRequest, CodeUnrecognizedField},
		{"solr rejects", &solr.Error{Op: "query", Status: 400, Msg: "undefined field"},
			`{"classes":["Post"]}`, http.StatusBadGateway, CodeSolrRejected},
		{"solr down", &solr.Error{Op: "query", Err: errors.New("connection refused")},
			`{"classes":["Post"]}`, http.StatusServiceUnavailable, CodeSolrUnavailable},
		{"unexpected", errors.New("boom"), `{"classes":["Post"]}`, http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &mockSolr{body: selectBody, err: tt.solrErr})
			rr := post(t, h, "/search", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d (%s)", rr.Code, tt.wantCode, rr.Body.String())
			}
			if got := decodeError(t, rr); got.Code != tt.wantErr {
				t.Errorf("code: got %q, want %q", got.Code, tt.wantErr)
			}
		})
	}
}

func TestSearchParams(t *testing.T) {
	sol := &mockSolr{body: selectBody}
	h := newTestServer(t, sol)

	rr := post(t, h, "/search/params", `{"classes":["Post"],"with":{"title":"Hello"},"page":2,"per_page":10}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}
	var resp paramsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Handler != "select" {
		t.Errorf("handler: got %q", resp.Handler)
	}
	if got := resp.Params["start"]; len(got) != 1 || got[0] != "10" {
		t.Errorf("start: got %v", got)
	}
	if got := resp.Params["fq"]; len(got) != 2 || got[0] != "type:Post" || got[1] != "title_ss:Hello" {
		t.Errorf("fq: got %v", got)
	}
	if !strings.Contains(resp.Canonical, "fq=title_ss:Hello") {
		t.Errorf("canonical: got %q", resp.Canonical)
	}
	if sol.lastParams != nil {
		t.Error("params endpoint must not query Solr")
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name     string
		pingErr  error
		wantCode int
		want     string
	}{
		{"healthy", nil, http.StatusOK, "ok"},
		{"solr down", errors.New("refused"), http.StatusServiceUnavailable, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &mockSolr{pingErr: tt.pingErr})
			req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.wantCode)
			}
			var resp healthResponse
			if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.want {
				t.Errorf("status: got %q, want %q", resp.Status, tt.want)
			}
			if _, ok := resp.Checks["solr"]; !ok {
				t.Error("expected solr check")
			}
		})
	}
}
