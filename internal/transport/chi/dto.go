package chi

import (
	"context"

	"github.com/kailas-cloud/solrq/internal/domain/search/facet"
	"github.com/kailas-cloud/solrq/internal/domain/search/hit"
	"github.com/kailas-cloud/solrq/internal/domain/search/paginate"
	searchuc "github.com/kailas-cloud/solrq/internal/usecase/search"
)

type searchResponse struct {
	NumFound   int               `json:"num_found"`
	QTimeMs    int64             `json:"qtime_ms"`
	Hits       []hitResponse     `json:"hits"`
	Pagination paginate.PageMeta `json:"pagination"`
	Facets     []facetResponse   `json:"facets,omitempty"`
	Groups     []groupResponse   `json:"groups,omitempty"`
}

type hitResponse struct {
	ID         string              `json:"id"`
	Class      string              `json:"class"`
	PrimaryKey string              `json:"primary_key"`
	Score      *float64            `json:"score,omitempty"`
	Stored     map[string]any      `json:"stored,omitempty"`
	Highlights map[string][]string `json:"highlights,omitempty"`
	Instance   any                 `json:"instance,omitempty"`
}

type facetResponse struct {
	Name string        `json:"name"`
	Kind facet.Kind    `json:"kind"`
	Rows []rowResponse `json:"rows"`
}

type rowResponse struct {
	Value     any                      `json:"value"`
	Count     int                      `json:"count"`
	Instance  any                      `json:"instance,omitempty"`
	Children  []rowResponse            `json:"children,omitempty"`
	SubFacets map[string][]rowResponse `json:"sub_facets,omitempty"`
}

type groupResponse struct {
	Value    any           `json:"value"`
	NumFound int           `json:"num_found"`
	Hits     []hitResponse `json:"hits"`
}

type windowValue struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type intervalValue struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

func (s *Server) searchResponse(ctx context.Context, res *searchuc.Result, populate bool) (*searchResponse, error) {
	var (
		page *paginate.Collection[*hit.Hit]
		err  error
	)
	if populate {
		page, err = res.VerifiedPage(ctx)
	} else {
		page, err = res.Page()
	}
	if err != nil {
		return nil, err
	}

	out := &searchResponse{
		NumFound:   res.NumFound(),
		QTimeMs:    res.QTime().Milliseconds(),
		Hits:       make([]hitResponse, 0, page.Len()),
		Pagination: page.PageMeta(),
	}
	for _, h := range page.Items() {
		hr, err := s.hitResponse(h, populate)
		if err != nil {
			return nil, err
		}
		out.Hits = append(out.Hits, hr)
	}

	if g := res.Grouping(); g != nil {
		for _, group := range g.Groups {
			gr := groupResponse{Value: group.Value, NumFound: group.NumFound, Hits: make([]hitResponse, 0, len(group.Hits))}
			for _, h := range group.Hits {
				if populate && !h.Loaded() {
					continue
				}
				hr, err := s.hitResponse(h, populate)
				if err != nil {
					return nil, err
				}
				gr.Hits = append(gr.Hits, hr)
			}
			out.Groups = append(out.Groups, gr)
		}
	}

	if populate {
		if err := res.PopulateFacets(ctx); err != nil {
			return nil, err
		}
	}
	for _, f := range res.Facets() {
		var instance instanceFunc
		if populate && f.HasInstances() {
			instance = f.Instance
		}
		rows, err := rowResponses(ctx, f.Rows(), instance)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []rowResponse{}
		}
		out.Facets = append(out.Facets, facetResponse{Name: f.Name(), Kind: f.Facet().Kind(), Rows: rows})
	}
	return out, nil
}

func (s *Server) hitResponse(h *hit.Hit, withInstance bool) (hitResponse, error) {
	hr := hitResponse{ID: h.ID(), Class: h.ClassName(), PrimaryKey: h.PrimaryKey()}
	if score, ok := h.Score(); ok {
		hr.Score = &score
	}
	stored, err := h.StoredValues()
	if err != nil {
		return hitResponse{}, err
	}
	if len(stored) > 0 {
		hr.Stored = stored
	}
	for _, hl := range h.Highlights("") {
		if hr.Highlights == nil {
			hr.Highlights = make(map[string][]string)
		}
		hr.Highlights[hl.FieldName] = append(hr.Highlights[hl.FieldName], hl.Format(s.highlightPre, s.highlightPost))
	}
	if withInstance {
		hr.Instance = h.Instance()
	}
	return hr, nil
}

func rowValue(v any) any {
	switch x := v.(type) {
	case facet.Window:
		return windowValue{Start: x.Start.UTC().Format(timeLayout), End: x.End.UTC().Format(timeLayout)}
	case facet.Interval:
		return intervalValue{From: x.From, To: x.To}
	}
	return v
}

const timeLayout = "2006-01-02T15:04:05Z"

// instanceFunc resolves the referenced instance of a facet row.
type instanceFunc func(ctx context.Context, row facet.Row) (any, error)

func rowResponses(ctx context.Context, rows []facet.Row, instance instanceFunc) ([]rowResponse, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]rowResponse, 0, len(rows))
	for _, row := range rows {
		children, err := rowResponses(ctx, row.Children, instance)
		if err != nil {
			return nil, err
		}
		subs, err := subFacetResponses(ctx, row.SubFacets, instance)
		if err != nil {
			return nil, err
		}
		rr := rowResponse{
			Value:     rowValue(row.Value),
			Count:     row.Count,
			Children:  children,
			SubFacets: subs,
		}
		if instance != nil && row.Reference != "" {
			if rr.Instance, err = instance(ctx, row); err != nil {
				return nil, err
			}
		}
		out = append(out, rr)
	}
	return out, nil
}

func subFacetResponses(ctx context.Context, sub map[string][]facet.Row, instance instanceFunc) (map[string][]rowResponse, error) {
	if len(sub) == 0 {
		return nil, nil
	}
	out := make(map[string][]rowResponse, len(sub))
	for name, rows := range sub {
		rr, err := rowResponses(ctx, rows, instance)
		if err != nil {
			return nil, err
		}
		out[name] = rr
	}
	return out, nil
}
