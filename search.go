package solrq

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/solrq/internal/domain/search/hit"
	"github.com/kailas-cloud/solrq/internal/domain/search/paginate"
	searchuc "github.com/kailas-cloud/solrq/internal/usecase/search"
)

// PageMeta describes the page of a search.
type PageMeta = paginate.PageMeta

// Hit is a typed search result.
type Hit[T any] struct {
	ID    string
	Item  T
	Score float64
	// Highlights maps text field names to snippets wrapped in <em></em>.
	Highlights map[string][]string
}

// FacetRow is one value of a facet with its hit count.
type FacetRow struct {
	Value any
	Count int
}

// Results is one page of a typed search.
type Results[T any] struct {
	Hits     []Hit[T]
	NumFound int
	QTime    time.Duration
	Page     PageMeta
	Facets   map[string][]FacetRow
}

// newResults maps res onto T. Items come from the index loader or Redis
// when one is set, dropping hits whose item is gone; otherwise they are
// rebuilt from stored fields.
func newResults[T any](ctx context.Context, idx *TypedIndex[T], res *searchuc.Result) (*Results[T], error) {
	var (
		page *paginate.Collection[*hit.Hit]
		err  error
	)
	loaded := idx.setup.Accessor() != nil
	if loaded {
		page, err = res.VerifiedPage(ctx)
	} else {
		page, err = res.Page()
	}
	if err != nil {
		return nil, err
	}

	out := &Results[T]{
		Hits:     make([]Hit[T], 0, page.Len()),
		NumFound: res.NumFound(),
		QTime:    res.QTime(),
		Page:     page.PageMeta(),
	}
	for _, h := range page.Items() {
		item, err := idx.item(h, loaded)
		if err != nil {
			return nil, err
		}
		th := Hit[T]{ID: h.PrimaryKey(), Item: item}
		th.Score, _ = h.Score()
		for _, hl := range h.Highlights("") {
			if th.Highlights == nil {
				th.Highlights = make(map[string][]string)
			}
			th.Highlights[hl.FieldName] = append(th.Highlights[hl.FieldName], hl.String())
		}
		out.Hits = append(out.Hits, th)
	}

	for _, f := range res.Facets() {
		if out.Facets == nil {
			out.Facets = make(map[string][]FacetRow)
		}
		rows := make([]FacetRow, 0, len(f.Rows()))
		for _, r := range f.Rows() {
			rows = append(rows, FacetRow{Value: r.Value, Count: r.Count})
		}
		out.Facets[f.Name()] = rows
	}
	return out, nil
}

func (idx *TypedIndex[T]) item(h *hit.Hit, loaded bool) (T, error) {
	var zero T
	if loaded {
		item, ok := h.Instance().(T)
		if !ok {
			return zero, fmt.Errorf("hit %s: loaded %T, want %T", h.ID(), h.Instance(), zero)
		}
		return item, nil
	}
	stored, err := h.StoredValues()
	if err != nil {
		return zero, err
	}
	built, err := idx.meta.build(h.PrimaryKey(), stored)
	if err != nil {
		return zero, fmt.Errorf("hit %s: %w", h.ID(), err)
	}
	return built.(T), nil
}
