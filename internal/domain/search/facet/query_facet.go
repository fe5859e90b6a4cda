package facet

import (
	"fmt"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
	"github.com/kailas-cloud/solrq/internal/domain/search/scope"
)

type queryRow struct {
	label  any
	phrase string
}

// QueryFacet counts documents per registered label→condition pair.
type QueryFacet struct {
	name string
	rows []queryRow
	opts Options
}

// NewQueryFacet creates an empty query facet; rows are added with AddRow.
func NewQueryFacet(name string, opts ...Option) (*QueryFacet, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: query facet needs a name", field.ErrInvalidArgument)
	}
	o := newOptions(opts)
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("facet %s: %w", name, err)
	}
	return &QueryFacet{name: name, opts: o}, nil
}

// AddRow registers a row whose count is the number of documents matching c.
func (f *QueryFacet) AddRow(label any, c scope.Component) error {
	phrase := c.BooleanPhrase()
	if phrase == "" {
		return fmt.Errorf("%w: query facet %s row %v has no conditions", field.ErrInvalidArgument, f.name, label)
	}
	f.rows = append(f.rows, queryRow{label: label, phrase: phrase})
	return nil
}

// Len returns the number of registered rows.
func (f *QueryFacet) Len() int { return len(f.rows) }

// Name implements Facet.
func (f *QueryFacet) Name() string { return f.name }

// Kind implements Facet.
func (f *QueryFacet) Kind() Kind { return KindQuery }

// Reference implements Facet.
func (f *QueryFacet) Reference() string { return "" }

func (f *QueryFacet) requestPhrase(r queryRow) string {
	return localParams("", f.opts.Exclude) + r.phrase
}

// Params implements Facet.
func (f *QueryFacet) Params() params.Params {
	p := params.Params{"facet": "true"}
	for _, r := range f.rows {
		p.Add("facet.query", f.requestPhrase(r))
	}
	return p
}

// Rows implements Facet. A row whose phrase is absent from the response is
// dropped; a row present with count 0 is subject to the minimum count.
func (f *QueryFacet) Rows(resp *response.Response) ([]Row, error) {
	if resp == nil || resp.FacetCounts == nil {
		return nil, nil
	}
	rows := make([]Row, 0, len(f.rows))
	for _, r := range f.rows {
		count, ok := resp.FacetCounts.QueryCount(f.requestPhrase(r))
		if !ok {
			continue
		}
		rows = append(rows, Row{Value: r.label, Key: r.phrase, Count: count})
	}

	return applyPolicy(rows, f.opts), nil
}

func (*QueryFacet) isFacet() {}
