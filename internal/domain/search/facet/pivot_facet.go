package facet

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
)

// PivotFacet counts documents per value path across several fields.
type PivotFacet struct {
	name   string
	fields []field.Field
	opts   Options
}

// NewPivotFacet creates a pivot over at least two fields, outermost first.
func NewPivotFacet(name string, fields []field.Field, opts ...Option) (*PivotFacet, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: pivot facet needs at least two fields", field.ErrInvalidArgument)
	}
	if name == "" {
		names := make([]string, 0, len(fields))
		for _, f := range fields {
			names = append(names, f.Name())
		}
		name = strings.Join(names, ",")
	}
	o := newOptions(opts)
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("facet %s: %w", name, err)
	}
	return &PivotFacet{name: name, fields: fields, opts: o}, nil
}

// Name implements Facet.
func (f *PivotFacet) Name() string { return f.name }

// Kind implements Facet.
func (f *PivotFacet) Kind() Kind { return KindPivot }

// Reference implements Facet. It is the outermost field's reference; deeper
// rows carry their own.
func (f *PivotFacet) Reference() string { return f.fields[0].Reference() }

// Params implements Facet. The response is keyed by the facet name; limit
// and sort apply at every level.
func (f *PivotFacet) Params() params.Params {
	idx := make([]string, 0, len(f.fields))
	for _, fl := range f.fields {
		idx = append(idx, fl.IndexedName())
	}
	var s []setting
	if f.opts.Sort != SortNone {
		s = append(s, setting{"facet.sort", string(f.opts.Sort)})
	}
	if f.opts.Limit > 0 {
		s = append(s, setting{"facet.limit", itoa(f.opts.Limit)})
	}
	s = append(s, setting{"facet.pivot.mincount", itoa(f.opts.minCount())})
	p := params.Params{"facet": "true"}
	p.Add("facet.pivot", localParams(f.name, f.opts.Exclude, s...)+strings.Join(idx, ","))
	return p
}

// Rows implements Facet. Policies apply at every level of the tree.
func (f *PivotFacet) Rows(resp *response.Response) ([]Row, error) {
	if resp == nil || resp.FacetCounts == nil {
		return nil, nil
	}
	return f.level(resp.FacetCounts.FacetPivot[f.name], 0)
}

func (f *PivotFacet) level(nodes []response.Pivot, depth int) ([]Row, error) {
	if len(nodes) == 0 || depth >= len(f.fields) {
		return nil, nil
	}
	fl := f.fields[depth]
	rows := make([]Row, 0, len(nodes))
	for _, n := range nodes {
		if n.Field != "" && n.Field != fl.IndexedName() {
			return nil, fmt.Errorf("facet %s: pivot level %d is %q, want %q", f.name, depth, n.Field, fl.IndexedName())
		}
		v, key, err := castValue(fl, n.Value)
		if err != nil {
			return nil, err
		}
		children, err := f.level(n.Pivot, depth+1)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{Value: v, Key: key, Reference: fl.Reference(), Count: n.Count, Children: children})
	}
	return applyPolicy(rows, f.opts), nil
}

func (*PivotFacet) isFacet() {}
