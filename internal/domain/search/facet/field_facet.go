package facet

import (
	"fmt"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
)

// FieldFacet counts documents per distinct field value.
type FieldFacet struct {
	name  string
	field field.Field
	opts  Options
}

// NewFieldFacet creates a field facet. An empty name uses the field name.
func NewFieldFacet(name string, f field.Field, opts ...Option) (*FieldFacet, error) {
	if name == "" {
		name = f.Name()
	}
	o := newOptions(opts)
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("facet %s: %w", name, err)
	}
	return &FieldFacet{name: name, field: f, opts: o}, nil
}

// Name implements Facet.
func (f *FieldFacet) Name() string { return f.name }

// Kind implements Facet.
func (f *FieldFacet) Kind() Kind { return KindField }

// Field returns the faceted field.
func (f *FieldFacet) Field() field.Field { return f.field }

// Reference implements Facet.
func (f *FieldFacet) Reference() string { return f.field.Reference() }

func (f *FieldFacet) responseKey() string {
	if f.name != f.field.Name() {
		return f.name
	}
	return f.field.IndexedName()
}

func (f *FieldFacet) key() string {
	if f.name != f.field.Name() {
		return f.name
	}
	return ""
}

// Params implements Facet. Row policies travel in the facet's local params.
func (f *FieldFacet) Params() params.Params {
	p := params.Params{"facet": "true"}
	p.Add("facet.field", localParams(f.key(), f.opts.Exclude, optionSettings(f.opts)...)+f.field.IndexedName())
	return p
}

// Rows implements Facet. The response holds alternating value/count pairs.
func (f *FieldFacet) Rows(resp *response.Response) ([]Row, error) {
	if resp == nil || resp.FacetCounts == nil {
		return nil, nil
	}
	pairs := resp.FacetCounts.FacetFields[f.responseKey()]
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("facet %s: odd value/count list", f.name)
	}
	rows := make([]Row, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		count, ok := response.Int(pairs[i+1])
		if !ok {
			return nil, fmt.Errorf("facet %s: bad count %v", f.name, pairs[i+1])
		}
		v, key, err := castValue(f.field, pairs[i])
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{Value: v, Key: key, Reference: f.field.Reference(), Count: count})
	}
	return applyPolicy(rows, f.opts), nil
}

func (*FieldFacet) isFacet() {}
