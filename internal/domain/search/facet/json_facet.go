package facet

import (
	"fmt"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
)

// JSONFacet is a terms facet of the JSON facet API, optionally with nested
// sub-facets evaluated per bucket.
type JSONFacet struct {
	name  string
	field field.Field
	opts  Options
	subs  []*JSONFacet
}

// NewJSONFacet creates a terms facet over f.
func NewJSONFacet(name string, f field.Field, opts ...Option) (*JSONFacet, error) {
	if name == "" {
		name = f.Name()
	}
	o := newOptions(opts)
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("facet %s: %w", name, err)
	}
	return &JSONFacet{name: name, field: f, opts: o}, nil
}

// Nest adds a sub-facet computed within each bucket.
func (f *JSONFacet) Nest(sub *JSONFacet) *JSONFacet {
	f.subs = append(f.subs, sub)
	return f
}

// Name implements Facet.
func (f *JSONFacet) Name() string { return f.name }

// Kind implements Facet.
func (f *JSONFacet) Kind() Kind { return KindJSON }

// Reference implements Facet.
func (f *JSONFacet) Reference() string { return f.field.Reference() }

func (f *JSONFacet) definition() params.Params {
	def := params.Params{
		"type":     "terms",
		"field":    f.field.IndexedName(),
		"mincount": f.opts.minCount(),
	}
	if f.opts.Limit > 0 {
		def["limit"] = f.opts.Limit
	}
	if f.opts.Offset > 0 {
		def["offset"] = f.opts.Offset
	}
	switch f.opts.Sort {
	case SortCount:
		def["sort"] = "count desc"
	case SortIndex:
		def["sort"] = "index asc"
	}
	if f.opts.Prefix != "" {
		def["prefix"] = f.opts.Prefix
	}
	if f.opts.Missing {
		def["missing"] = true
	}
	if len(f.opts.Exclude) > 0 {
		def["domain"] = params.Params{"excludeTags": append([]string(nil), f.opts.Exclude...)}
	}
	if len(f.subs) > 0 {
		nested := params.Params{}
		for _, s := range f.subs {
			nested[s.name] = s.definition()
		}
		def["facet"] = nested
	}
	return def
}

// Params implements Facet.
func (f *JSONFacet) Params() params.Params {
	return params.Params{params.JSONFacet: params.Params{f.name: f.definition()}}
}

// Rows implements Facet.
func (f *JSONFacet) Rows(resp *response.Response) ([]Row, error) {
	if resp == nil || resp.Facets == nil {
		return nil, nil
	}
	list, ok := resp.Facets.Facets[f.name]
	if !ok {
		return nil, nil
	}
	return f.rows(list.Buckets)
}

func (f *JSONFacet) rows(buckets []response.Bucket) ([]Row, error) {
	rows := make([]Row, 0, len(buckets))
	for _, b := range buckets {
		v, key, err := castValue(f.field, b.Val)
		if err != nil {
			return nil, err
		}
		row := Row{Value: v, Key: key, Reference: f.field.Reference(), Count: b.Count}
		for _, sub := range f.subs {
			nested, ok := b.Facets[sub.name]
			if !ok {
				continue
			}
			subRows, err := sub.rows(nested.Buckets)
			if err != nil {
				return nil, err
			}
			if row.SubFacets == nil {
				row.SubFacets = make(map[string][]Row)
			}
			row.SubFacets[sub.name] = subRows
		}
		rows = append(rows, row)
	}
	return applyPolicy(rows, f.opts), nil
}

func (*JSONFacet) isFacet() {}
