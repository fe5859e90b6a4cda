// Package params holds the flat wire-parameter map sent to a Solr handler.
package params

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Params maps parameter names to a string, a []string or a nested Params.
// Nested maps travel JSON-encoded (json.facet).
type Params map[string]any

// Common parameter keys.
const (
	Query        = "q"
	FilterQuery  = "fq"
	Start        = "start"
	Rows         = "rows"
	Sort         = "sort"
	FieldList    = "fl"
	DefType      = "defType"
	QueryFields  = "qf"
	JSONFacet    = "json.facet"
	MatchAllDocs = "*:*"
)

// Highlight markers requested from Solr; hits rewrite them into the
// caller's wrapper.
const (
	HighlightPre  = "@@@hl@@@"
	HighlightPost = "@@@endhl@@@"
)

// Set replaces key with a single value.
func (p Params) Set(key, value string) {
	p[key] = value
}

// Add appends values to the list under key. A scalar already under key
// becomes the first list element.
func (p Params) Add(key string, values ...string) {
	switch cur := p[key].(type) {
	case []string:
		p[key] = append(cur, values...)
	case string:
		p[key] = append([]string{cur}, values...)
	default:
		p[key] = append([]string(nil), values...)
	}
}

// SetMap stores a nested map under key.
func (p Params) SetMap(key string, m Params) {
	p[key] = m
}

// Get returns the scalar under key, or the first list element.
func (p Params) Get(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// List returns every value under key.
func (p Params) List(key string) []string {
	switch v := p[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	}
	return nil
}

// Map returns the nested map under key, or nil.
func (p Params) Map(key string) Params {
	if m, ok := p[key].(Params); ok {
		return m
	}
	return nil
}

// Has reports whether key is set.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Clone returns a deep copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	case Params:
		return x.Clone()
	default:
		return v
	}
}

// Merge deep-merges src into p: lists concatenate, nested maps merge
// recursively, anything else is overwritten by src.
func (p Params) Merge(src Params) Params {
	for k, v := range src {
		cur, ok := p[k]
		if !ok {
			p[k] = cloneValue(v)
			continue
		}
		switch sv := v.(type) {
		case []string:
			if cl, isList := cur.([]string); isList {
				p[k] = append(append([]string(nil), cl...), sv...)
				continue
			}
		case Params:
			if cm, isMap := cur.(Params); isMap {
				p[k] = cm.Clone().Merge(sv)
				continue
			}
		}
		p[k] = cloneValue(v)
	}
	return p
}

// DeepMerge merges every fragment into a new map, left to right.
func DeepMerge(fragments ...Params) Params {
	out := make(Params)
	for _, f := range fragments {
		out.Merge(f)
	}
	return out
}

// Values encodes the map for an HTTP form body.
func (p Params) Values() (url.Values, error) {
	out := make(url.Values, len(p))
	for k, v := range p {
		switch x := v.(type) {
		case string:
			out.Set(k, x)
		case []string:
			for _, s := range x {
				out.Add(k, s)
			}
		case Params:
			b, err := json.Marshal(x)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", k, err)
			}
			out.Set(k, string(b))
		default:
			out.Set(k, fmt.Sprint(x))
		}
	}
	return out, nil
}

// Canonical renders one "key=value" line per value, keys sorted and list
// order preserved. Two equal parameter maps render identically.
func (p Params) Canonical() string {
	values, err := p.Values()
	if err != nil {
		return "error: " + err.Error()
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// UnmarshalJSON accepts strings, string lists and nested objects.
func (p *Params) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Params, len(raw))
	for k, v := range raw {
		out[k] = fromJSON(v)
	}
	*p = out
	return nil
}

func fromJSON(v any) any {
	switch x := v.(type) {
	case []any:
		list := make([]string, 0, len(x))
		for _, e := range x {
			list = append(list, fmt.Sprint(e))
		}
		return list
	case map[string]any:
		return nestedFromJSON(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// nested maps keep their JSON scalars as decoded
func nestedFromJSON(m map[string]any) Params {
	out := make(Params, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = nestedFromJSON(sub)
			continue
		}
		out[k] = v
	}
	return out
}
