// Package response decodes Solr JSON responses (wt=json, json.nl=flat).
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Response is the decoded body of a select or mlt request.
type Response struct {
	Header       Header                         `json:"responseHeader"`
	Response     Documents                      `json:"response"`
	FacetCounts  *FacetCounts                   `json:"facet_counts,omitempty"`
	Facets       *JSONFacets                    `json:"facets,omitempty"`
	Highlighting map[string]map[string][]string `json:"highlighting,omitempty"`
	Grouped      map[string]Group               `json:"grouped,omitempty"`
	Match        *Documents                     `json:"match,omitempty"`
	Error        *Error                         `json:"error,omitempty"`
}

// Header is the responseHeader block.
type Header struct {
	Status int `json:"status"`
	QTime  int `json:"QTime"`
}

// Documents is a result list.
type Documents struct {
	NumFound int        `json:"numFound"`
	Start    int        `json:"start"`
	MaxScore float64    `json:"maxScore,omitempty"`
	Docs     []Document `json:"docs"`
}

// Document is one raw result document.
type Document map[string]any

// String returns the value under key as a string, "" if absent.
func (d Document) String(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return ""
		}
		v = list[0]
	}
	return Scalar(v)
}

// Strings returns every value under key as strings.
func (d Document) Strings(key string) []string {
	v, ok := d[key]
	if !ok || v == nil {
		return nil
	}
	if list, ok := v.([]any); ok {
		out := make([]string, 0, len(list))
		for _, e := range list {
			out = append(out, Scalar(e))
		}
		return out
	}
	return []string{Scalar(v)}
}

// Score returns the relevance score, if requested.
func (d Document) Score() (float64, bool) {
	v, ok := d["score"]
	if !ok {
		return 0, false
	}
	return Float(v)
}

// FacetCounts is the facet_counts block of the classic facet API.
type FacetCounts struct {
	FacetQueries map[string]any            `json:"facet_queries"`
	FacetFields  map[string][]any          `json:"facet_fields"`
	FacetDates   map[string]map[string]any `json:"facet_dates"`
	FacetRanges  map[string]RangeCounts    `json:"facet_ranges"`
	FacetPivot   map[string][]Pivot        `json:"facet_pivot"`
}

// QueryCount returns the count of a facet query and whether it was present.
func (f *FacetCounts) QueryCount(phrase string) (int, bool) {
	if f == nil {
		return 0, false
	}
	v, ok := f.FacetQueries[phrase]
	if !ok {
		return 0, false
	}
	return Int(v)
}

// RangeCounts is one facet_ranges entry.
type RangeCounts struct {
	Counts  []any `json:"counts"`
	Gap     any   `json:"gap"`
	Start   any   `json:"start"`
	End     any   `json:"end"`
	Before  any   `json:"before,omitempty"`
	After   any   `json:"after,omitempty"`
	Between any   `json:"between,omitempty"`
}

// Pivot is one node of a facet_pivot tree.
type Pivot struct {
	Field string  `json:"field"`
	Value any     `json:"value"`
	Count int     `json:"count"`
	Pivot []Pivot `json:"pivot,omitempty"`
}

// Group is one grouped field block.
type Group struct {
	Matches int          `json:"matches"`
	NGroups *int         `json:"ngroups,omitempty"`
	Groups  []GroupValue `json:"groups"`
}

// GroupValue is one group with its documents.
type GroupValue struct {
	GroupValue any       `json:"groupValue"`
	DocList    Documents `json:"doclist"`
}

// Error is the error block Solr returns with non-2xx statuses.
type Error struct {
	Msg      string `json:"msg"`
	Code     int    `json:"code"`
	Metadata []any  `json:"metadata,omitempty"`
}

// Decode reads a JSON response. Numbers keep their literal form.
func Decode(r io.Reader) (*Response, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var resp Response
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode solr response: %w", err)
	}
	return &resp, nil
}

// DecodeBytes decodes a response held in memory.
func DecodeBytes(b []byte) (*Response, error) {
	return Decode(bytes.NewReader(b))
}

// Scalar renders a decoded JSON scalar in wire form.
func Scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Int converts a decoded JSON number.
func Int(v any) (int, bool) {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(n), true
	case float64:
		return int(x), true
	case int:
		return x, true
	case int64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(x)
		return n, err == nil
	default:
		return 0, false
	}
}

// Float converts a decoded JSON number.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
