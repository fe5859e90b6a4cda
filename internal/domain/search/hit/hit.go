// Package hit maps Solr result documents to hits and materializes their
// instances in per-class batches, keeping the response order.
package hit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

// Setups resolves class setups by name. *setup.Registry satisfies it.
type Setups interface {
	Setup(className string) (*setup.Setup, error)
}

// Highlight is one highlighted snippet of a text field.
type Highlight struct {
	FieldName string
	raw       string
}

// Default highlight wrapper.
const (
	DefaultPre  = "<em>"
	DefaultPost = "</em>"
)

// Format replaces the highlight markers with pre and post. Both empty use
// <em></em>.
func (h Highlight) Format(pre, post string) string {
	if pre == "" && post == "" {
		pre, post = DefaultPre, DefaultPost
	}
	return strings.NewReplacer(params.HighlightPre, pre, params.HighlightPost, post).Replace(h.raw)
}

// Text returns the snippet without markers.
func (h Highlight) Text() string {
	return strings.NewReplacer(params.HighlightPre, "", params.HighlightPost, "").Replace(h.raw)
}

// String formats with the default wrapper.
func (h Highlight) String() string { return h.Format("", "") }

// Hit is one result document.
type Hit struct {
	id         string
	className  string
	primaryKey string
	score      float64
	hasScore   bool
	doc        response.Document
	highlights []Highlight
	setup      *setup.Setup

	instance any
	loaded   bool
}

func newHit(doc response.Document, hl map[string][]string, setups Setups) (*Hit, error) {
	id := doc.String(setup.KeyID)
	className, pk, ok := setup.ParseIndexID(id)
	if !ok {
		return nil, fmt.Errorf("malformed document id %q", id)
	}
	h := &Hit{id: id, className: className, primaryKey: pk, doc: doc}
	h.score, h.hasScore = doc.Score()
	if setups != nil {
		if st, err := setups.Setup(className); err == nil {
			h.setup = st
		}
	}

	keys := make([]string, 0, len(hl))
	for k := range hl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := h.fieldName(k)
		for _, frag := range hl[k] {
			h.highlights = append(h.highlights, Highlight{FieldName: name, raw: frag})
		}
	}
	return h, nil
}

// fieldName maps an indexed name back to the public field name.
func (h *Hit) fieldName(indexed string) string {
	if h.setup != nil {
		for _, f := range h.setup.Fields() {
			if f.IndexedName() == indexed {
				return f.Name()
			}
		}
	}
	if i := strings.LastIndexByte(indexed, '_'); i > 0 {
		return indexed[:i]
	}
	return indexed
}

// ID returns the "Class pk" document id.
func (h *Hit) ID() string { return h.id }

// ClassName returns the class of the hit.
func (h *Hit) ClassName() string { return h.className }

// PrimaryKey returns the primary key of the hit.
func (h *Hit) PrimaryKey() string { return h.primaryKey }

// Score returns the relevance score and whether the response carried one.
func (h *Hit) Score() (float64, bool) { return h.score, h.hasScore }

// Document returns the raw document.
func (h *Hit) Document() response.Document { return h.doc }

// Highlights returns the snippets of one field, or of every field for "".
func (h *Hit) Highlights(name string) []Highlight {
	if name == "" {
		return h.highlights
	}
	var out []Highlight
	for _, hl := range h.highlights {
		if hl.FieldName == name {
			out = append(out, hl)
		}
	}
	return out
}

// Highlight returns the first snippet of a field.
func (h *Hit) Highlight(name string) (Highlight, bool) {
	for _, hl := range h.highlights {
		if hl.FieldName == name {
			return hl, true
		}
	}
	return Highlight{}, false
}

// Stored returns the cast value of a stored field: a scalar, or []any for
// multi-valued fields. Absent values are nil.
func (h *Hit) Stored(name string) (any, error) {
	if h.setup == nil {
		return nil, fmt.Errorf("%w: %q", setup.ErrNoSetup, h.className)
	}
	f, err := h.setup.Field(name)
	if err != nil {
		if f, err = h.setup.TextField(name); err != nil {
			return nil, err
		}
	}
	if !f.Stored() {
		return nil, fmt.Errorf("%w: field %q of %s is not stored", field.ErrInvalidArgument, name, h.className)
	}
	raw, ok := h.doc[f.IndexedName()]
	if !ok || raw == nil {
		return nil, nil
	}
	if list, isList := raw.([]any); isList {
		out := make([]any, 0, len(list))
		for _, e := range list {
			v, err := f.Cast(response.Scalar(e))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		if f.Multiple() || f.IsText() {
			return out, nil
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out[0], nil
	}
	return f.Cast(response.Scalar(raw))
}

// StoredValues returns every stored field present on the document by
// public name. Hits of unregistered classes have none.
func (h *Hit) StoredValues() (map[string]any, error) {
	out := make(map[string]any)
	if h.setup == nil {
		return out, nil
	}
	for _, f := range h.setup.Fields() {
		if !f.Stored() {
			continue
		}
		v, err := h.Stored(f.Name())
		if err != nil {
			return nil, err
		}
		if v != nil {
			out[f.Name()] = v
		}
	}
	return out, nil
}

// Instance returns the loaded instance, or nil before population or when
// the data store no longer holds it.
func (h *Hit) Instance() any { return h.instance }

// Loaded reports whether population found the instance.
func (h *Hit) Loaded() bool { return h.loaded }
