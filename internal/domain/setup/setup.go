package setup

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/solrq/internal/domain/field"
)

// InstanceAdapter resolves the primary key of a domain instance.
type InstanceAdapter interface {
	PrimaryKey(obj any) (string, error)
}

// DataAccessor loads domain instances by primary key. Missing ids are
// omitted from the result; order is not significant.
type DataAccessor interface {
	LoadAll(ctx context.Context, ids []string) ([]any, error)
}

// Extractor reads the raw value of one field from a domain instance.
type Extractor func(obj any) (any, error)

// IndexID is the composite document identifier "<ClassName> <pk>".
func IndexID(className, pk string) string {
	return className + " " + pk
}

// ParseIndexID splits a composite document identifier.
func ParseIndexID(id string) (className, pk string, ok bool) {
	className, pk, ok = strings.Cut(id, " ")
	if !ok || className == "" || pk == "" {
		return "", "", false
	}
	return className, pk, true
}

// Setup holds the search configuration of one class.
type Setup struct {
	className  string
	parent     *Setup
	fields     map[string]field.Field
	extractors map[string]Extractor
	adapter    InstanceAdapter
	accessor   DataAccessor
}

// ClassName returns the configured class.
func (s *Setup) ClassName() string { return s.className }

// Parent returns the parent setup, or nil.
func (s *Setup) Parent() *Setup { return s.parent }

// Types lists the class followed by its ancestors. Documents are indexed
// under every entry so a search for a parent class matches subclasses.
func (s *Setup) Types() []string {
	var out []string
	for cur := s; cur != nil; cur = cur.parent {
		out = append(out, cur.className)
	}
	return out
}

// Fields returns own and inherited fields sorted by name. A field declared
// again on the subclass replaces the inherited one.
func (s *Setup) Fields() []field.Field {
	all := s.fieldMap()
	names := make([]string, 0, len(all))
	for n := range all {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]field.Field, 0, len(names))
	for _, n := range names {
		out = append(out, all[n])
	}
	return out
}

func (s *Setup) fieldMap() map[string]field.Field {
	out := make(map[string]field.Field)
	if s.parent != nil {
		for k, v := range s.parent.fieldMap() {
			out[k] = v
		}
	}
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// Field looks up a non-text field by name.
func (s *Setup) Field(name string) (field.Field, error) {
	if f, ok := s.fieldMap()[name]; ok && !f.IsText() {
		return f, nil
	}
	return field.Field{}, &UnrecognizedFieldError{Field: name, Classes: []string{s.className}}
}

// TextField looks up a fulltext field by name.
func (s *Setup) TextField(name string) (field.Field, error) {
	if f, ok := s.fieldMap()[name]; ok && f.IsText() {
		return f, nil
	}
	return field.Field{}, &UnrecognizedFieldError{Field: name, Classes: []string{s.className}}
}

func (s *Setup) extractor(name string) Extractor {
	for cur := s; cur != nil; cur = cur.parent {
		if ex, ok := cur.extractors[name]; ok {
			return ex
		}
	}
	return defaultExtractor(name)
}

// Adapter returns the identity adapter of the class or its nearest ancestor.
func (s *Setup) Adapter() InstanceAdapter {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.adapter != nil {
			return cur.adapter
		}
	}
	return RecordAdapter{}
}

// Accessor returns the data accessor of the class or its nearest ancestor.
func (s *Setup) Accessor() DataAccessor {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.accessor != nil {
			return cur.accessor
		}
	}
	return nil
}

// IndexID returns the composite document id for obj.
func (s *Setup) IndexID(obj any) (string, error) {
	pk, err := s.Adapter().PrimaryKey(obj)
	if err != nil {
		return "", fmt.Errorf("primary key of %s: %w", s.className, err)
	}
	return IndexID(s.className, pk), nil
}

// LoadByIDs loads instances through the class accessor and keys them by
// primary key. Ids the accessor does not return are absent from the map.
func (s *Setup) LoadByIDs(ctx context.Context, ids []string) (map[string]any, error) {
	acc := s.Accessor()
	if acc == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoAccessor, s.className)
	}
	if len(ids) == 0 {
		return map[string]any{}, nil
	}
	objs, err := acc.LoadAll(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.className, err)
	}
	adapter := s.Adapter()
	out := make(map[string]any, len(objs))
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		pk, err := adapter.PrimaryKey(obj)
		if err != nil {
			return nil, fmt.Errorf("primary key of loaded %s: %w", s.className, err)
		}
		out[pk] = obj
	}
	return out, nil
}
