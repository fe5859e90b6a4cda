package facet

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/solrq/internal/domain/search/lazy"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
)

// Loader loads referenced instances by primary key; missing keys are
// omitted. *setup.Setup satisfies it.
type Loader interface {
	LoadByIDs(ctx context.Context, ids []string) (map[string]any, error)
}

// Loaders returns the loader of a referenced class, or nil when the class
// cannot be loaded.
type Loaders func(class string) Loader

type classInstances struct {
	resolver *lazy.Resolver[string, any]
	handle   lazy.Handle
}

// Result holds the rows extracted for one facet. Referenced instances of
// every row, nested pivot and sub-facet rows included, load together per
// class on first access.
type Result struct {
	facet     Facet
	rows      []Row
	instances map[string]*classInstances
}

// Extract reads f's rows from resp. loaders may be nil when no instances
// are wanted.
func Extract(f Facet, resp *response.Response, loaders Loaders) (*Result, error) {
	rows, err := f.Rows(resp)
	if err != nil {
		return nil, err
	}
	r := &Result{facet: f, rows: rows}
	if loaders == nil {
		return r, nil
	}
	keys := make(map[string][]string)
	collectKeys(rows, keys)
	classes := make([]string, 0, len(keys))
	for class := range keys {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		loader := loaders(class)
		if loader == nil {
			continue
		}
		res := lazy.New(func(ctx context.Context, ids []string) (map[string]any, error) {
			return loader.LoadByIDs(ctx, ids)
		})
		if r.instances == nil {
			r.instances = make(map[string]*classInstances)
		}
		r.instances[class] = &classInstances{resolver: res, handle: res.Request(keys[class])}
	}
	return r, nil
}

// collectKeys gathers row keys per referenced class, depth first.
func collectKeys(rows []Row, into map[string][]string) {
	for _, row := range rows {
		if row.Reference != "" && row.Key != "" {
			into[row.Reference] = append(into[row.Reference], row.Key)
		}
		collectKeys(row.Children, into)
		names := make([]string, 0, len(row.SubFacets))
		for name := range row.SubFacets {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			collectKeys(row.SubFacets[name], into)
		}
	}
}

// Name returns the facet name.
func (r *Result) Name() string { return r.facet.Name() }

// Facet returns the requested facet.
func (r *Result) Facet() Facet { return r.facet }

// Rows returns the rows after count, sort and limit policies.
func (r *Result) Rows() []Row { return r.rows }

// HasInstances reports whether rows can resolve to referenced instances.
func (r *Result) HasInstances() bool { return len(r.instances) > 0 }

// Instance returns the referenced instance for row, which may be a nested
// pivot or sub-facet row. It is nil when the row has no reference or the
// instance no longer exists.
func (r *Result) Instance(ctx context.Context, row Row) (any, error) {
	ci, ok := r.instances[row.Reference]
	if !ok || row.Reference == "" {
		return nil, nil
	}
	loaded, err := ci.resolver.Resolve(ctx, ci.handle)
	if err != nil {
		return nil, fmt.Errorf("facet %s instances of %s: %w", r.facet.Name(), row.Reference, err)
	}
	return loaded[row.Key], nil
}

// Load resolves the referenced instances of every class, one batch each.
func (r *Result) Load(ctx context.Context) error {
	for class, ci := range r.instances {
		if _, err := ci.resolver.Resolve(ctx, ci.handle); err != nil {
			return fmt.Errorf("facet %s instances of %s: %w", r.facet.Name(), class, err)
		}
	}
	return nil
}

// Instances returns one entry per top-level row, nil where no instance was
// found.
func (r *Result) Instances(ctx context.Context) ([]any, error) {
	out := make([]any, len(r.rows))
	if !r.HasInstances() {
		return out, nil
	}
	for i, row := range r.rows {
		inst, err := r.Instance(ctx, row)
		if err != nil {
			return nil, err
		}
		out[i] = inst
	}
	return out, nil
}

// Unresolved counts rows at any depth whose referenced instance was not
// found. It resolves the instances if they are not loaded yet.
func (r *Result) Unresolved(ctx context.Context) (int, error) {
	if !r.HasInstances() {
		return 0, nil
	}
	return r.unresolved(ctx, r.rows)
}

func (r *Result) unresolved(ctx context.Context, rows []Row) (int, error) {
	n := 0
	for _, row := range rows {
		if _, ok := r.instances[row.Reference]; ok && row.Key != "" {
			inst, err := r.Instance(ctx, row)
			if err != nil {
				return 0, err
			}
			if inst == nil {
				n++
			}
		}
		nested, err := r.unresolved(ctx, row.Children)
		if err != nil {
			return 0, err
		}
		n += nested
		for _, sub := range row.SubFacets {
			nested, err := r.unresolved(ctx, sub)
			if err != nil {
				return 0, err
			}
			n += nested
		}
	}
	return n, nil
}
