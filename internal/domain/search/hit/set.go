package hit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/solrq/internal/domain/search/lazy"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
)

// maxConcurrentLoads bounds the per-class loads running at once.
const maxConcurrentLoads = 4

// Set is the hits of one response. Instances load on the first call to
// Populate, one batch per class, and are cached for the Set's lifetime.
type Set struct {
	hits     []*Hit
	setups   Setups
	resolver *lazy.Resolver[string, any]
	handle   lazy.Handle

	mu       sync.Mutex
	assigned bool
}

// NewSet builds hits from docs in response order. highlighting is keyed by
// document id and may be nil.
func NewSet(docs []response.Document, highlighting map[string]map[string][]string, setups Setups) (*Set, error) {
	s := &Set{setups: setups, hits: make([]*Hit, 0, len(docs))}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id := doc.String("id")
		h, err := newHit(doc, highlighting[id], setups)
		if err != nil {
			return nil, err
		}
		s.hits = append(s.hits, h)
		ids = append(ids, h.id)
	}
	s.resolver = lazy.New(s.load)
	s.handle = s.resolver.Request(ids)
	return s, nil
}

// FromResponse builds the hits of a select or mlt response.
func FromResponse(resp *response.Response, setups Setups) (*Set, error) {
	docs := resp.Response.Docs
	if resp.Match != nil && len(docs) == 0 {
		docs = resp.Match.Docs
	}
	return NewSet(docs, resp.Highlighting, setups)
}

// Hits returns every hit in response order.
func (s *Set) Hits() []*Hit { return s.hits }

// Len returns the number of hits.
func (s *Set) Len() int { return len(s.hits) }

// load groups index ids by class and loads each class in one batch.
func (s *Set) load(ctx context.Context, ids []string) (map[string]any, error) {
	byClass := make(map[string][]string)
	var classes []string
	for _, h := range s.hits {
		if _, seen := byClass[h.className]; !seen {
			classes = append(classes, h.className)
		}
		byClass[h.className] = append(byClass[h.className], h.primaryKey)
	}

	var mu sync.Mutex
	out := make(map[string]any, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for _, class := range classes {
		pks := byClass[class]
		g.Go(func() error {
			st, err := s.setups.Setup(class)
			if err != nil {
				return err
			}
			loaded, err := st.LoadByIDs(gctx, pks)
			if err != nil {
				return err
			}
			mu.Lock()
			for pk, obj := range loaded {
				out[class+" "+pk] = obj
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("populate hits: %w", err)
	}
	return out, nil
}

// Populate loads the instances of every hit. Hits whose instance is not
// found keep a nil instance.
func (s *Set) Populate(ctx context.Context) error {
	if s.setups == nil {
		return fmt.Errorf("populate hits: no setups")
	}
	loaded, err := s.resolver.Resolve(ctx, s.handle)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assigned {
		return nil
	}
	for _, h := range s.hits {
		if obj, ok := loaded[h.id]; ok {
			h.instance, h.loaded = obj, true
		}
	}
	s.assigned = true
	return nil
}

// VerifiedHits returns the hits whose instance loaded, in response order.
func (s *Set) VerifiedHits(ctx context.Context) ([]*Hit, error) {
	if err := s.Populate(ctx); err != nil {
		return nil, err
	}
	out := make([]*Hit, 0, len(s.hits))
	for _, h := range s.hits {
		if h.loaded {
			out = append(out, h)
		}
	}
	return out, nil
}

// Results returns the loaded instances in response order.
func (s *Set) Results(ctx context.Context) ([]any, error) {
	hits, err := s.VerifiedHits(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.instance)
	}
	return out, nil
}

// Unresolved counts, per class, hits whose instance was not found.
func (s *Set) Unresolved(ctx context.Context) (map[string]int, error) {
	if err := s.Populate(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, h := range s.hits {
		if !h.loaded {
			out[h.className]++
		}
	}
	return out, nil
}
