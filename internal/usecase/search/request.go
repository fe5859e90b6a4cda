package search

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/kailas-cloud/solrq/internal/domain/search/facet"
	"github.com/kailas-cloud/solrq/internal/domain/search/query"
)

// Request is the JSON form of a search. AnyOf holds a disjunction of
// equality restrictions.
type Request struct {
	Classes    []string        `json:"classes" yaml:"classes"`
	Keywords   string          `json:"keywords,omitempty" yaml:"keywords"`
	Fulltext   *Fulltext       `json:"fulltext,omitempty" yaml:"fulltext"`
	Conditions map[string]any  `json:"conditions,omitempty" yaml:"conditions"`
	With       map[string]any  `json:"with,omitempty" yaml:"with"`
	Without    map[string]any  `json:"without,omitempty" yaml:"without"`
	AnyOf      map[string]any  `json:"any_of,omitempty" yaml:"any_of"`
	Exclude    []Reference     `json:"exclude,omitempty" yaml:"exclude"`
	Tagged     []TaggedFilter  `json:"tagged,omitempty" yaml:"tagged"`
	Facets     []FacetRequest  `json:"facets,omitempty" yaml:"facets"`
	Sort       []SortRequest   `json:"sort,omitempty" yaml:"sort"`
	Radius     *RadiusRequest  `json:"radius,omitempty" yaml:"radius"`
	GroupBy    *GroupRequest   `json:"group_by,omitempty" yaml:"group_by"`
	Similar    *SimilarRequest `json:"more_like_this,omitempty" yaml:"more_like_this"`
	Page       int             `json:"page,omitempty" yaml:"page"`
	PerPage    int             `json:"per_page,omitempty" yaml:"per_page"`
}

// Fulltext tunes keyword search.
type Fulltext struct {
	Fields       map[string]float64 `json:"fields,omitempty" yaml:"fields"`
	PhraseFields map[string]float64 `json:"phrase_fields,omitempty" yaml:"phrase_fields"`
	PhraseSlop   *int               `json:"phrase_slop,omitempty" yaml:"phrase_slop"`
	MinimumMatch string             `json:"minimum_match,omitempty" yaml:"minimum_match"`
	Tie          *float64           `json:"tie,omitempty" yaml:"tie"`
	Highlight    *Highlight         `json:"highlight,omitempty" yaml:"highlight"`
}

// Highlight requests highlighted snippets.
type Highlight struct {
	Fields       []string `json:"fields,omitempty" yaml:"fields"`
	MaxSnippets  int      `json:"max_snippets,omitempty" yaml:"max_snippets"`
	FragmentSize *int     `json:"fragment_size,omitempty" yaml:"fragment_size"`
	Merge        bool     `json:"merge_contiguous_fragments,omitempty" yaml:"merge_contiguous_fragments"`
}

// Reference names one indexed instance.
type Reference struct {
	Class string `json:"class" yaml:"class"`
	ID    string `json:"id" yaml:"id"`
}

// TaggedFilter is an equality filter that facets can exclude by tag.
type TaggedFilter struct {
	Tag   string `json:"tag" yaml:"tag"`
	Field string `json:"field" yaml:"field"`
	Value any    `json:"value" yaml:"value"`
}

// FacetRequest describes one facet. Type is field (default), date, range,
// pivot or json; only field facets take Name, the others are named after
// their field. Date bounds are RFC 3339 with a gap like "+86400SECONDS";
// numeric range bounds and gap are decimal strings.
type FacetRequest struct {
	Name         string   `json:"name" yaml:"name"`
	Type         string   `json:"type,omitempty" yaml:"type"`
	Field        string   `json:"field,omitempty" yaml:"field"`
	Fields       []string `json:"fields,omitempty" yaml:"fields"`
	Sort         string   `json:"sort,omitempty" yaml:"sort"`
	Limit        int      `json:"limit,omitempty" yaml:"limit"`
	MinimumCount *int     `json:"minimum_count,omitempty" yaml:"minimum_count"`
	Offset       int      `json:"offset,omitempty" yaml:"offset"`
	Prefix       string   `json:"prefix,omitempty" yaml:"prefix"`
	Missing      bool     `json:"missing,omitempty" yaml:"missing"`
	Exclude      []string `json:"exclude,omitempty" yaml:"exclude"`
	Start        string   `json:"start,omitempty" yaml:"start"`
	End          string   `json:"end,omitempty" yaml:"end"`
	Gap          string   `json:"gap,omitempty" yaml:"gap"`
}

// SortRequest orders by a field, "score", "random" or "distance".
type SortRequest struct {
	Field     string  `json:"field" yaml:"field"`
	Direction string  `json:"direction,omitempty" yaml:"direction"`
	Seed      int64   `json:"seed,omitempty" yaml:"seed"`
	Location  string  `json:"location,omitempty" yaml:"location"`
	Lat       float64 `json:"lat,omitempty" yaml:"lat"`
	Lng       float64 `json:"lng,omitempty" yaml:"lng"`
}

// RadiusRequest restricts hits to a circle on a location field.
type RadiusRequest struct {
	Field string  `json:"field" yaml:"field"`
	Lat   float64 `json:"lat" yaml:"lat"`
	Lng   float64 `json:"lng" yaml:"lng"`
	Km    float64 `json:"km" yaml:"km"`
}

// GroupRequest collapses hits by a field.
type GroupRequest struct {
	Field string `json:"field" yaml:"field"`
	Limit int    `json:"limit,omitempty" yaml:"limit"`
}

// SimilarRequest asks for documents similar to one instance.
type SimilarRequest struct {
	Class  string   `json:"class" yaml:"class"`
	ID     string   `json:"id" yaml:"id"`
	Fields []string `json:"fields,omitempty" yaml:"fields"`
	MinTF  int      `json:"min_term_frequency,omitempty" yaml:"min_term_frequency"`
	MinDF  int      `json:"min_document_frequency,omitempty" yaml:"min_document_frequency"`
}

// Special sort names.
const (
	sortRandom   = "random"
	sortDistance = "distance"
)

// Build maps r onto a new query from s. The first invalid part is returned.
func (s *Service) Build(r *Request) (*query.Query, error) {
	q, err := s.NewQuery(r.Classes...)
	if err != nil {
		return nil, err
	}

	if r.Keywords != "" {
		q.Keywords(r.Keywords, r.Fulltext.options()...)
	}

	q.ApplyConditionMap(r.Conditions)
	for _, name := range sortedKeys(r.With) {
		q.With(name, r.With[name])
	}
	for _, name := range sortedKeys(r.Without) {
		q.Without(name, r.Without[name])
	}
	if len(r.AnyOf) > 0 {
		q.AnyOf(func(sc *query.Scope) {
			for _, name := range sortedKeys(r.AnyOf) {
				sc.With(name, r.AnyOf[name])
			}
		})
	}
	for _, ex := range r.Exclude {
		q.Exclude(ex.Class, ex.ID)
	}
	for _, tf := range r.Tagged {
		q.Tag(tf.Tag, func(sc *query.Scope) { sc.With(tf.Field, tf.Value) })
	}

	for i := range r.Facets {
		if err := addFacet(q, &r.Facets[i]); err != nil {
			return nil, err
		}
	}
	for _, so := range r.Sort {
		if err := addSort(q, so); err != nil {
			return nil, err
		}
	}

	if r.Radius != nil {
		q.InRadius(r.Radius.Field, r.Radius.Lat, r.Radius.Lng, r.Radius.Km)
	}
	if r.GroupBy != nil {
		q.GroupBy(r.GroupBy.Field, r.GroupBy.Limit)
	}
	if r.Similar != nil {
		var opts []query.MoreLikeThisOption
		if len(r.Similar.Fields) > 0 {
			opts = append(opts, query.SimilarFields(r.Similar.Fields...))
		}
		if r.Similar.MinTF > 0 {
			opts = append(opts, query.MinTermFrequency(r.Similar.MinTF))
		}
		if r.Similar.MinDF > 0 {
			opts = append(opts, query.MinDocumentFrequency(r.Similar.MinDF))
		}
		q.MoreLikeThis(r.Similar.Class, r.Similar.ID, opts...)
	}
	if r.Page > 0 || r.PerPage > 0 {
		page := r.Page
		if page == 0 {
			page = 1
		}
		q.Paginate(page, r.PerPage)
	}

	if err := q.Err(); err != nil {
		return nil, err
	}
	return q, nil
}

func (f *Fulltext) options() []query.FulltextOption {
	if f == nil {
		return nil
	}
	var opts []query.FulltextOption
	for _, name := range sortedKeys(f.Fields) {
		opts = append(opts, query.Field(name, f.Fields[name]))
	}
	for _, name := range sortedKeys(f.PhraseFields) {
		opts = append(opts, query.PhraseField(name, f.PhraseFields[name]))
	}
	if f.PhraseSlop != nil {
		opts = append(opts, query.PhraseSlop(*f.PhraseSlop))
	}
	if f.MinimumMatch != "" {
		opts = append(opts, query.MinimumMatch(f.MinimumMatch))
	}
	if f.Tie != nil {
		opts = append(opts, query.Tie(*f.Tie))
	}
	if h := f.Highlight; h != nil {
		var hl []query.HighlightOption
		if len(h.Fields) > 0 {
			hl = append(hl, query.HighlightFields(h.Fields...))
		}
		if h.MaxSnippets > 0 {
			hl = append(hl, query.MaxSnippets(h.MaxSnippets))
		}
		if h.FragmentSize != nil {
			hl = append(hl, query.FragmentSize(*h.FragmentSize))
		}
		if h.Merge {
			hl = append(hl, query.MergeContiguousFragments())
		}
		opts = append(opts, query.WithHighlight(hl...))
	}
	return opts
}

func (fr *FacetRequest) options() ([]facet.Option, error) {
	var opts []facet.Option
	if fr.Sort != "" {
		so, err := facet.ParseSort(fr.Sort)
		if err != nil {
			return nil, fmt.Errorf("%w: facet %s: %w", ErrInvalidRequest, fr.Name, err)
		}
		opts = append(opts, facet.SortBy(so))
	}
	if fr.Limit != 0 {
		opts = append(opts, facet.Limit(fr.Limit))
	}
	if fr.MinimumCount != nil {
		opts = append(opts, facet.MinimumCount(*fr.MinimumCount))
	}
	if fr.Offset > 0 {
		opts = append(opts, facet.Offset(fr.Offset))
	}
	if fr.Prefix != "" {
		opts = append(opts, facet.Prefix(fr.Prefix))
	}
	if fr.Missing {
		opts = append(opts, facet.Missing())
	}
	if len(fr.Exclude) > 0 {
		opts = append(opts, facet.Exclude(fr.Exclude...))
	}
	return opts, nil
}

func addFacet(q *query.Query, fr *FacetRequest) error {
	opts, err := fr.options()
	if err != nil {
		return err
	}
	name, fieldName := fr.Name, fr.Field
	if fieldName == "" {
		fieldName = name
	}
	if name == "" {
		name = fieldName
	}

	switch fr.Type {
	case "", string(facet.KindField):
		q.NamedFieldFacet(name, fieldName, opts...)
	case string(facet.KindDate):
		start, err := time.Parse(time.RFC3339, fr.Start)
		if err != nil {
			return fmt.Errorf("%w: facet %s start: %w", ErrInvalidRequest, name, err)
		}
		end, err := time.Parse(time.RFC3339, fr.End)
		if err != nil {
			return fmt.Errorf("%w: facet %s end: %w", ErrInvalidRequest, name, err)
		}
		gap, err := facet.ParseGap(fr.Gap)
		if err != nil {
			return fmt.Errorf("%w: facet %s: %w", ErrInvalidRequest, name, err)
		}
		q.DateFacet(fieldName, start, end, gap, opts...)
	case string(facet.KindRange):
		var bounds [3]float64
		for i, s := range []string{fr.Start, fr.End, fr.Gap} {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("%w: facet %s bound %q: %w", ErrInvalidRequest, name, s, err)
			}
			bounds[i] = v
		}
		q.RangeFacet(fieldName, bounds[0], bounds[1], bounds[2], opts...)
	case string(facet.KindPivot):
		q.PivotFacet(fr.Fields, opts...)
	case string(facet.KindJSON):
		q.JSONFacet(fieldName, opts...)
	default:
		return fmt.Errorf("%w: unknown facet type %q", ErrInvalidRequest, fr.Type)
	}
	return nil
}

func addSort(q *query.Query, so SortRequest) error {
	dir, err := query.ParseDirection(so.Direction)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	switch so.Field {
	case sortRandom:
		q.OrderByRandom(so.Seed)
	case sortDistance:
		q.OrderByDistance(so.Location, so.Lat, so.Lng, dir)
	default:
		q.OrderBy(so.Field, dir)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
