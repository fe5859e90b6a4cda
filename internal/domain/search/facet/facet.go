// Package facet builds facet request parameters and turns facet response
// blocks into ordered, filtered rows.
package facet

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
)

// Kind tags a facet variant.
type Kind string

// Facet kinds.
const (
	KindField Kind = "field"
	KindDate  Kind = "date"
	KindRange Kind = "range"
	KindQuery Kind = "query"
	KindPivot Kind = "pivot"
	KindJSON  Kind = "json"
)

// Facet is one requested facet. Implementations: *FieldFacet, *RangeFacet,
// *QueryFacet, *PivotFacet, *JSONFacet.
type Facet interface {
	Name() string
	Kind() Kind
	// Params returns the request fragment; fragments of several facets are
	// deep-merged.
	Params() params.Params
	// Rows extracts the facet's rows from a response.
	Rows(resp *response.Response) ([]Row, error)
	// Reference names the class whose instances row values identify, or "".
	Reference() string
	isFacet()
}

// Row is one facet value with its count. Value is the cast value: a Go
// value of the field type, a Window for date facets, an Interval for
// numeric range facets, the label for query facets.
type Row struct {
	Value any
	// Key is the wire form of the value; reference instances are keyed by it.
	Key string
	// Reference names the class Key identifies, or "".
	Reference string
	Count     int
	// Children holds the next pivot level.
	Children []Row
	// SubFacets holds nested JSON facet rows by name.
	SubFacets map[string][]Row
}

// Sort is a facet row ordering.
type Sort string

// Row orderings. SortNone keeps the response order.
const (
	SortNone  Sort = ""
	SortCount Sort = "count"
	SortIndex Sort = "index"
)

// ParseSort resolves a sort name as written by callers.
func ParseSort(s string) (Sort, error) {
	switch Sort(s) {
	case SortNone, SortCount, SortIndex:
		return Sort(s), nil
	default:
		return "", fmt.Errorf("%w: unknown facet sort %q", field.ErrInvalidArgument, s)
	}
}

// Options are the row policies shared by facet kinds.
type Options struct {
	Sort         Sort
	Limit        int
	MinimumCount *int
	Offset       int
	Prefix       string
	Missing      bool
	Exclude      []string
}

// Option configures Options.
type Option func(*Options)

// SortBy sets the row ordering.
func SortBy(s Sort) Option { return func(o *Options) { o.Sort = s } }

// Limit keeps at most n rows after sorting; 0 keeps all.
func Limit(n int) Option { return func(o *Options) { o.Limit = n } }

// MinimumCount drops rows with a lower count. The default is 1.
func MinimumCount(n int) Option { return func(o *Options) { o.MinimumCount = &n } }

// Zeros keeps zero-count rows (minimum count 0).
func Zeros() Option { return MinimumCount(0) }

// Offset skips the first n rows server-side.
func Offset(n int) Option { return func(o *Options) { o.Offset = n } }

// Prefix restricts field facet values to a prefix.
func Prefix(p string) Option { return func(o *Options) { o.Prefix = p } }

// Missing adds a row counting documents without a value.
func Missing() Option { return func(o *Options) { o.Missing = true } }

// Exclude ignores the filters tagged with tags when counting.
func Exclude(tags ...string) Option {
	return func(o *Options) { o.Exclude = append(o.Exclude, tags...) }
}

func newOptions(opts []Option) Options {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (o Options) minCount() int {
	if o.MinimumCount == nil {
		return 1
	}
	return *o.MinimumCount
}

func (o Options) validate() error {
	if o.Limit < 0 {
		return fmt.Errorf("%w: negative facet limit %d", field.ErrInvalidArgument, o.Limit)
	}
	if o.Offset < 0 {
		return fmt.Errorf("%w: negative facet offset %d", field.ErrInvalidArgument, o.Offset)
	}
	if o.MinimumCount != nil && *o.MinimumCount < 0 {
		return fmt.Errorf("%w: negative minimum count", field.ErrInvalidArgument)
	}
	_, err := ParseSort(string(o.Sort))
	return err
}

// setting is one facet parameter carried inside a facet's local params,
// so facets over the same field never share settings.
type setting struct {
	name  string
	value string
}

// localParams renders "{!ex=a,b key=k facet.limit=3}" or "" when nothing
// is needed.
func localParams(key string, exclude []string, settings ...setting) string {
	var parts []string
	if len(exclude) > 0 {
		parts = append(parts, "ex="+strings.Join(exclude, ","))
	}
	if key != "" {
		parts = append(parts, "key="+localValue(key))
	}
	for _, s := range settings {
		parts = append(parts, s.name+"="+localValue(s.value))
	}
	if len(parts) == 0 {
		return ""
	}
	return "{!" + strings.Join(parts, " ") + "}"
}

// localValue single-quotes values the local params parser would split.
func localValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\}\t") {
		return v
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

// optionSettings renders the server-side row policies of o.
func optionSettings(o Options) []setting {
	var s []setting
	if o.Sort != SortNone {
		s = append(s, setting{"facet.sort", string(o.Sort)})
	}
	if o.Limit > 0 {
		s = append(s, setting{"facet.limit", itoa(o.Limit)})
	}
	s = append(s, setting{"facet.mincount", itoa(o.minCount())})
	if o.Offset > 0 {
		s = append(s, setting{"facet.offset", itoa(o.Offset)})
	}
	if o.Prefix != "" {
		s = append(s, setting{"facet.prefix", o.Prefix})
	}
	if o.Missing {
		s = append(s, setting{"facet.missing", "true"})
	}
	return s
}

// filterRows drops rows under the minimum count.
func filterRows(rows []Row, minCount int) []Row {
	out := rows[:0:0]
	for _, r := range rows {
		if r.Count >= minCount {
			out = append(out, r)
		}
	}
	return out
}

func sortByCount(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
}

func sortByValue(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool { return field.Compare(rows[i].Value, rows[j].Value) < 0 })
}

func truncate(rows []Row, limit int) []Row {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// applyPolicy filters, sorts and limits rows: count descending, index by
// ascending value, otherwise response order.
func applyPolicy(rows []Row, o Options) []Row {
	rows = filterRows(rows, o.minCount())
	switch o.Sort {
	case SortCount:
		sortByCount(rows)
	case SortIndex:
		sortByValue(rows)
	}
	return truncate(rows, o.Limit)
}

func castValue(f field.Field, raw any) (any, string, error) {
	if raw == nil {
		return nil, "", nil
	}
	key := response.Scalar(raw)
	v, err := f.Cast(key)
	if err != nil {
		return nil, "", fmt.Errorf("facet value of %s: %w", f.Name(), err)
	}
	return v, key, nil
}

func itoa(n int) string { return strconv.Itoa(n) }
