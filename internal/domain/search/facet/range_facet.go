package facet

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
)

// Window is the time span of one date facet row: [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Interval is the numeric span of one range facet row: [From, To).
type Interval struct {
	From float64
	To   float64
}

var gapPattern = regexp.MustCompile(`^\+(\d+)SECONDS$`)

// FormatGap renders a duration as a "+<N>SECONDS" gap token.
func FormatGap(d time.Duration) string {
	return "+" + strconv.FormatInt(int64(d/time.Second), 10) + "SECONDS"
}

// ParseGap parses a "+<N>SECONDS" gap token.
func ParseGap(s string) (time.Duration, error) {
	m := gapPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: unsupported gap %q", field.ErrInvalidArgument, s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: gap %q: %w", field.ErrInvalidArgument, s, err)
	}
	return time.Duration(n) * time.Second, nil
}

// RangeFacet counts documents per fixed-width range of a date or numeric
// field.
type RangeFacet struct {
	name  string
	field field.Field
	kind  Kind
	start string
	end   string
	gap   string
	span  time.Duration
	step  float64
	opts  Options
}

// NewDateFacet buckets a time/date field into gap-wide windows between
// start and end. The gap must be a whole number of seconds.
func NewDateFacet(name string, f field.Field, start, end time.Time, gap time.Duration, opts ...Option) (*RangeFacet, error) {
	if name == "" {
		name = f.Name()
	}
	if f.FieldType() != field.Time && f.FieldType() != field.Date {
		return nil, fmt.Errorf("%w: date facet on %s field %q", field.ErrInvalidArgument, f.FieldType(), f.Name())
	}
	if gap < time.Second {
		return nil, fmt.Errorf("%w: date facet gap must be at least one second", field.ErrInvalidArgument)
	}
	if gap%time.Second != 0 {
		return nil, fmt.Errorf("%w: date facet gap %s is not a whole number of seconds", field.ErrInvalidArgument, gap)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: date facet end must be after start", field.ErrInvalidArgument)
	}
	o := newOptions(opts)
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("facet %s: %w", name, err)
	}
	from, to, err := bounds(f, start, end)
	if err != nil {
		return nil, fmt.Errorf("facet %s: %w", name, err)
	}
	return &RangeFacet{
		name: name, field: f, kind: KindDate,
		start: from, end: to, gap: FormatGap(gap), span: gap, opts: o,
	}, nil
}

// NewRangeFacet buckets a numeric field into gap-wide intervals. Integer
// and long fields take whole-number bounds and gap.
func NewRangeFacet(name string, f field.Field, start, end, gap float64, opts ...Option) (*RangeFacet, error) {
	if name == "" {
		name = f.Name()
	}
	integral := false
	switch f.FieldType() {
	case field.Integer, field.Long:
		integral = true
	case field.Float, field.Double:
	default:
		return nil, fmt.Errorf("%w: range facet on %s field %q", field.ErrInvalidArgument, f.FieldType(), f.Name())
	}
	for _, v := range []float64{start, end, gap} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: range facet bound %v is not finite", field.ErrInvalidArgument, v)
		}
		if integral && v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: range facet on %s field %q needs whole numbers, got %v",
				field.ErrInvalidArgument, f.FieldType(), f.Name(), v)
		}
	}
	if gap <= 0 {
		return nil, fmt.Errorf("%w: range facet gap must be positive", field.ErrInvalidArgument)
	}
	if end <= start {
		return nil, fmt.Errorf("%w: range facet end must be above start", field.ErrInvalidArgument)
	}
	o := newOptions(opts)
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("facet %s: %w", name, err)
	}
	from, to, err := bounds(f, start, end)
	if err != nil {
		return nil, fmt.Errorf("facet %s: %w", name, err)
	}
	gapStr := field.FormatFloat(gap, 64)
	if integral {
		gapStr = strconv.FormatInt(int64(gap), 10)
	}
	return &RangeFacet{
		name: name, field: f, kind: KindRange,
		start: from, end: to, gap: gapStr, step: gap, opts: o,
	}, nil
}

// bounds renders start and end in the field's wire form.
func bounds(f field.Field, start, end any) (string, string, error) {
	from, err := f.ToIndexed(start)
	if err != nil {
		return "", "", fmt.Errorf("range start: %w", err)
	}
	to, err := f.ToIndexed(end)
	if err != nil {
		return "", "", fmt.Errorf("range end: %w", err)
	}
	return from, to, nil
}

// Name implements Facet.
func (f *RangeFacet) Name() string { return f.name }

// Kind implements Facet.
func (f *RangeFacet) Kind() Kind { return f.kind }

// Reference implements Facet.
func (f *RangeFacet) Reference() string { return "" }

func (f *RangeFacet) key() string {
	if f.name != f.field.Name() {
		return f.name
	}
	return ""
}

func (f *RangeFacet) responseKey() string {
	if k := f.key(); k != "" {
		return k
	}
	return f.field.IndexedName()
}

// Params implements Facet. Bounds and gap travel in the facet's local
// params.
func (f *RangeFacet) Params() params.Params {
	settings := []setting{
		{"facet.range.start", f.start},
		{"facet.range.end", f.end},
		{"facet.range.gap", f.gap},
		{"facet.mincount", itoa(f.opts.minCount())},
	}
	p := params.Params{"facet": "true"}
	p.Add("facet.range", localParams(f.key(), f.opts.Exclude, settings...)+f.field.IndexedName())
	return p
}

// Rows implements Facet. Rows come back chronologically (ascending range
// start) unless count sort was requested.
func (f *RangeFacet) Rows(resp *response.Response) ([]Row, error) {
	if resp == nil || resp.FacetCounts == nil {
		return nil, nil
	}
	if rc, ok := resp.FacetCounts.FacetRanges[f.responseKey()]; ok {
		return f.rowsFromPairs(rc.Counts, rc.Gap)
	}
	// facet.date responses carry value→count entries plus metadata keys
	if legacy, ok := resp.FacetCounts.FacetDates[f.responseKey()]; ok {
		var pairs []any
		keys := make([]string, 0, len(legacy))
		for k := range legacy {
			switch k {
			case "gap", "start", "end", "before", "after", "between":
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pairs = append(pairs, k, legacy[k])
		}
		return f.rowsFromPairs(pairs, legacy["gap"])
	}
	return nil, nil
}

func (f *RangeFacet) rowsFromPairs(pairs []any, respGap any) ([]Row, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("facet %s: odd value/count list", f.name)
	}
	span := f.span
	if g, ok := respGap.(string); ok && f.kind == KindDate {
		if d, err := ParseGap(g); err == nil {
			span = d
		}
	}

	rows := make([]Row, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		count, ok := response.Int(pairs[i+1])
		if !ok {
			return nil, fmt.Errorf("facet %s: bad count %v", f.name, pairs[i+1])
		}
		key := response.Scalar(pairs[i])
		row := Row{Key: key, Count: count}
		if f.kind == KindDate {
			start, err := time.Parse(time.RFC3339Nano, key)
			if err != nil {
				return nil, fmt.Errorf("facet %s: range start %q: %w", f.name, key, err)
			}
			row.Value = Window{Start: start.UTC(), End: start.UTC().Add(span)}
		} else {
			from, err := strconv.ParseFloat(key, 64)
			if err != nil {
				return nil, fmt.Errorf("facet %s: range start %q: %w", f.name, key, err)
			}
			row.Value = Interval{From: from, To: from + f.step}
		}
		rows = append(rows, row)
	}

	rows = filterRows(rows, f.opts.minCount())
	if f.opts.Sort == SortCount {
		sortByCount(rows)
	} else {
		sort.SliceStable(rows, func(i, j int) bool { return startsBefore(rows[i], rows[j]) })
	}
	return truncate(rows, f.opts.Limit), nil
}

func startsBefore(a, b Row) bool {
	switch av := a.Value.(type) {
	case Window:
		if bv, ok := b.Value.(Window); ok {
			return av.Start.Before(bv.Start)
		}
	case Interval:
		if bv, ok := b.Value.(Interval); ok {
			return av.From < bv.From
		}
	}
	return false
}

func (*RangeFacet) isFacet() {}
