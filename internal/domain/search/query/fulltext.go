package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/scope"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

type boostedField struct {
	field field.Field
	boost float64
}

func (b boostedField) String() string {
	if b.boost == 0 {
		return b.field.IndexedName()
	}
	return b.field.IndexedName() + "^" + field.FormatFloat(b.boost, 64)
}

func joinBoosted(fields []boostedField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, " ")
}

// Fulltext is an edismax relevance query.
type Fulltext struct {
	keywords        string
	fields          []boostedField
	phraseFields    []boostedField
	phraseSlop      *int
	queryPhraseSlop *int
	tie             *float64
	minimumMatch    string
	boostQueries    []string
	boostFunctions  []string
	highlight       *Highlight
}

// Keywords returns the user query string.
func (ft *Fulltext) Keywords() string { return ft.keywords }

// Highlight returns the highlighting request, or nil.
func (ft *Fulltext) Highlight() *Highlight { return ft.highlight }

// FulltextOption configures a fulltext query. Field names resolve against
// the searched classes' text fields.
type FulltextOption func(ft *Fulltext, c *setup.CompositeSetup) error

// Field searches the named text field with boost (0 for none). Without
// any Field option every text field is searched with its configured boost.
func Field(name string, boost float64) FulltextOption {
	return func(ft *Fulltext, c *setup.CompositeSetup) error {
		f, err := c.TextField(name)
		if err != nil {
			return err
		}
		ft.fields = append(ft.fields, boostedField{field: f, boost: boost})
		return nil
	}
}

// PhraseField boosts documents where all keywords appear close together in
// the named text field.
func PhraseField(name string, boost float64) FulltextOption {
	return func(ft *Fulltext, c *setup.CompositeSetup) error {
		f, err := c.TextField(name)
		if err != nil {
			return err
		}
		ft.phraseFields = append(ft.phraseFields, boostedField{field: f, boost: boost})
		return nil
	}
}

// PhraseSlop sets the slop of phrase field matching.
func PhraseSlop(n int) FulltextOption {
	return func(ft *Fulltext, _ *setup.CompositeSetup) error {
		if n < 0 {
			return fmt.Errorf("%w: negative phrase slop", field.ErrInvalidArgument)
		}
		ft.phraseSlop = &n
		return nil
	}
}

// QueryPhraseSlop sets the slop of explicit phrases in the keywords.
func QueryPhraseSlop(n int) FulltextOption {
	return func(ft *Fulltext, _ *setup.CompositeSetup) error {
		if n < 0 {
			return fmt.Errorf("%w: negative query phrase slop", field.ErrInvalidArgument)
		}
		ft.queryPhraseSlop = &n
		return nil
	}
}

// Tie sets the tiebreaker between field scores, 0 to 1.
func Tie(t float64) FulltextOption {
	return func(ft *Fulltext, _ *setup.CompositeSetup) error {
		if t < 0 || t > 1 {
			return fmt.Errorf("%w: tie must be between 0 and 1", field.ErrInvalidArgument)
		}
		ft.tie = &t
		return nil
	}
}

// MinimumMatch sets the minimum-should-match expression, e.g. "2<-25%".
func MinimumMatch(mm string) FulltextOption {
	return func(ft *Fulltext, _ *setup.CompositeSetup) error {
		ft.minimumMatch = mm
		return nil
	}
}

// BoostQuery boosts documents matching the restrictions built by fn.
func BoostQuery(boost float64, fn func(*Scope)) FulltextOption {
	return func(ft *Fulltext, c *setup.CompositeSetup) error {
		var err error
		conn := scope.NewConjunction(false)
		fn(newScope(conn, c, &err))
		if err != nil {
			return err
		}
		phrase := conn.BooleanPhrase()
		if phrase == "" {
			return fmt.Errorf("%w: boost query has no conditions", field.ErrInvalidArgument)
		}
		ft.boostQueries = append(ft.boostQueries, phrase+"^"+field.FormatFloat(boost, 64))
		return nil
	}
}

// BoostFunction adds a function query to the score, e.g.
// "recip(ms(NOW,published_at_d),3.16e-11,1,1)".
func BoostFunction(fn string) FulltextOption {
	return func(ft *Fulltext, _ *setup.CompositeSetup) error {
		if strings.TrimSpace(fn) == "" {
			return fmt.Errorf("%w: empty boost function", field.ErrInvalidArgument)
		}
		ft.boostFunctions = append(ft.boostFunctions, fn)
		return nil
	}
}

// WithHighlight requests highlighted snippets.
func WithHighlight(opts ...HighlightOption) FulltextOption {
	return func(ft *Fulltext, c *setup.CompositeSetup) error {
		h := &Highlight{}
		for _, o := range opts {
			if err := o(h, c); err != nil {
				return err
			}
		}
		ft.highlight = h
		return nil
	}
}

func newFulltext(keywords string, c *setup.CompositeSetup, opts []FulltextOption) (*Fulltext, error) {
	ft := &Fulltext{keywords: strings.TrimSpace(keywords)}
	for _, o := range opts {
		if err := o(ft, c); err != nil {
			return nil, fmt.Errorf("fulltext: %w", err)
		}
	}
	if len(ft.fields) == 0 {
		for _, f := range c.TextFields() {
			ft.fields = append(ft.fields, boostedField{field: f, boost: f.Boost()})
		}
	}
	return ft, nil
}

func (ft *Fulltext) params() params.Params {
	p := params.Params{}
	if ft.keywords == "" {
		return p
	}
	p.Set(params.Query, ft.keywords)
	p.Set(params.DefType, "edismax")
	if len(ft.fields) > 0 {
		p.Set(params.QueryFields, joinBoosted(ft.fields))
	}
	if len(ft.phraseFields) > 0 {
		p.Set("pf", joinBoosted(ft.phraseFields))
	}
	if ft.phraseSlop != nil {
		p.Set("ps", strconv.Itoa(*ft.phraseSlop))
	}
	if ft.queryPhraseSlop != nil {
		p.Set("qs", strconv.Itoa(*ft.queryPhraseSlop))
	}
	if ft.tie != nil {
		p.Set("tie", field.FormatFloat(*ft.tie, 64))
	}
	if ft.minimumMatch != "" {
		p.Set("mm", ft.minimumMatch)
	}
	if len(ft.boostQueries) > 0 {
		p.Add("bq", ft.boostQueries...)
	}
	if len(ft.boostFunctions) > 0 {
		p.Add("bf", ft.boostFunctions...)
	}
	if ft.highlight != nil {
		p.Merge(ft.highlight.params())
	}
	return p
}

// Highlight configures highlighted snippets. Spans are marked with
// params.HighlightPre and params.HighlightPost.
type Highlight struct {
	fields        []field.Field
	maxSnippets   int
	fragmentSize  *int
	mergeFragment bool
	phrase        bool
}

// HighlightOption configures a Highlight.
type HighlightOption func(h *Highlight, c *setup.CompositeSetup) error

// HighlightFields limits highlighting to the named text fields.
func HighlightFields(names ...string) HighlightOption {
	return func(h *Highlight, c *setup.CompositeSetup) error {
		for _, name := range names {
			f, err := c.TextField(name)
			if err != nil {
				return err
			}
			h.fields = append(h.fields, f)
		}
		return nil
	}
}

// MaxSnippets sets the number of snippets per field.
func MaxSnippets(n int) HighlightOption {
	return func(h *Highlight, _ *setup.CompositeSetup) error {
		if n < 1 {
			return fmt.Errorf("%w: max snippets must be positive", field.ErrInvalidArgument)
		}
		h.maxSnippets = n
		return nil
	}
}

// FragmentSize sets the snippet size in characters; 0 returns whole fields.
func FragmentSize(n int) HighlightOption {
	return func(h *Highlight, _ *setup.CompositeSetup) error {
		if n < 0 {
			return fmt.Errorf("%w: negative fragment size", field.ErrInvalidArgument)
		}
		h.fragmentSize = &n
		return nil
	}
}

// MergeContiguousFragments joins adjacent snippets.
func MergeContiguousFragments() HighlightOption {
	return func(h *Highlight, _ *setup.CompositeSetup) error {
		h.mergeFragment = true
		return nil
	}
}

// PhraseHighlighter highlights phrase queries as phrases only.
func PhraseHighlighter() HighlightOption {
	return func(h *Highlight, _ *setup.CompositeSetup) error {
		h.phrase = true
		return nil
	}
}

func (h *Highlight) params() params.Params {
	p := params.Params{
		"hl":             "on",
		"hl.simple.pre":  params.HighlightPre,
		"hl.simple.post": params.HighlightPost,
	}
	if len(h.fields) > 0 {
		names := make([]string, 0, len(h.fields))
		for _, f := range h.fields {
			names = append(names, f.IndexedName())
		}
		p.Set("hl.fl", strings.Join(names, ","))
	}
	if h.maxSnippets > 0 {
		p.Set("hl.snippets", strconv.Itoa(h.maxSnippets))
	}
	if h.fragmentSize != nil {
		p.Set("hl.fragsize", strconv.Itoa(*h.fragmentSize))
	}
	if h.mergeFragment {
		p.Set("hl.mergeContiguous", "true")
	}
	if h.phrase {
		p.Set("hl.usePhraseHighlighter", "true")
	}
	return p
}
