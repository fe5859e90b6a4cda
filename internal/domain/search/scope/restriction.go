package scope

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/kailas-cloud/solrq/internal/domain/field"
)

// Component is a restriction or a connective. The set of implementations
// is closed: *Restriction and *Connective.
type Component interface {
	// BooleanPhrase renders the query fragment; "" means the component
	// contributes nothing and must be omitted.
	BooleanPhrase() string
	// Negate returns a logically negated copy.
	Negate() Component
	// Negated reports whether the phrase carries a leading "-".
	Negated() bool
	isComponent()
}

// Range is an inclusive pair of bounds for Between. Bounds are rendered in
// the given order, never re-sorted.
type Range struct {
	From any
	To   any
}

// Restriction is a single field condition. Its conditional is computed at
// construction so invalid values fail immediately.
type Restriction struct {
	kind        Kind
	field       field.Field
	value       any
	negated     bool
	conditional string
	// nil equality flips the meaning of the negation flag
	inverted bool
}

// NewRestriction builds a restriction of the given kind.
func NewRestriction(kind Kind, f field.Field, value any, negated bool) (*Restriction, error) {
	conditional, ok := conditionals[kind]
	if !ok {
		return nil, &UnknownKindError{Kind: string(kind)}
	}
	r := &Restriction{kind: kind, field: f, value: value, negated: negated}
	if kind == EqualTo && value == nil {
		r.conditional = "[* TO *]"
		r.inverted = true
		return r, nil
	}
	if value == nil {
		return nil, fmt.Errorf("%w: nil value for %s restriction on %q", field.ErrInvalidArgument, kind, f.Name())
	}
	c, err := conditional(f, value)
	if err != nil {
		return nil, fmt.Errorf("%s restriction on %q: %w", kind, f.Name(), err)
	}
	r.conditional = c
	return r, nil
}

// NewSameAs builds the identity restriction on a composite "Class pk" id.
func NewSameAs(indexID string, negated bool) (*Restriction, error) {
	if indexID == "" {
		return nil, fmt.Errorf("%w: empty index id for same_as restriction", field.ErrInvalidArgument)
	}
	return &Restriction{kind: SameAs, value: indexID, negated: negated, conditional: field.Escape(indexID)}, nil
}

// Kind returns the restriction kind.
func (r *Restriction) Kind() Kind { return r.kind }

// Field returns the restricted field; zero for SameAs.
func (r *Restriction) Field() field.Field { return r.field }

// Value returns the value as given.
func (r *Restriction) Value() any { return r.value }

// Conditional returns the value-only fragment, e.g. "[2\.0 TO 4\.0]".
func (r *Restriction) Conditional() string { return r.conditional }

// Negated implements Component.
func (r *Restriction) Negated() bool { return r.negated != r.inverted }

// Negate implements Component.
func (r *Restriction) Negate() Component {
	n := *r
	n.negated = !r.negated
	return &n
}

// BooleanPhrase implements Component.
func (r *Restriction) BooleanPhrase() string {
	name := "id"
	if r.kind != SameAs {
		name = r.field.IndexedName()
	}
	phrase := name + ":" + r.conditional
	if r.Negated() {
		return "-" + phrase
	}
	return phrase
}

func (r *Restriction) String() string { return r.BooleanPhrase() }

func (*Restriction) isComponent() {}

func scalar(f field.Field, v any) (string, error) {
	s, err := f.ToIndexed(v)
	if err != nil {
		return "", err
	}
	return field.Escape(s), nil
}

func equalTo(f field.Field, v any) (string, error) {
	return scalar(f, v)
}

func openRange(left, right string, lowerOpen bool) conditionalFunc {
	return func(f field.Field, v any) (string, error) {
		s, err := scalar(f, v)
		if err != nil {
			return "", err
		}
		if lowerOpen {
			return left + "* TO " + s + right, nil
		}
		return left + s + " TO *" + right, nil
	}
}

func between(f field.Field, v any) (string, error) {
	var from, to any
	switch r := v.(type) {
	case Range:
		from, to = r.From, r.To
	case *Range:
		from, to = r.From, r.To
	default:
		if !field.IsList(v) || reflect.ValueOf(v).Len() != 2 {
			return "", fmt.Errorf("%w: between needs a Range or two bounds, got %T", field.ErrInvalidArgument, v)
		}
		rv := reflect.ValueOf(v)
		from, to = rv.Index(0).Interface(), rv.Index(1).Interface()
	}
	lo, err := bound(f, from)
	if err != nil {
		return "", err
	}
	hi, err := bound(f, to)
	if err != nil {
		return "", err
	}
	return "[" + lo + " TO " + hi + "]", nil
}

// nil bound is open-ended
func bound(f field.Field, v any) (string, error) {
	if v == nil {
		return "*", nil
	}
	return scalar(f, v)
}

func joined(connector string) conditionalFunc {
	return func(f field.Field, v any) (string, error) {
		if !field.IsList(v) {
			return "", fmt.Errorf("%w: expected a list of values, got %T", field.ErrInvalidArgument, v)
		}
		rv := reflect.ValueOf(v)
		if rv.Len() == 0 {
			return "", fmt.Errorf("%w: empty value list", field.ErrInvalidArgument)
		}
		parts := make([]string, 0, rv.Len())
		for i := range rv.Len() {
			s, err := scalar(f, rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "(" + strings.Join(parts, " "+connector+" ") + ")", nil
	}
}

func startingWith(f field.Field, v any) (string, error) {
	s, err := scalar(f, v)
	if err != nil {
		return "", err
	}
	return s + "*", nil
}
