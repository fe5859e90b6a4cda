package scope

import (
	"github.com/kailas-cloud/solrq/internal/domain/field"
)

// Kind tags a restriction variant.
type Kind string

// Restriction kinds.
const (
	EqualTo              Kind = "equal_to"
	LessThan             Kind = "less_than"
	LessThanOrEqualTo    Kind = "less_than_or_equal_to"
	GreaterThan          Kind = "greater_than"
	GreaterThanOrEqualTo Kind = "greater_than_or_equal_to"
	Between              Kind = "between"
	AnyOf                Kind = "any_of"
	AllOf                Kind = "all_of"
	StartingWith         Kind = "starting_with"
	SameAs               Kind = "same_as"
)

type conditionalFunc func(f field.Field, v any) (string, error)

// conditionals is the fixed table of field restriction variants. SameAs is
// built with NewSameAs and has no entry.
var conditionals = map[Kind]conditionalFunc{
	EqualTo:              equalTo,
	LessThan:             openRange("{", "}", true),
	LessThanOrEqualTo:    openRange("[", "]", true),
	GreaterThan:          openRange("{", "}", false),
	GreaterThanOrEqualTo: openRange("[", "]", false),
	Between:              between,
	AnyOf:                joined("OR"),
	AllOf:                joined("AND"),
	StartingWith:         startingWith,
}

// Kinds lists the field restriction kinds in a stable order.
func Kinds() []Kind {
	return []Kind{EqualTo, LessThan, LessThanOrEqualTo, GreaterThan, GreaterThanOrEqualTo, Between, AnyOf, AllOf, StartingWith}
}

// Lookup resolves a kind tag as written by callers.
func Lookup(tag string) (Kind, error) {
	k := Kind(tag)
	if _, ok := conditionals[k]; !ok {
		return "", &UnknownKindError{Kind: tag}
	}
	return k, nil
}

// Shorthand infers the kind from the value's shape: lists are AnyOf,
// ranges Between, anything else EqualTo.
func Shorthand(value any) Kind {
	switch value.(type) {
	case Range, *Range:
		return Between
	}
	if value != nil && field.IsList(value) {
		return AnyOf
	}
	return EqualTo
}
