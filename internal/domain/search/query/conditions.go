package query

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/solrq/internal/domain/search/scope"
)

// ApplyConditionMap restricts the query from a name→value map, the form
// request payloads arrive in. Unlike With, names that are not visible
// fields are skipped silently; callers pass maps holding other keys too.
//
// A value is either a shorthand value (list → any_of, scope.Range →
// between, otherwise equal_to) or a map from restriction kind tag to value,
// e.g. {"greater_than": 3}. A name prefixed with "-" negates its
// restrictions. Unknown kind tags still fail with scope.UnknownKindError.
func (q *Query) ApplyConditionMap(conds map[string]any) *Query {
	if q.err != nil {
		return q
	}
	names := make([]string, 0, len(conds))
	for name := range conds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, key := range names {
		name, negated := key, false
		if len(name) > 1 && name[0] == '-' {
			name, negated = name[1:], true
		}
		f, ok := q.composite.LookupField(name)
		if !ok {
			continue
		}

		value := conds[key]
		byKind, isMap := value.(map[string]any)
		if !isMap {
			if _, err := q.root.AddShorthand(f, value, negated); err != nil {
				return q.fail(fmt.Errorf("condition %s: %w", key, err))
			}
			continue
		}

		tags := make([]string, 0, len(byKind))
		for tag := range byKind {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			kind, err := scope.Lookup(tag)
			if err != nil {
				return q.fail(err)
			}
			if _, err := q.root.AddRestriction(kind, f, byKind[tag], negated); err != nil {
				return q.fail(fmt.Errorf("condition %s %s: %w", key, tag, err))
			}
		}
	}
	return q
}
