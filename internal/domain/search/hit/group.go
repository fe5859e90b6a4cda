package hit

import (
	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
)

// Group is one collapsed group of a grouped response.
type Group struct {
	Value    any
	NumFound int
	Hits     []*Hit
}

// Grouping is the grouped result of one field.
type Grouping struct {
	Matches int
	// NGroups is the number of groups when the request asked for it, else -1.
	NGroups int
	Groups  []Group
	// Set holds every grouped hit for population.
	Set *Set
}

// Groups reads the groups of f from resp. It returns nil when the response
// is not grouped by f.
func Groups(resp *response.Response, f field.Field, setups Setups) (*Grouping, error) {
	raw, ok := resp.Grouped[f.IndexedName()]
	if !ok {
		return nil, nil
	}
	var docs []response.Document
	for _, gv := range raw.Groups {
		docs = append(docs, gv.DocList.Docs...)
	}
	set, err := NewSet(docs, resp.Highlighting, setups)
	if err != nil {
		return nil, err
	}

	out := &Grouping{Matches: raw.Matches, NGroups: -1, Set: set}
	if raw.NGroups != nil {
		out.NGroups = *raw.NGroups
	}
	i := 0
	for _, gv := range raw.Groups {
		g := Group{NumFound: gv.DocList.NumFound}
		if gv.GroupValue != nil {
			v, err := f.Cast(response.Scalar(gv.GroupValue))
			if err != nil {
				return nil, err
			}
			g.Value = v
		}
		n := len(gv.DocList.Docs)
		g.Hits = set.hits[i : i+n]
		i += n
		out.Groups = append(out.Groups, g)
	}
	return out, nil
}
