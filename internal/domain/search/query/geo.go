package query

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/solrq/internal/domain/field"
	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

// geoFilter restricts hits to a circle around a point.
type geoFilter struct {
	field field.Field
	point field.Point
	km    float64
}

func newGeoFilter(f field.Field, lat, lng, km float64) (*geoFilter, error) {
	if f.FieldType() != field.Location {
		return nil, fmt.Errorf("%w: %q is not a location field", field.ErrInvalidArgument, f.Name())
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("%w: coordinates %v,%v out of range", field.ErrInvalidArgument, lat, lng)
	}
	if km <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive", field.ErrInvalidArgument)
	}
	return &geoFilter{field: f, point: field.Point{Lat: lat, Lng: lng}, km: km}, nil
}

func (g *geoFilter) params() params.Params {
	p := params.Params{}
	p.Add(params.FilterQuery, fmt.Sprintf("{!geofilt sfield=%s pt=%s d=%s}",
		g.field.IndexedName(), g.point, strconv.FormatFloat(g.km, 'f', -1, 64)))
	return p
}

// Group collapses hits sharing a field value.
type Group struct {
	field field.Field
	limit int
}

// Field returns the grouping field.
func (g *Group) Field() field.Field { return g.field }

func (g *Group) params() params.Params {
	p := params.Params{
		"group":         "true",
		"group.field":   g.field.IndexedName(),
		"group.ngroups": "true",
		"group.format":  "grouped",
		"group.limit":   strconv.Itoa(g.limit),
	}
	return p
}

// MoreLikeThis finds documents similar to one indexed document through the
// mlt handler.
type MoreLikeThis struct {
	indexID string
	fields  []field.Field
	minTF   int
	minDF   int
	boost   bool
}

// IndexID returns the "Class pk" id of the source document.
func (m *MoreLikeThis) IndexID() string { return m.indexID }

// MoreLikeThisOption configures a MoreLikeThis query.
type MoreLikeThisOption func(m *MoreLikeThis, c *setup.CompositeSetup) error

// SimilarFields compares the named text fields. The default is every text
// field of the searched classes.
func SimilarFields(names ...string) MoreLikeThisOption {
	return func(m *MoreLikeThis, c *setup.CompositeSetup) error {
		for _, name := range names {
			f, err := c.TextField(name)
			if err != nil {
				return err
			}
			m.fields = append(m.fields, f)
		}
		return nil
	}
}

// MinTermFrequency ignores terms occurring fewer than n times in the source.
func MinTermFrequency(n int) MoreLikeThisOption {
	return func(m *MoreLikeThis, _ *setup.CompositeSetup) error {
		if n < 1 {
			return fmt.Errorf("%w: minimum term frequency must be positive", field.ErrInvalidArgument)
		}
		m.minTF = n
		return nil
	}
}

// MinDocumentFrequency ignores terms found in fewer than n documents.
func MinDocumentFrequency(n int) MoreLikeThisOption {
	return func(m *MoreLikeThis, _ *setup.CompositeSetup) error {
		if n < 1 {
			return fmt.Errorf("%w: minimum document frequency must be positive", field.ErrInvalidArgument)
		}
		m.minDF = n
		return nil
	}
}

// BoostByRelevance weights terms by their relevance.
func BoostByRelevance() MoreLikeThisOption {
	return func(m *MoreLikeThis, _ *setup.CompositeSetup) error {
		m.boost = true
		return nil
	}
}

func (m *MoreLikeThis) params() params.Params {
	p := params.Params{
		params.Query:        "id:" + field.Escape(m.indexID),
		"mlt.match.include": "false",
	}
	if len(m.fields) > 0 {
		names := make([]string, 0, len(m.fields))
		for _, f := range m.fields {
			names = append(names, f.IndexedName())
		}
		p.Set("mlt.fl", joinComma(names))
	}
	if m.minTF > 0 {
		p.Set("mlt.mintf", strconv.Itoa(m.minTF))
	}
	if m.minDF > 0 {
		p.Set("mlt.mindf", strconv.Itoa(m.minDF))
	}
	if m.boost {
		p.Set("mlt.boost", "true")
	}
	return p
}
