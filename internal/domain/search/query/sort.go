package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/solrq/internal/domain/field"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "asc"/"desc" in any case; "" is ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", "asc", "ascending":
		return Asc, nil
	case "desc", "descending":
		return Desc, nil
	default:
		return "", fmt.Errorf("%w: unknown sort direction %q", field.ErrInvalidArgument, s)
	}
}

// SortScore orders by relevance.
const SortScore = "score"

type sortCriterion struct {
	expr string
	dir  Direction
}

func (s sortCriterion) String() string { return s.expr + " " + string(s.dir) }

func joinSorts(sorts []sortCriterion) string {
	parts := make([]string, 0, len(sorts))
	for _, s := range sorts {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ", ")
}

func scoreSort(dir Direction) sortCriterion {
	return sortCriterion{expr: SortScore, dir: dir}
}

func randomSort(seed int64, dir Direction) sortCriterion {
	return sortCriterion{expr: "random_" + strconv.FormatInt(seed, 10), dir: dir}
}

func geodistSort(f field.Field, lat, lng float64, dir Direction) sortCriterion {
	expr := "geodist(" + f.IndexedName() + "," +
		strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64) + ")"
	return sortCriterion{expr: expr, dir: dir}
}

func fieldSort(f field.Field, dir Direction) (sortCriterion, error) {
	if f.Multiple() {
		return sortCriterion{}, fmt.Errorf("%w: cannot sort on multi-valued field %q", field.ErrInvalidArgument, f.Name())
	}
	return sortCriterion{expr: f.IndexedName(), dir: dir}, nil
}
