package setup

import (
	"fmt"
	"strconv"
)

// Record is a schemaless instance: the shape data accessors return for
// classes declared in configuration.
type Record struct {
	Class  string         `json:"class"`
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields,omitempty"`
}

// RecordAdapter resolves primary keys of Records, string-keyed maps
// (key "id") and plain scalar ids.
type RecordAdapter struct{}

// PrimaryKey implements InstanceAdapter.
func (RecordAdapter) PrimaryKey(obj any) (string, error) {
	switch v := obj.(type) {
	case *Record:
		if v == nil {
			return "", fmt.Errorf("nil record")
		}
		return v.ID, nil
	case Record:
		return v.ID, nil
	case map[string]any:
		if id, ok := v["id"]; ok {
			return fmt.Sprint(id), nil
		}
		return "", fmt.Errorf("map instance has no \"id\" key")
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", fmt.Errorf("cannot resolve primary key of %T", obj)
	}
}

func defaultExtractor(name string) Extractor {
	return func(obj any) (any, error) {
		switch v := obj.(type) {
		case *Record:
			return v.Fields[name], nil
		case Record:
			return v.Fields[name], nil
		case map[string]any:
			return v[name], nil
		default:
			return nil, fmt.Errorf("no extractor for field %q on %T", name, obj)
		}
	}
}
