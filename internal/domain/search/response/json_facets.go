package response

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONFacets is the "facets" block of the JSON facet API: a total count and
// named bucket lists.
type JSONFacets struct {
	Count  int
	Facets map[string]BucketList
}

// BucketList is one terms facet result.
type BucketList struct {
	Buckets    []Bucket `json:"buckets"`
	NumBuckets int      `json:"numBuckets,omitempty"`
}

// Bucket is one term with its count and nested facets.
type Bucket struct {
	Val    any
	Count  int
	Facets map[string]BucketList
}

// UnmarshalJSON splits the known keys from the named sub-facets.
func (f *JSONFacets) UnmarshalJSON(data []byte) error {
	count, facets, err := splitFacetObject(data)
	if err != nil {
		return fmt.Errorf("json facets: %w", err)
	}
	f.Count = count
	f.Facets = facets
	return nil
}

// UnmarshalJSON splits val/count from the named sub-facets.
func (b *Bucket) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["val"]; ok {
		var val any
		if err := unmarshalNumber(v, &val); err != nil {
			return fmt.Errorf("bucket val: %w", err)
		}
		b.Val = val
		delete(raw, "val")
	}
	count, facets, err := splitRaw(raw)
	if err != nil {
		return err
	}
	b.Count = count
	b.Facets = facets
	return nil
}

func splitFacetObject(data []byte) (int, map[string]BucketList, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, nil, err
	}
	return splitRaw(raw)
}

func splitRaw(raw map[string]json.RawMessage) (int, map[string]BucketList, error) {
	var count int
	if c, ok := raw["count"]; ok {
		if err := json.Unmarshal(c, &count); err != nil {
			return 0, nil, fmt.Errorf("count: %w", err)
		}
		delete(raw, "count")
	}
	var facets map[string]BucketList
	for name, msg := range raw {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(msg, &probe); err != nil {
			// aggregations like sum(x) are scalars
			continue
		}
		if _, ok := probe["buckets"]; !ok {
			continue
		}
		var list BucketList
		if err := json.Unmarshal(msg, &list); err != nil {
			return 0, nil, fmt.Errorf("facet %s: %w", name, err)
		}
		if facets == nil {
			facets = make(map[string]BucketList)
		}
		facets[name] = list
	}
	return count, facets, nil
}

func unmarshalNumber(data []byte, v *any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
