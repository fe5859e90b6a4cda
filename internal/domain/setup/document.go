package setup

import "fmt"

// Reserved document keys written alongside the configured fields.
const (
	KeyID        = "id"
	KeyType      = "type"
	KeyClassName = "class_name"
)

// Document is the index representation of one instance.
type Document struct {
	ID        string
	Types     []string
	ClassName string
	// Fields maps indexed names to wire values.
	Fields map[string][]string
	multi  map[string]bool
}

// Document builds the index document for obj. Values are extracted per
// field and converted with the field's wire conversion; list values on a
// single-valued field fail.
func (s *Setup) Document(obj any) (Document, error) {
	id, err := s.IndexID(obj)
	if err != nil {
		return Document{}, err
	}
	doc := Document{
		ID:        id,
		Types:     s.Types(),
		ClassName: s.className,
		Fields:    make(map[string][]string),
		multi:     make(map[string]bool),
	}
	for _, f := range s.Fields() {
		raw, err := s.extractor(f.Name())(obj)
		if err != nil {
			return Document{}, fmt.Errorf("extract %s.%s: %w", s.className, f.Name(), err)
		}
		values, err := f.IndexValues(raw)
		if err != nil {
			return Document{}, fmt.Errorf("index %s: %w", id, err)
		}
		if len(values) == 0 {
			continue
		}
		doc.Fields[f.IndexedName()] = values
		doc.multi[f.IndexedName()] = f.Multiple() || f.IsText()
	}
	return doc, nil
}

// Map returns the JSON shape of the document for an update request.
// Single-valued fields become scalars.
func (d Document) Map() map[string]any {
	out := map[string]any{
		KeyID:        d.ID,
		KeyType:      d.Types,
		KeyClassName: d.ClassName,
	}
	for name, values := range d.Fields {
		if len(values) == 1 && !d.multi[name] {
			out[name] = values[0]
			continue
		}
		out[name] = values
	}
	return out
}
