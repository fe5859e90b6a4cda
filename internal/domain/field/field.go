package field

import (
	"fmt"
	"regexp"
)

// Type is the semantic type of a field.
type Type string

// Field type constants.
const (
	String   Type = "string"
	Text     Type = "text"
	Integer  Type = "integer"
	Long     Type = "long"
	Float    Type = "float"
	Double   Type = "double"
	Time     Type = "time"
	Date     Type = "date"
	Boolean  Type = "boolean"
	Location Type = "location"
)

// suffixes maps a type to the dynamic-field suffix of the Solr schema.
var suffixes = map[Type]string{
	String:   "s",
	Text:     "text",
	Integer:  "i",
	Long:     "l",
	Float:    "f",
	Double:   "e",
	Time:     "d",
	Date:     "d",
	Boolean:  "b",
	Location: "ll",
}

// Types returns every supported field type.
func Types() []Type {
	return []Type{String, Text, Integer, Long, Float, Double, Time, Date, Boolean, Location}
}

// ParseType resolves a type name as written in configuration.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := suffixes[t]; !ok {
		return "", fmt.Errorf("%w: unknown field type %q", ErrInvalidArgument, s)
	}
	return t, nil
}

var (
	namePattern = regexp.MustCompile(`^\w+$`)

	// Document keys written by the indexer itself.
	reservedFieldNames = map[string]bool{
		"id": true, "type": true, "class_name": true, "score": true,
	}
)

// Field is an immutable value object describing a searchable attribute.
type Field struct {
	name      string
	fieldType Type
	multiple  bool
	stored    bool
	reference string
	boost     float64
}

// Option configures a Field at construction.
type Option func(*Field)

// Multiple marks the field as multi-valued.
func Multiple() Option {
	return func(f *Field) { f.multiple = true }
}

// Stored marks the field as stored, so hits can read it back.
func Stored() Option {
	return func(f *Field) { f.stored = true }
}

// Reference names the class whose instances the field values identify.
// Facets over the field can then load those instances.
func Reference(className string) Option {
	return func(f *Field) { f.reference = className }
}

// Boost sets the default fulltext boost (text fields only).
func Boost(b float64) Option {
	return func(f *Field) { f.boost = b }
}

// New validates and creates a Field.
// Name must be non-empty, word characters only, and not reserved.
func New(name string, ft Type, opts ...Option) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("%w: field name is required", ErrInvalidArgument)
	}
	if !namePattern.MatchString(name) {
		return Field{}, &InvalidNameError{Name: name}
	}
	if reservedFieldNames[name] {
		return Field{}, fmt.Errorf("%w: field name %q is reserved", ErrInvalidArgument, name)
	}
	if _, ok := suffixes[ft]; !ok {
		return Field{}, fmt.Errorf("%w: invalid field type %q for %q", ErrInvalidArgument, ft, name)
	}
	f := Field{name: name, fieldType: ft}
	for _, o := range opts {
		o(&f)
	}
	if f.boost != 0 && ft != Text {
		return Field{}, fmt.Errorf("%w: boost is only supported on text fields (%q)", ErrInvalidArgument, name)
	}
	return f, nil
}

// MustNew calls New and panics on error.
func MustNew(name string, ft Type, opts ...Option) Field {
	f, err := New(name, ft, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Name returns the public field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's semantic type.
func (f Field) FieldType() Type { return f.fieldType }

// Multiple reports whether the field holds several values per document.
func (f Field) Multiple() bool { return f.multiple }

// Stored reports whether values are returned with hits.
func (f Field) Stored() bool { return f.stored }

// Reference returns the referenced class name, or "".
func (f Field) Reference() string { return f.reference }

// Boost returns the default fulltext boost, 0 when unset.
func (f Field) Boost() float64 { return f.boost }

// IsText reports whether the field is analysed for fulltext search.
func (f Field) IsText() bool { return f.fieldType == Text }

// IndexedName is the wire-level name: the public name plus the dynamic-field
// suffix for the type, then "m" for multi-valued and "s" for stored fields.
// Text fields are always multi-valued in the schema and never take "m".
func (f Field) IndexedName() string {
	suffix := suffixes[f.fieldType]
	if f.multiple && f.fieldType != Text {
		suffix += "m"
	}
	if f.stored {
		suffix += "s"
	}
	return f.name + "_" + suffix
}

// Compatible reports whether two fields derive the same wire identity.
func (f Field) Compatible(other Field) bool {
	return f.name == other.name &&
		f.IndexedName() == other.IndexedName() &&
		f.multiple == other.multiple
}

func (f Field) String() string {
	return fmt.Sprintf("%s(%s)", f.name, f.IndexedName())
}
