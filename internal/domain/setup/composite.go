package setup

import (
	"sort"

	"github.com/kailas-cloud/solrq/internal/domain/field"
)

// CompositeSetup is the field configuration visible when searching several
// classes at once.
//
// Attribute fields are the intersection of the classes' fields: a field is
// visible only when every class declares it with the same indexed name and
// multiplicity. Text fields are the union, minus names whose declarations
// disagree between classes.
type CompositeSetup struct {
	setups     []*Setup
	classes    []string
	fields     map[string]field.Field
	textFields map[string]field.Field
}

// NewComposite builds the composite view over setups. With no setups the
// composite is unbound: it sees no fields and matches every type.
func NewComposite(setups ...*Setup) *CompositeSetup {
	c := &CompositeSetup{
		setups:     setups,
		fields:     make(map[string]field.Field),
		textFields: make(map[string]field.Field),
	}
	for _, s := range setups {
		c.classes = append(c.classes, s.className)
	}
	if len(setups) == 0 {
		return c
	}

	first := setups[0].fieldMap()
	for name, f := range first {
		if f.IsText() {
			continue
		}
		visible := true
		for _, other := range setups[1:] {
			of, ok := other.fieldMap()[name]
			if !ok || of.IsText() || !of.Compatible(f) {
				visible = false
				break
			}
		}
		if visible {
			c.fields[name] = f
		}
	}

	conflicting := make(map[string]bool)
	for _, s := range setups {
		for name, f := range s.fieldMap() {
			if !f.IsText() || conflicting[name] {
				continue
			}
			if seen, ok := c.textFields[name]; ok && seen.IndexedName() != f.IndexedName() {
				delete(c.textFields, name)
				conflicting[name] = true
				continue
			}
			c.textFields[name] = f
		}
	}
	return c
}

// Classes returns the searched class names in declaration order.
func (c *CompositeSetup) Classes() []string { return c.classes }

// Setups returns the underlying per-class setups.
func (c *CompositeSetup) Setups() []*Setup { return c.setups }

// Setup returns the setup of one searched class, or nil.
func (c *CompositeSetup) Setup(className string) *Setup {
	for _, s := range c.setups {
		if s.className == className {
			return s
		}
	}
	return nil
}

// Field looks up a visible attribute field and fails with an
// UnrecognizedFieldError when the name is not visible.
func (c *CompositeSetup) Field(name string) (field.Field, error) {
	if f, ok := c.fields[name]; ok {
		return f, nil
	}
	return field.Field{}, &UnrecognizedFieldError{Field: name, Classes: c.classes}
}

// LookupField looks up a visible attribute field without failing.
func (c *CompositeSetup) LookupField(name string) (field.Field, bool) {
	f, ok := c.fields[name]
	return f, ok
}

// TextField looks up a visible fulltext field.
func (c *CompositeSetup) TextField(name string) (field.Field, error) {
	if f, ok := c.textFields[name]; ok {
		return f, nil
	}
	return field.Field{}, &UnrecognizedFieldError{Field: name, Classes: c.classes}
}

// Fields returns the visible attribute fields sorted by name.
func (c *CompositeSetup) Fields() []field.Field {
	return sortedFields(c.fields)
}

// TextFields returns the visible fulltext fields sorted by name.
func (c *CompositeSetup) TextFields() []field.Field {
	return sortedFields(c.textFields)
}

func sortedFields(m map[string]field.Field) []field.Field {
	out := make([]field.Field, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
