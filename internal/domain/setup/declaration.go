package setup

import (
	"fmt"

	"github.com/kailas-cloud/solrq/internal/domain/field"
)

// Declaration describes a class setup in configuration.
type Declaration struct {
	Class  string             `yaml:"class" json:"class"`
	Parent string             `yaml:"parent" json:"parent,omitempty"`
	Fields []FieldDeclaration `yaml:"fields" json:"fields"`
}

// FieldDeclaration describes one field in configuration.
type FieldDeclaration struct {
	Name      string  `yaml:"name" json:"name"`
	Type      string  `yaml:"type" json:"type"`
	Multiple  bool    `yaml:"multiple" json:"multiple,omitempty"`
	Stored    bool    `yaml:"stored" json:"stored,omitempty"`
	Reference string  `yaml:"reference" json:"reference,omitempty"`
	Boost     float64 `yaml:"boost" json:"boost,omitempty"`
}

// Field builds the declared field.
func (d FieldDeclaration) Field() (field.Field, error) {
	ft, err := field.ParseType(d.Type)
	if err != nil {
		return field.Field{}, fmt.Errorf("field %q: %w", d.Name, err)
	}
	var opts []field.Option
	if d.Multiple {
		opts = append(opts, field.Multiple())
	}
	if d.Stored {
		opts = append(opts, field.Stored())
	}
	if d.Reference != "" {
		opts = append(opts, field.Reference(d.Reference))
	}
	if d.Boost != 0 {
		opts = append(opts, field.Boost(d.Boost))
	}
	return field.New(d.Name, ft, opts...)
}

// AccessorFunc picks the data accessor for a declared class; it may return nil.
type AccessorFunc func(className string) DataAccessor

// RegisterAll builds the declared setups into r. Parents may be declared in
// any order but must exist and must not form a cycle.
func RegisterAll(r *Registry, decls []Declaration, accessors AccessorFunc) error {
	byClass := make(map[string]Declaration, len(decls))
	for _, d := range decls {
		if _, dup := byClass[d.Class]; dup {
			return fmt.Errorf("%w: class %q declared twice", field.ErrInvalidArgument, d.Class)
		}
		byClass[d.Class] = d
	}

	built := make(map[string]*Setup, len(decls))
	visiting := make(map[string]bool)
	var build func(class string) (*Setup, error)
	build = func(class string) (*Setup, error) {
		if s, ok := built[class]; ok {
			return s, nil
		}
		d, ok := byClass[class]
		if !ok {
			return nil, &NoSetupError{Class: class}
		}
		if visiting[class] {
			return nil, fmt.Errorf("%w: inheritance cycle at %q", field.ErrInvalidArgument, class)
		}
		visiting[class] = true
		defer delete(visiting, class)

		b := NewBuilder(d.Class)
		if d.Parent != "" {
			p, err := build(d.Parent)
			if err != nil {
				return nil, fmt.Errorf("parent of %s: %w", d.Class, err)
			}
			b.Parent(p)
		}
		for _, fd := range d.Fields {
			f, err := fd.Field()
			if err != nil {
				return nil, fmt.Errorf("class %s: %w", d.Class, err)
			}
			b.Add(f, nil)
		}
		if accessors != nil {
			if acc := accessors(d.Class); acc != nil {
				b.Accessor(acc)
			}
		}
		s, err := b.Build()
		if err != nil {
			return nil, err
		}
		built[class] = s
		return s, nil
	}

	for _, d := range decls {
		s, err := build(d.Class)
		if err != nil {
			return err
		}
		r.Register(s)
	}
	return nil
}
