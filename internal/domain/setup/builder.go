package setup

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/solrq/internal/domain/field"
)

// Builder is a fluent builder for class setups. The first invalid
// declaration is kept and returned by Build.
type Builder struct {
	s   Setup
	err error
}

// NewBuilder starts a setup for className.
func NewBuilder(className string) *Builder {
	b := &Builder{s: Setup{
		className:  className,
		fields:     make(map[string]field.Field),
		extractors: make(map[string]Extractor),
	}}
	if strings.TrimSpace(className) == "" || strings.ContainsAny(className, " \t\n") {
		b.err = fmt.Errorf("%w: invalid class name %q", field.ErrInvalidArgument, className)
	}
	return b
}

// Parent inherits fields, adapter and accessor from p.
func (b *Builder) Parent(p *Setup) *Builder {
	b.s.parent = p
	return b
}

// Add declares a prebuilt field with an optional extractor.
func (b *Builder) Add(f field.Field, extract Extractor) *Builder {
	if b.err != nil {
		return b
	}
	if _, dup := b.s.fields[f.Name()]; dup {
		b.err = fmt.Errorf("%w: field %q declared twice on %s", field.ErrInvalidArgument, f.Name(), b.s.className)
		return b
	}
	b.s.fields[f.Name()] = f
	if extract != nil {
		b.s.extractors[f.Name()] = extract
	}
	return b
}

func (b *Builder) declare(name string, ft field.Type, opts []field.Option) *Builder {
	if b.err != nil {
		return b
	}
	f, err := field.New(name, ft, opts...)
	if err != nil {
		b.err = fmt.Errorf("%s: %w", b.s.className, err)
		return b
	}
	return b.Add(f, nil)
}

// String declares a string field.
func (b *Builder) String(name string, opts ...field.Option) *Builder {
	return b.declare(name, field.String, opts)
}

// Text declares a fulltext field.
func (b *Builder) Text(name string, opts ...field.Option) *Builder {
	return b.declare(name, field.Text, opts)
}

// Integer declares an integer field.
func (b *Builder) Integer(name string, opts ...field.Option) *Builder {
	return b.declare(name, field.Integer, opts)
}

// Long declares a long field.
func (b *Builder) Long(name string, opts ...field.Option) *Builder {
	return b.declare(name, field.Long, opts)
}

// Float declares a float field.
func (b *Builder) Float(name string, opts ...field.Option) *Builder {
	return b.declare(name, field.Float, opts)
}

// Double declares a double field.
func (b *Builder) Double(name string, opts ...field.Option) *Builder {
	return b.declare(name, field.Double, opts)
}

// Time declares a time field.
func (b *Builder) Time(name string, opts ...field.Option) *Builder {
	return b.declare(name, field.Time, opts)
}

// Date declares a date field.
func (b *Builder) Date(name string, opts ...field.Option) *Builder {
	return b.declare(name, field.Date, opts)
}

// Boolean declares a boolean field.
func (b *Builder) Boolean(name string, opts ...field.Option) *Builder {
	return b.declare(name, field.Boolean, opts)
}

// Location declares a lat/lng field.
func (b *Builder) Location(name string, opts ...field.Option) *Builder {
	return b.declare(name, field.Location, opts)
}

// Extract sets the value extractor of an already declared field.
func (b *Builder) Extract(name string, fn Extractor) *Builder {
	if b.err != nil {
		return b
	}
	if _, ok := b.s.fields[name]; !ok {
		b.err = &UnrecognizedFieldError{Field: name, Classes: []string{b.s.className}}
		return b
	}
	b.s.extractors[name] = fn
	return b
}

// Identity sets the primary-key adapter.
func (b *Builder) Identity(a InstanceAdapter) *Builder {
	b.s.adapter = a
	return b
}

// Accessor sets the data accessor used to load instances.
func (b *Builder) Accessor(a DataAccessor) *Builder {
	b.s.accessor = a
	return b
}

// Build validates and returns the setup.
func (b *Builder) Build() (*Setup, error) {
	if b.err != nil {
		return nil, b.err
	}
	s := b.s
	return &s, nil
}

// MustBuild calls Build and panics on error.
func (b *Builder) MustBuild() *Setup {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// String returns a debug representation listing indexed names.
func (s *Setup) String() string {
	parts := []string{s.className}
	if s.parent != nil {
		parts = append(parts, "<", s.parent.className)
	}
	for _, f := range s.Fields() {
		parts = append(parts, f.IndexedName())
	}
	return strings.Join(parts, " ")
}
