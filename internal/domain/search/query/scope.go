package query

import (
	"fmt"

	"github.com/kailas-cloud/solrq/internal/domain/search/scope"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

// Scope adds restrictions to one connective. Field names are resolved
// strictly against the composite setup: an unknown name records an
// UnrecognizedFieldError on the owning query.
type Scope struct {
	conn      *scope.Connective
	composite *setup.CompositeSetup
	err       *error
}

func newScope(conn *scope.Connective, c *setup.CompositeSetup, errp *error) *Scope {
	return &Scope{conn: conn, composite: c, err: errp}
}

func (s *Scope) failed() bool { return *s.err != nil }

func (s *Scope) fail(err error) *Scope {
	if *s.err == nil {
		*s.err = err
	}
	return s
}

// Connective returns the underlying connective.
func (s *Scope) Connective() *scope.Connective { return s.conn }

// With restricts name to value, inferring the kind from the value's shape.
// A nil value matches documents without a value.
func (s *Scope) With(name string, value any) *Scope {
	return s.shorthand(name, value, false)
}

// Without excludes documents where name matches value.
func (s *Scope) Without(name string, value any) *Scope {
	return s.shorthand(name, value, true)
}

func (s *Scope) shorthand(name string, value any, negated bool) *Scope {
	if s.failed() {
		return s
	}
	f, err := s.composite.Field(name)
	if err != nil {
		return s.fail(err)
	}
	if _, err := s.conn.AddShorthand(f, value, negated); err != nil {
		return s.fail(fmt.Errorf("with %s: %w", name, err))
	}
	return s
}

// Where restricts name with the restriction kind named by tag
// ("greater_than", "any_of", ...).
func (s *Scope) Where(name, tag string, value any) *Scope {
	return s.where(name, tag, value, false)
}

// WhereNot is the negation of Where.
func (s *Scope) WhereNot(name, tag string, value any) *Scope {
	return s.where(name, tag, value, true)
}

func (s *Scope) where(name, tag string, value any, negated bool) *Scope {
	if s.failed() {
		return s
	}
	kind, err := scope.Lookup(tag)
	if err != nil {
		return s.fail(err)
	}
	f, err := s.composite.Field(name)
	if err != nil {
		return s.fail(err)
	}
	if _, err := s.conn.AddRestriction(kind, f, value, negated); err != nil {
		return s.fail(fmt.Errorf("%s %s: %w", name, tag, err))
	}
	return s
}

// Exclude drops the document with the given class and primary key.
func (s *Scope) Exclude(className, pk string) *Scope {
	if s.failed() {
		return s
	}
	r, err := scope.NewSameAs(setup.IndexID(className, pk), true)
	if err != nil {
		return s.fail(err)
	}
	s.conn.Add(r)
	return s
}

// ExcludeInstance drops the document of obj. Its class must be one of the
// searched classes.
func (s *Scope) ExcludeInstance(className string, obj any) *Scope {
	if s.failed() {
		return s
	}
	st := s.composite.Setup(className)
	if st == nil {
		return s.fail(&setup.NoSetupError{Class: className})
	}
	id, err := st.IndexID(obj)
	if err != nil {
		return s.fail(err)
	}
	r, err := scope.NewSameAs(id, true)
	if err != nil {
		return s.fail(err)
	}
	s.conn.Add(r)
	return s
}

// AnyOf adds a disjunction built by fn.
func (s *Scope) AnyOf(fn func(*Scope)) *Scope {
	if s.failed() {
		return s
	}
	fn(newScope(s.conn.AddDisjunction(false), s.composite, s.err))
	return s
}

// AllOf adds a conjunction built by fn.
func (s *Scope) AllOf(fn func(*Scope)) *Scope {
	if s.failed() {
		return s
	}
	fn(newScope(s.conn.AddConjunction(false), s.composite, s.err))
	return s
}

// NoneOf adds a negated conjunction built by fn: documents matching every
// restriction in fn are excluded.
func (s *Scope) NoneOf(fn func(*Scope)) *Scope {
	if s.failed() {
		return s
	}
	fn(newScope(s.conn.AddConjunction(true), s.composite, s.err))
	return s
}
