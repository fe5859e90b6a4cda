package scope

import (
	"strings"

	"github.com/kailas-cloud/solrq/internal/domain/field"
)

// Operator joins the components of a connective.
type Operator string

// Connective operators.
const (
	And Operator = "AND"
	Or  Operator = "OR"
)

// Inverse returns the De Morgan dual of the operator.
func (o Operator) Inverse() Operator {
	if o == And {
		return Or
	}
	return And
}

// Connective is an ordered boolean grouping of components: a conjunction
// (AND) or a disjunction (OR).
type Connective struct {
	op         Operator
	negated    bool
	components []Component
}

// NewConjunction creates an empty AND connective.
func NewConjunction(negated bool) *Connective {
	return &Connective{op: And, negated: negated}
}

// NewDisjunction creates an empty OR connective.
func NewDisjunction(negated bool) *Connective {
	return &Connective{op: Or, negated: negated}
}

// Operator returns AND or OR.
func (c *Connective) Operator() Operator { return c.op }

// Components returns the components in insertion order.
func (c *Connective) Components() []Component { return c.components }

// Len returns the number of components.
func (c *Connective) Len() int { return len(c.components) }

// Add appends a component.
func (c *Connective) Add(comp Component) *Connective {
	c.components = append(c.components, comp)
	return c
}

// AddRestriction builds and appends a restriction of the given kind.
func (c *Connective) AddRestriction(kind Kind, f field.Field, value any, negated bool) (*Restriction, error) {
	r, err := NewRestriction(kind, f, value, negated)
	if err != nil {
		return nil, err
	}
	c.Add(r)
	return r, nil
}

// AddShorthand appends a restriction whose kind is inferred from the value.
func (c *Connective) AddShorthand(f field.Field, value any, negated bool) (*Restriction, error) {
	return c.AddRestriction(Shorthand(value), f, value, negated)
}

// AddConjunction appends and returns a nested AND connective.
func (c *Connective) AddConjunction(negated bool) *Connective {
	n := NewConjunction(negated)
	c.Add(n)
	return n
}

// AddDisjunction appends and returns a nested OR connective.
func (c *Connective) AddDisjunction(negated bool) *Connective {
	n := NewDisjunction(negated)
	c.Add(n)
	return n
}

// Negated implements Component. It reflects the rendered phrase, which
// differs from the flag after denormalization.
func (c *Connective) Negated() bool {
	return c.phrases().pos.negated
}

// NegationFlag returns the flag the connective was built with.
func (c *Connective) NegationFlag() bool { return c.negated }

// Negate implements Component. The result uses the inverse operator over
// individually negated components, keeping the negation flag.
func (c *Connective) Negate() Component {
	n := &Connective{op: c.op.Inverse(), negated: c.negated}
	for _, comp := range c.components {
		n.components = append(n.components, comp.Negate())
	}
	return n
}

// Denormalize rewrites the connective with De Morgan's law into the inverse
// operator with flipped negation and individually negated components.
// The result is logically equivalent to c.
func (c *Connective) Denormalize() *Connective {
	n := &Connective{op: c.op.Inverse(), negated: !c.negated}
	for _, comp := range c.components {
		n.components = append(n.components, comp.Negate())
	}
	return n
}

// phrase is a rendered component and whether it reads as negated.
type phrase struct {
	text    string
	negated bool
}

// phrasePair holds the phrases of a component and of its negation.
type phrasePair struct {
	pos phrase
	neg phrase
}

func (p phrasePair) flip() phrasePair { return phrasePair{pos: p.neg, neg: p.pos} }

// phrases renders c and its negation in one pass over the subtree. The
// negation of c is the inverse operator over the negated children.
func (c *Connective) phrases() phrasePair {
	children := make([]phrasePair, len(c.components))
	flipped := make([]phrasePair, len(c.components))
	for i, comp := range c.components {
		children[i] = phrasesOf(comp)
		flipped[i] = children[i].flip()
	}
	return phrasePair{
		pos: render(c.op, c.negated, children),
		neg: render(c.op.Inverse(), c.negated, flipped),
	}
}

func phrasesOf(comp Component) phrasePair {
	if c, ok := comp.(*Connective); ok {
		return c.phrases()
	}
	n := comp.Negate()
	return phrasePair{
		pos: phrase{text: comp.BooleanPhrase(), negated: comp.Negated()},
		neg: phrase{text: n.BooleanPhrase(), negated: n.Negated()},
	}
}

// render joins rendered children. A negated phrase inside a Lucene OR group
// cannot match on its own, so disjunctions with negated members are phrased
// as negated conjunctions of the negated members (see Denormalize).
func render(op Operator, negated bool, children []phrasePair) phrase {
	if op == Or {
		for _, ch := range children {
			if ch.pos.negated {
				flipped := make([]phrasePair, len(children))
				for i := range children {
					flipped[i] = children[i].flip()
				}
				return render(And, !negated, flipped)
			}
		}
	}

	live := make([]phrasePair, 0, len(children))
	for _, ch := range children {
		if ch.pos.text != "" {
			live = append(live, ch)
		}
	}
	switch len(live) {
	case 0:
		return phrase{}
	case 1:
		if negated {
			return live[0].neg
		}
		return live[0].pos
	}

	texts := make([]string, 0, len(live))
	for _, ch := range live {
		texts = append(texts, ch.pos.text)
	}
	joined := "(" + strings.Join(texts, " "+string(op)+" ") + ")"
	if negated {
		return phrase{text: "-" + joined, negated: true}
	}
	return phrase{text: joined}
}

// BooleanPhrase implements Component. Empty connectives render "", a single
// component renders without parentheses.
func (c *Connective) BooleanPhrase() string {
	return c.phrases().pos.text
}

func (c *Connective) String() string { return c.BooleanPhrase() }

func (*Connective) isComponent() {}
