// Package query builds JQL filter expressions and bounded search requests for
// the upstream issue tracker.
//
// Expressions are assembled as a small AST and rendered, so every value passes
// through the same quoting rules:
//
//	project = "PROJ" AND fixVersion = 10001
//	project = "PROJ" AND ("Epic Link" = "PROJ-7" OR parent = "PROJ-7")
//	project = "PROJ" AND updated >= "2025-01-15 10:00" ORDER BY updated DESC
package query

import (
	"strings"
)

// Node is a node in a JQL expression tree.
type Node interface {
	node() // marker method
	String() string
}

// Op is a JQL comparison operator.
type Op int

const (
	OpEquals Op = iota
	OpGreaterEq
)

func (op Op) String() string {
	switch op {
	case OpEquals:
		return "="
	case OpGreaterEq:
		return ">="
	default:
		return "?"
	}
}

// Clause is a single field comparison.
type Clause struct {
	Field string
	Op    Op
	Value string
	// Bare renders Value without quotes; only set for values already known to
	// be plain numbers.
	Bare bool
}

func (c *Clause) node() {}
func (c *Clause) String() string {
	value := c.Value
	if !c.Bare {
		value = Quote(value)
	}
	return quoteField(c.Field) + " " + c.Op.String() + " " + value
}

// And joins terms with AND; nested Or terms are parenthesized.
type And struct {
	Terms []Node
}

func (n *And) node() {}
func (n *And) String() string {
	parts := make([]string, 0, len(n.Terms))
	for _, t := range n.Terms {
		s := t.String()
		if or, ok := t.(*Or); ok && len(or.Terms) > 1 {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " AND ")
}

// Or joins terms with OR.
type Or struct {
	Terms []Node
}

func (n *Or) node() {}
func (n *Or) String() string {
	parts := make([]string, 0, len(n.Terms))
	for _, t := range n.Terms {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " OR ")
}

// Quote renders s as a JQL string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// quoteField quotes field names that contain spaces ("Epic Link").
func quoteField(field string) string {
	if strings.ContainsAny(field, " \t") {
		return Quote(field)
	}
	return field
}
