// internal/logic/compile.go
package logic

import (
	"strings"

	"github.com/bcchr/detbuilder/internal/types"
)

/*
 * Expression compilation.
 *
 * Compiles a trigger condition into a tree of Leaf and Branch nodes once,
 * so evaluation is a pure tree walk instead of re-splitting the string on
 * every call.
 *
 * Compilation workflow:
 *   1. Reject blank and oversized conditions
 *   2. SplitCondition: no split -> parse a Leaf clause
 *   3. Split with empty Op (fully parenthesised) -> compile the body
 *   4. Split with && or || -> compile both sides into a Branch
 *
 * Depth counts parenthesised groups only. A flat chain such as
 * "A || B || C ..." recurses once per operator but stays at depth 0, so
 * its length is bounded by MaxConditionLength alone.
 *
 * Malformed leaves fail compilation with ErrMalformedClause rather than
 * evaluating to false: a trigger that cannot be parsed should be visible,
 * not silently never fire.
 */

// Node is a compiled condition node: *Leaf or *Branch.
type Node interface {
	node()
	String() string
}

// Leaf is a single relational clause. It contains no top-level logical
// operator.
type Leaf struct {
	Raw    string
	Clause Clause
}

// Branch joins two nodes with a logical operator.
type Branch struct {
	Left  Node
	Op    LogicalOp
	Right Node
}

func (*Leaf) node()   {}
func (*Branch) node() {}

func (l *Leaf) String() string { return l.Clause.String() }

func (b *Branch) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

// Expression is a compiled trigger condition.
type Expression struct {
	Source string
	Root   Node
}

// Clauses returns the leaf clauses in left-to-right order.
func (e *Expression) Clauses() []Clause {
	var out []Clause
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *Leaf:
			out = append(out, v.Clause)
		case *Branch:
			walk(v.Left)
			walk(v.Right)
		}
	}
	walk(e.Root)
	return out
}

// Compile validates limits and builds the expression tree for cond.
func Compile(cond string) (*Expression, error) {
	s := strings.TrimSpace(cond)
	if s == "" {
		return nil, types.ErrEmptyCondition
	}
	if len(s) > types.MaxConditionLength {
		return nil, types.ErrConditionTooLong
	}

	root, err := build(s, 0)
	if err != nil {
		return nil, err
	}
	return &Expression{Source: s, Root: root}, nil
}

// build compiles one split step. depth counts enclosing groups.
func build(s string, depth int) (Node, error) {
	sp, ok := SplitCondition(s)
	if !ok {
		clause, err := ParseClause(s)
		if err != nil {
			return nil, err
		}
		return &Leaf{Raw: s, Clause: clause}, nil
	}

	if sp.Op == "" {
		if depth >= types.MaxExpressionDepth {
			return nil, types.ErrExpressionTooDeep
		}
		return build(sp.Left, depth+1)
	}

	left, err := build(sp.Left, depth)
	if err != nil {
		return nil, err
	}
	right, err := build(sp.Right, depth)
	if err != nil {
		return nil, err
	}
	return &Branch{Left: left, Op: sp.Op, Right: right}, nil
}
