package ast

import (
	"encoding/json"
	"sort"
)

// Op represents an operator in a compiled logic tree.
type Op string

const (
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpLessThan     Op = "<"
	OpLessEqual    Op = "<="
	OpGreaterThan  Op = ">"
	OpGreaterEqual Op = ">="

	// OpSome matches when at least one element of a collection satisfies
	// the predicate. An empty collection never matches.
	OpSome Op = "some"

	// OpAll matches when every element of a collection satisfies the
	// predicate. An empty collection never matches (see package doc).
	OpAll Op = "all"

	// OpNever is the degraded form produced for expressions the compiler
	// could not understand. It never matches.
	OpNever Op = "never"
)

// Operand is one side of a comparison: either a variable reference
// (a dotted path into the run context snapshot) or a literal value.
type Operand struct {
	Var     string // variable path when IsVar is true
	Literal any    // literal value otherwise (float64, string, bool or nil)
	IsVar   bool
}

// Variable returns a reference operand for the given path.
func Variable(path string) *Operand {
	return &Operand{Var: path, IsVar: true}
}

// Literal returns a literal operand.
func Literal(v any) *Operand {
	return &Operand{Literal: v}
}

// Node is a single node of a compiled logic tree. Comparison nodes carry
// Left/Right operands; quantifier nodes carry Collection and Predicate.
// Predicate operand paths are relative to the collection element.
type Node struct {
	Op         Op
	Left       *Operand
	Right      *Operand
	Collection string
	Predicate  *Node
}

// Never returns a logic node that can never match.
func Never() *Node {
	return &Node{Op: OpNever}
}

// IsComparison returns true for the six comparison operators.
func (n *Node) IsComparison() bool {
	switch n.Op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual:
		return true
	}
	return false
}

// IsQuantifier returns true for some/all nodes.
func (n *Node) IsQuantifier() bool {
	return n.Op == OpSome || n.Op == OpAll
}

// Variables returns the absolute variable paths this tree dereferences,
// sorted and deduplicated. Quantifier predicates resolve against collection
// elements, so their relative paths are not included.
func (n *Node) Variables() []string {
	set := make(map[string]struct{})
	n.collectVariables(set)

	vars := make([]string, 0, len(set))
	for v := range set {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

func (n *Node) collectVariables(set map[string]struct{}) {
	if n == nil {
		return
	}

	if n.IsQuantifier() {
		if n.Collection != "" {
			set[n.Collection] = struct{}{}
		}
		return
	}

	for _, op := range []*Operand{n.Left, n.Right} {
		if op != nil && op.IsVar {
			set[op.Var] = struct{}{}
		}
	}
}

// MarshalJSON renders the node in json-logic form, e.g.
//
//	{"<": [{"var": "metadata...hookIntensity"}, 0.6]}
//	{"some": [{"var": "metadata...value"}, {"==": [{"var": "resolution"}, "unresolved"]}]}
//	{"never": []}
//
// The rendering is deterministic: identical trees produce identical bytes.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n.Op == OpNever {
		return json.Marshal(map[string][]any{string(OpNever): {}})
	}

	if n.IsQuantifier() {
		return json.Marshal(map[string][]any{
			string(n.Op): {map[string]string{"var": n.Collection}, n.Predicate},
		})
	}

	return json.Marshal(map[string][]any{
		string(n.Op): {n.Left.jsonOperand(), n.Right.jsonOperand()},
	})
}

func (o *Operand) jsonOperand() any {
	if o.IsVar {
		return map[string]string{"var": o.Var}
	}
	return o.Literal
}
