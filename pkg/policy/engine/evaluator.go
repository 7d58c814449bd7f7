package engine

import (
	"github.com/tidwall/gjson"

	"draftline-hq/meridian/pkg/policy"
	"draftline-hq/meridian/pkg/rcl/ast"
)

// Evaluate resolves a policy's condition against the snapshot. A policy
// without a condition is unconditionally true once its trigger matched.
// Evaluation is read-only and never errors: missing snapshot paths, type
// mismatches and degraded compilations all resolve to false.
func (e *Engine) Evaluate(p *policy.RuntimePolicy, snap Snapshot) bool {
	cond := p.Trigger.Condition
	if cond == nil {
		return true
	}

	logic := cond.Logic()
	if logic == nil {
		// A DSL condition that was never compiled cannot be trusted to
		// match; treat it like a degraded compilation.
		return false
	}

	return evalNode(logic, snapshotResolver{snap})
}

// valueResolver resolves operand variable paths. The snapshot resolver
// handles absolute paths; the element resolver handles quantifier
// predicates, whose paths are relative to a collection element.
type valueResolver interface {
	resolve(path string) (gjson.Result, bool)
}

type snapshotResolver struct {
	snap Snapshot
}

func (r snapshotResolver) resolve(path string) (gjson.Result, bool) {
	return r.snap.Lookup(path)
}

type elementResolver struct {
	elem gjson.Result
}

func (r elementResolver) resolve(path string) (gjson.Result, bool) {
	result := r.elem.Get(path)
	return result, result.Exists()
}

func evalNode(n *ast.Node, resolver valueResolver) bool {
	switch {
	case n == nil || n.Op == ast.OpNever:
		return false

	case n.IsQuantifier():
		return evalQuantifier(n, resolver)

	case n.IsComparison():
		return evalComparison(n, resolver)

	default:
		return false
	}
}

// evalQuantifier evaluates some/all over the referenced collection. An
// empty or missing collection is false for both quantifiers; the all
// behavior is deliberate (see package ast).
func evalQuantifier(n *ast.Node, resolver valueResolver) bool {
	collection, ok := resolver.resolve(n.Collection)
	if !ok || !collection.IsArray() {
		return false
	}

	elements := collection.Array()
	if len(elements) == 0 {
		return false
	}

	for _, elem := range elements {
		matched := evalNode(n.Predicate, elementResolver{elem})

		if n.Op == ast.OpSome && matched {
			return true
		}
		if n.Op == ast.OpAll && !matched {
			return false
		}
	}

	return n.Op == ast.OpAll
}

func evalComparison(n *ast.Node, resolver valueResolver) bool {
	left, ok := resolveOperand(n.Left, resolver)
	if !ok {
		return false
	}
	right, ok := resolveOperand(n.Right, resolver)
	if !ok {
		return false
	}

	switch n.Op {
	case ast.OpEqual:
		return valuesEqual(left, right)
	case ast.OpNotEqual:
		return !valuesEqual(left, right)
	case ast.OpLessThan, ast.OpLessEqual, ast.OpGreaterThan, ast.OpGreaterEqual:
		return compareNumeric(n.Op, left, right)
	default:
		return false
	}
}

// operandValue is a resolved operand: a Go literal or a gjson result
// normalized through Value().
type operandValue struct {
	value any
}

func resolveOperand(o *ast.Operand, resolver valueResolver) (operandValue, bool) {
	if !o.IsVar {
		return operandValue{value: o.Literal}, true
	}

	result, ok := resolver.resolve(o.Var)
	if !ok {
		return operandValue{}, false
	}
	return operandValue{value: result.Value()}, true
}

// valuesEqual compares two resolved values. Numbers compare numerically
// across int/float representations; everything else compares by exact
// value.
func valuesEqual(a, b operandValue) bool {
	if an, ok := asFloat(a.value); ok {
		if bn, ok := asFloat(b.value); ok {
			return an == bn
		}
		return false
	}

	switch av := a.value.(type) {
	case string:
		bv, ok := b.value.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.value.(bool)
		return ok && av == bv
	case nil:
		return b.value == nil
	default:
		return false
	}
}

func compareNumeric(op ast.Op, a, b operandValue) bool {
	an, ok := asFloat(a.value)
	if !ok {
		return false
	}
	bn, ok := asFloat(b.value)
	if !ok {
		return false
	}

	switch op {
	case ast.OpLessThan:
		return an < bn
	case ast.OpLessEqual:
		return an <= bn
	case ast.OpGreaterThan:
		return an > bn
	case ast.OpGreaterEqual:
		return an >= bn
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
