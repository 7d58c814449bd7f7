// Package ast defines the logic tree produced by the RCL compiler and
// consumed by the policy engine's condition evaluator.
//
// A tree is either a comparison (two operands joined by ==, !=, <, <=, >, >=),
// a quantifier (some/all over a collection path with an element-relative
// predicate), or the degraded never node the compiler emits for input it
// cannot understand.
//
// Quantifier semantics are intentionally non-standard for all: an empty
// collection evaluates to false for both some and all. The all behavior
// predates this package and downstream replan automation depends on it;
// do not "fix" it to vacuous truth.
package ast
