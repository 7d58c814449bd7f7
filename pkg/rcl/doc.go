// Package rcl implements the run condition language: the small, constrained
// expression language runtime policies use to gate their triggers on the run
// context snapshot.
//
// RCL is deliberately tiny. An expression is a single line and is either a
// comparison over dotted facet paths:
//
//	facets.planKnobs.hookIntensity < 0.6
//
// or a quantifier over a collection with an element-relative predicate:
//
//	some(facets.recommendationSet.value, resolution == "unresolved")
//
// Supported comparison operators: ==, !=, <, <=, >, >=. There are no user
// functions, no arithmetic, no I/O and no access to anything outside the
// snapshot document.
//
// # Compile-then-evaluate
//
// Compilation happens once, at policy normalization time; the resulting
// CompiledCondition carries the logic tree and the absolute variable paths
// it dereferences, and is evaluated repeatedly against live snapshots
// without touching the source string again. Compile is a pure function:
// identical input produces byte-identical output.
//
// # Degradation
//
// Compile never fails. Expressions it cannot understand compile to a
// never-matching node with a diagnostic in Warnings, so a single malformed
// policy degrades to inert instead of crashing run evaluation.
package rcl
