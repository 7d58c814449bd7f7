// Package engine evaluates a run's normalized policies against lifecycle
// events and the live run context snapshot, producing the typed effect
// (replan, hitl, goto, fail, emit, pause) the orchestrator should apply.
//
// # Architecture
//
// The engine uses a three-layer design:
//
//  1. Trigger Matcher - filters policies by trigger kind and node selector
//  2. Condition Evaluator - resolves compiled or native logic trees against the snapshot
//  3. Action Resolver - materializes the effect for the first matching policy
//
// # Evaluation Flow
//
//	lifecycle event + snapshot
//	       ↓
//	Match (enabled policies, trigger kind, selector; list order preserved)
//	       ↓
//	For each candidate, in list order:
//	  Evaluate condition → true?
//	    Yes → build Effect (first match wins) → return
//	    No → next candidate
//	       ↓
//	nil (no intervention)
//
// # Determinism and safety
//
// Matching is order-sensitive: the policy list order from normalization is
// the tie-break order, so the same normalized policies, event and snapshot
// always produce the same effect. Evaluation never errors: missing snapshot
// paths and degraded conditions resolve to false, so one bad policy cannot
// crash an otherwise-valid run.
//
// # Thread Safety
//
// Engine holds no per-run state and is safe for concurrent use across runs.
// Timing, cancellation, persistence and HITL wait states all belong to the
// embedding orchestrator; the engine is synchronous and never blocks.
package engine
