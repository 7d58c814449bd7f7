// Package normalize migrates raw policy declarations, canonical or legacy
// shorthand, into one canonical NormalizedPolicies value.
//
// Normalization happens exactly once per run, at run start. The result is
// immutable for the run's lifetime: conditions are compiled here, legacy
// shorthand (variantCount, replanAfter, triggerReplanAfter) is folded into
// equivalent canonical policies here, and the engine only ever sees the
// canonical form.
//
// Normalization is designed to always succeed on degraded input: malformed
// legacy shapes and uncompilable conditions are recorded (legacy notes,
// compile warnings) and skipped rather than aborting. The exceptions are
// structural errors in canonical policies (an unknown trigger or action
// kind, or a goto action without a target), which are fatal at this
// boundary because they could never evaluate correctly later.
package normalize
