// Package policy defines the canonical policy model for run envelopes: the
// TaskPolicies declaration, runtime policies with their trigger and action
// tagged variants, and the raw decode boundary that accepts both the
// canonical shape and the legacy shorthand fields.
//
// Policies are loosely typed only at the decode boundary (RawTaskPolicies).
// Everything past it is closed variants: a TriggerKind, an ActionKind, a
// structured Condition. The normalize subpackage owns migrating raw
// declarations, including legacy shorthand, into NormalizedPolicies; the
// engine subpackage evaluates them.
package policy
