// Package metrics exposes Prometheus instrumentation for the policy
// normalization and evaluation engine. All recorders are nil-safe so the
// engine can run uninstrumented in tests and embedded tooling.
package metrics
