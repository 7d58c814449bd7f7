// Package audit persists resolved policy effects so that runtime
// interventions, replans, HITL escalations, forced failures, can be
// explained and queried after a run completes.
//
// # Components
//
//   - Recorder: accepts effects from the engine and writes them to storage
//     on a background worker, so recording never blocks a run
//   - Storage: the persistence interface, with SQLite and in-memory
//     implementations
//   - Pruner and Scheduler: age-based retention, run on a cron schedule
//
// Records carry full attribution (policy id, trigger, phase, node) plus the
// kind-specific action payload as JSON.
package audit
