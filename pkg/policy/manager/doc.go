// Package manager composes organization-wide default runtime policies with
// the per-run declarations authored in task envelopes.
//
// Teams keep shared policies, budget guards, compliance HITL gates, in YAML
// files under a defaults directory. The manager loads them in lexical file
// order, and Compose appends them after the envelope's own runtime policy
// list so envelope-authored policies always win ties under the engine's
// first-match rule.
//
// An optional Watcher keeps the default set fresh: it watches the directory
// with fsnotify and reloads on change, debounced so a burst of file events
// produces a single reload.
package manager
