// Meridian is the policy toolchain for the Draftline content pipeline.
//
// It normalizes task-envelope policy declarations and resolves runtime
// effects, providing:
//   - Declaration linting with legacy-field migration reports
//   - Offline effect evaluation against lifecycle events and snapshots
//
// Usage:
//
//	# Validate a policy declaration
//	meridian lint --file policies.yaml
//
//	# Resolve the effect for an event against a snapshot
//	meridian eval --file policies.yaml --event event.json --snapshot snapshot.json
//
//	# Show version information
//	meridian version
package main

func main() {
	Execute()
}
