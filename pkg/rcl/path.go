package rcl

import "strings"

// SnapshotPrefix is the fixed root all compiled variable paths share.
// DSL-derived and natively-authored conditions both address the run
// context through it, so the evaluator resolves them uniformly.
const SnapshotPrefix = "metadata.runContextSnapshot."

// facetRoot is the segment under which facet values live.
const facetRoot = "facets"

// CanonicalizePath rewrites a facet reference into its absolute snapshot
// path. Facet payloads live under a "value" key, so the segment is inserted
// when the author left it out:
//
//	facets.planKnobs.hookIntensity -> metadata.runContextSnapshot.facets.planKnobs.value.hookIntensity
//	facets.recommendationSet.value -> metadata.runContextSnapshot.facets.recommendationSet.value
//	planKnobs.hookIntensity        -> metadata.runContextSnapshot.facets.planKnobs.value.hookIntensity
//
// Already-absolute paths are re-canonicalized through the same rules.
func CanonicalizePath(path string) string {
	path = strings.TrimPrefix(path, SnapshotPrefix)

	parts := strings.Split(path, ".")
	if parts[0] == facetRoot {
		parts = parts[1:]
	}
	if len(parts) == 0 || parts[0] == "" {
		return SnapshotPrefix + facetRoot
	}

	facet := parts[0]
	rest := parts[1:]

	segments := []string{facetRoot, facet, "value"}
	if len(rest) > 0 && rest[0] == "value" {
		rest = rest[1:]
	}
	segments = append(segments, rest...)

	return SnapshotPrefix + strings.Join(segments, ".")
}

// ShorthandPath renders an absolute snapshot path back in facet shorthand,
// used for the canonical DSL rendering.
func ShorthandPath(path string) string {
	return strings.TrimPrefix(path, SnapshotPrefix)
}
