package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"draftline-hq/meridian/pkg/rcl"
)

// Snapshot is a read-only view of the run context at one moment: the current
// values of all facets, keyed by facet name, each entry holding at least a
// "value". The engine never retains a snapshot across calls; the
// orchestrator supplies a fresh one per evaluation.
type Snapshot struct {
	raw []byte
}

// NewSnapshot wraps a raw run-context document. The document's top-level
// shape is {"facets": {...}}; compiled variable paths resolve into it after
// the fixed metadata.runContextSnapshot prefix is stripped.
func NewSnapshot(doc json.RawMessage) Snapshot {
	return Snapshot{raw: doc}
}

// SnapshotFromFacets builds a snapshot from an in-memory facet map.
func SnapshotFromFacets(facets map[string]any) (Snapshot, error) {
	raw, err := json.Marshal(map[string]any{"facets": facets})
	if err != nil {
		return Snapshot{}, fmt.Errorf("cannot encode facets: %w", err)
	}
	return Snapshot{raw: raw}, nil
}

// Lookup resolves an absolute variable path against the snapshot. The
// second return is false when the path does not resolve; callers treat that
// as a non-match, never an error.
func (s Snapshot) Lookup(path string) (gjson.Result, bool) {
	if len(s.raw) == 0 {
		return gjson.Result{}, false
	}

	rel := strings.TrimPrefix(path, rcl.SnapshotPrefix)
	result := gjson.GetBytes(s.raw, rel)
	return result, result.Exists()
}

// IsZero returns true for the zero snapshot.
func (s Snapshot) IsZero() bool {
	return len(s.raw) == 0
}
