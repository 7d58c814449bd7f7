package audit

import (
	"context"
	"time"
)

// Record is one persisted policy decision: which policy fired, on which
// run and node, and what intervention it produced. Records exist so that
// replan loops, HITL escalations and forced failures can be explained
// after the fact.
type Record struct {
	// ID is a UUID assigned at record time.
	ID string

	// RunID identifies the pipeline run the decision belongs to.
	RunID string

	// RecordedAt is when the effect was resolved.
	RecordedAt time.Time

	// Attribution.
	PolicyID string
	Trigger  string
	Phase    string
	NodeID   string

	// Action outcome.
	Action    string
	Rationale string

	// Detail carries the kind-specific payload (goto target, fail
	// message, emit event and payload, pause reason) as JSON.
	Detail string
}

// Query filters audit records.
type Query struct {
	RunID    string
	PolicyID string
	Action   string
	Since    time.Time
	Until    time.Time
	Limit    int
}

// Storage persists audit records.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching the query, newest first.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// DeleteBefore removes records recorded before the cutoff and
	// returns the number deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// Close releases storage resources.
	Close() error
}
