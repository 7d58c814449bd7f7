package audit

import (
	"context"
	"testing"
	"time"
)

func TestPrunerDeletesExpiredRecords(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	now := time.Now().UTC()
	storage.Store(ctx, record("expired", "run-a", "p", "replan", now.AddDate(0, 0, -120)))
	storage.Store(ctx, record("fresh", "run-a", "p", "replan", now.AddDate(0, 0, -1)))

	p := NewPruner(storage, &RetentionConfig{RetentionDays: 90})
	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	remaining, _ := storage.Query(ctx, nil)
	if len(remaining) != 1 || remaining[0].ID != "fresh" {
		t.Errorf("wrong record survived: %+v", remaining)
	}
}

func TestPrunerDisabledByZeroRetention(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	storage.Store(ctx, record("old", "run-a", "p", "replan", time.Now().UTC().AddDate(-1, 0, 0)))

	p := NewPruner(storage, &RetentionConfig{RetentionDays: 0})
	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("zero retention must prune nothing, deleted %d", deleted)
	}
}

func TestSchedulerRejectsInvalidCron(t *testing.T) {
	p := NewPruner(NewMemoryStorage(), &RetentionConfig{
		RetentionDays: 90,
		PruneSchedule: "not a cron expression",
	})

	s := NewScheduler(p)
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected an error for an invalid schedule")
		s.Stop()
	}
}

func TestSchedulerEmptyScheduleIsNoop(t *testing.T) {
	p := NewPruner(NewMemoryStorage(), &RetentionConfig{RetentionDays: 90})
	p.config.PruneSchedule = ""

	s := NewScheduler(p)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("empty schedule must be a no-op: %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler must not run without a schedule")
	}
}
