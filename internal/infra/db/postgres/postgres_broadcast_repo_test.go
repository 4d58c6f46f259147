//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
)

func TestBroadcastRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewPostgresBroadcastRepo(testPool)
	deliveries := NewPostgresDeliveryLogRepo(testPool)
	ctx := context.Background()

	t.Run("should round-trip a pending broadcast", func(t *testing.T) {
		cleanup(t)

		p, err := model.NewPendingBroadcast(model.CategoryYouthPolicy, "grant deadline", time.Time{})
		if err != nil {
			t.Fatalf("NewPendingBroadcast: %v", err)
		}
		if err := repo.CreatePending(ctx, p); err != nil {
			t.Fatalf("CreatePending: %v", err)
		}

		got, err := repo.GetPending(ctx, p.ID)
		if err != nil {
			t.Fatalf("GetPending: %v", err)
		}
		if got.Text != "grant deadline" || got.Category != model.CategoryYouthPolicy {
			t.Errorf("unexpected post: %+v", got)
		}
		if !got.ScheduledAt.IsZero() {
			t.Errorf("immediate post must have zero ScheduledAt, got %v", got.ScheduledAt)
		}
		if got.Complete() {
			t.Error("fresh post must not be complete")
		}
	})

	t.Run("should preserve the schedule and drop completed posts from the list", func(t *testing.T) {
		cleanup(t)

		future := time.Now().Add(2 * time.Hour).Truncate(time.Second)
		scheduled, _ := model.NewPendingBroadcast(model.CategoryLegalSupport, "later", future)
		immediate, _ := model.NewPendingBroadcast(model.CategoryLegalSupport, "now", time.Time{})
		_ = repo.CreatePending(ctx, scheduled)
		_ = repo.CreatePending(ctx, immediate)

		got, _ := repo.GetPending(ctx, scheduled.ID)
		if !got.ScheduledAt.Equal(future) {
			t.Errorf("schedule not preserved: got %v want %v", got.ScheduledAt, future)
		}

		if err := repo.MarkComplete(ctx, immediate.ID); err != nil {
			t.Fatalf("MarkComplete: %v", err)
		}
		pending, err := repo.ListPending(ctx)
		if err != nil {
			t.Fatalf("ListPending: %v", err)
		}
		if len(pending) != 1 || pending[0].ID != scheduled.ID {
			t.Errorf("expected only the scheduled post pending, got %+v", pending)
		}

		if err := repo.MarkComplete(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("MarkComplete on unknown id must report ErrNotFound, got: %v", err)
		}
	})

	t.Run("should keep delivery records unique per user and post", func(t *testing.T) {
		cleanup(t)
		p, _ := model.NewPendingBroadcast(model.CategoryYouthPolicy, "text", time.Time{})
		_ = repo.CreatePending(ctx, p)

		if has, _ := deliveries.Exists(ctx, 7, p.ID); has {
			t.Fatal("no record may exist yet")
		}
		if err := deliveries.Record(ctx, 7, p.ID); err != nil {
			t.Fatalf("Record: %v", err)
		}
		// Idempotent on the same pair.
		if err := deliveries.Record(ctx, 7, p.ID); err != nil {
			t.Fatalf("second Record must be a no-op, got: %v", err)
		}
		if has, _ := deliveries.Exists(ctx, 7, p.ID); !has {
			t.Error("record must be visible")
		}

		var n int
		if err := testPool.QueryRow(ctx, `SELECT COUNT(*) FROM post_deliveries`).Scan(&n); err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 1 {
			t.Errorf("expected exactly 1 row, got %d", n)
		}
	})
}
