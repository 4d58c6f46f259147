//go:build !integration

package usecase_test

import (
	"sync"
	"testing"
	"time"

	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/usecase"
)

// batchCollector captures flushed batches for assertions.
type batchCollector struct {
	mu      sync.Mutex
	batches []model.Batch
	done    chan struct{}
}

func newBatchCollector(expected int) *batchCollector {
	return &batchCollector{done: make(chan struct{}, expected)}
}

func (c *batchCollector) flush(b model.Batch) {
	c.mu.Lock()
	c.batches = append(c.batches, b)
	c.mu.Unlock()
	c.done <- struct{}{}
}

func (c *batchCollector) wait(t *testing.T, n int) []model.Batch {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for flush %d of %d", i+1, n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Batch, len(c.batches))
	copy(out, c.batches)
	return out
}

func TestAlbumAccumulator(t *testing.T) {
	t.Run("should flush a burst of grouped messages as one batch", func(t *testing.T) {
		// Arrange
		col := newBatchCollector(1)
		acc := usecase.NewAlbumAccumulator(20*time.Millisecond, col.flush)

		// Act
		for i := 1; i <= 3; i++ {
			msg := model.Message{ID: i, AlbumID: "g1", Kind: model.MediaPhoto}
			if !acc.Submit(msg) {
				t.Fatalf("grouped message %d must be consumed", i)
			}
		}

		// Assert
		batches := col.wait(t, 1)
		if len(batches) != 1 {
			t.Fatalf("expected 1 batch, got %d", len(batches))
		}
		if len(batches[0]) != 3 {
			t.Errorf("expected 3 items in the batch, got %d", len(batches[0]))
		}
		if acc.PendingGroups() != 0 {
			t.Errorf("nothing may stay buffered after the flush, %d groups left", acc.PendingGroups())
		}
	})

	t.Run("should pass single messages through untouched", func(t *testing.T) {
		col := newBatchCollector(1)
		acc := usecase.NewAlbumAccumulator(20*time.Millisecond, col.flush)

		if acc.Submit(model.Message{ID: 1, Text: "plain"}) {
			t.Error("a message without a group id must not be consumed")
		}
		if acc.PendingGroups() != 0 {
			t.Error("nothing may be buffered for ungrouped messages")
		}
	})

	t.Run("should keep concurrent groups separate", func(t *testing.T) {
		// Arrange
		col := newBatchCollector(2)
		acc := usecase.NewAlbumAccumulator(20*time.Millisecond, col.flush)

		// Act: interleave two bursts.
		acc.Submit(model.Message{ID: 1, AlbumID: "g1", Kind: model.MediaPhoto})
		acc.Submit(model.Message{ID: 2, AlbumID: "g2", Kind: model.MediaVideo})
		acc.Submit(model.Message{ID: 3, AlbumID: "g1", Kind: model.MediaPhoto})
		acc.Submit(model.Message{ID: 4, AlbumID: "g2", Kind: model.MediaVideo})

		// Assert
		batches := col.wait(t, 2)
		if len(batches) != 2 {
			t.Fatalf("expected 2 batches, got %d", len(batches))
		}
		for _, b := range batches {
			if len(b) != 2 {
				t.Errorf("each group must flush its own 2 items, got %d", len(b))
			}
			for _, m := range b {
				if m.AlbumID != b[0].AlbumID {
					t.Error("batches must never mix groups")
				}
			}
		}
	})

	t.Run("should preserve arrival order inside a batch", func(t *testing.T) {
		col := newBatchCollector(1)
		acc := usecase.NewAlbumAccumulator(20*time.Millisecond, col.flush)

		for i := 1; i <= 4; i++ {
			acc.Submit(model.Message{ID: i, AlbumID: "g1", Kind: model.MediaPhoto})
		}

		batches := col.wait(t, 1)
		for i, m := range batches[0] {
			if m.ID != i+1 {
				t.Fatalf("order broken at index %d: got id %d", i, m.ID)
			}
		}
	})

	t.Run("should start a fresh batch for stragglers after the flush", func(t *testing.T) {
		col := newBatchCollector(2)
		acc := usecase.NewAlbumAccumulator(10*time.Millisecond, col.flush)

		acc.Submit(model.Message{ID: 1, AlbumID: "g1", Kind: model.MediaPhoto})
		col.wait(t, 1)

		// Same group id after the flush: a new degenerate batch, not a panic.
		acc.Submit(model.Message{ID: 2, AlbumID: "g1", Kind: model.MediaPhoto})
		batches := col.wait(t, 1)
		if len(batches) != 2 {
			t.Fatalf("expected a second flush, got %d batches", len(batches))
		}
	})
}
