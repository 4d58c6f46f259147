package usecase

import (
	"sync"
	"time"

	"telegram-support-bot/internal/domain/model"
)

// AlbumFlushFunc receives a reassembled media group exactly once.
type AlbumFlushFunc func(batch model.Batch)

// AlbumAccumulator buffers the burst of individually-delivered messages that
// make up one Telegram media group. The first message for an unseen group id
// arms a debounce timer; when it fires, everything accumulated for that id is
// removed atomically and handed to the flush callback as one batch.
//
// A group id is flushed at most once per burst. Stragglers arriving after the
// flush start a fresh (degenerate) batch; downstream must tolerate a split
// album on that unlucky boundary.
type AlbumAccumulator struct {
	latency time.Duration
	flush   AlbumFlushFunc

	mu      sync.Mutex
	pending map[string]model.Batch
}

func NewAlbumAccumulator(latency time.Duration, flush AlbumFlushFunc) *AlbumAccumulator {
	if latency <= 0 {
		latency = 50 * time.Millisecond
	}
	return &AlbumAccumulator{
		latency: latency,
		flush:   flush,
		pending: make(map[string]model.Batch),
	}
}

// Submit buffers msg if it belongs to a media group and reports whether it
// was consumed. Messages without a group id are not touched; the caller
// forwards them immediately as single-item units.
func (a *AlbumAccumulator) Submit(msg model.Message) bool {
	if !msg.PartOfAlbum() {
		return false
	}
	a.mu.Lock()
	if batch, ok := a.pending[msg.AlbumID]; ok {
		a.pending[msg.AlbumID] = append(batch, msg)
		a.mu.Unlock()
		return true
	}
	a.pending[msg.AlbumID] = model.Batch{msg}
	a.mu.Unlock()

	groupID := msg.AlbumID
	time.AfterFunc(a.latency, func() { a.fire(groupID) })
	return true
}

func (a *AlbumAccumulator) fire(groupID string) {
	a.mu.Lock()
	batch := a.pending[groupID]
	delete(a.pending, groupID)
	a.mu.Unlock()

	if len(batch) > 0 {
		a.flush(batch)
	}
}

// PendingGroups reports how many group ids are currently buffered.
func (a *AlbumAccumulator) PendingGroups() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
