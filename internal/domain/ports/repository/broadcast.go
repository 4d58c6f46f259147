package repository

import (
	"context"

	"telegram-support-bot/internal/domain/model"
)

// -----------------------------
// Pending broadcasts
// -----------------------------

type BroadcastRepository interface {
	CreatePending(ctx context.Context, p *model.PendingBroadcast) error
	GetPending(ctx context.Context, id string) (*model.PendingBroadcast, error)
	// ListPending returns broadcasts without a completion marker, oldest first.
	ListPending(ctx context.Context) ([]*model.PendingBroadcast, error)
	MarkComplete(ctx context.Context, id string) error
}

// -----------------------------
// Delivery log
// -----------------------------

// DeliveryLogRepository records that a user received a post. The storage
// must enforce uniqueness of (user, post) so re-running a broadcast can
// never produce a second record for the same pair.
type DeliveryLogRepository interface {
	Exists(ctx context.Context, userID int64, postID string) (bool, error)
	Record(ctx context.Context, userID int64, postID string) error
}
