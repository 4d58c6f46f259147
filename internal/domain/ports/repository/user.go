package repository

import (
	"context"

	"telegram-support-bot/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	// Create inserts a previously-unseen user. Name fields are written once
	// here and never updated afterwards.
	Create(ctx context.Context, u *model.User) error
	Find(ctx context.Context, id int64) (*model.User, error)

	// SetActiveCategory sets or clears (empty category) the single active
	// category used for routing.
	SetActiveCategory(ctx context.Context, id int64, c model.Category) error
	SetFlag(ctx context.Context, id int64, c model.Category, on bool) error
	SetBanned(ctx context.Context, id int64, banned bool) error

	// BindTopic persists the thread id for (user, category) with a
	// compare-and-set write: it succeeds only while the binding is still
	// unset and returns domain.ErrDuplicateBinding once a binding exists.
	BindTopic(ctx context.Context, id int64, c model.Category, threadID int) error

	// FindByTopic resolves the owning user of a staff topic thread.
	FindByTopic(ctx context.Context, c model.Category, threadID int) (int64, error)

	// ListSubscribers enumerates users whose flag for c is currently set,
	// in stable (id) order. Banned users are included; broadcast delivery
	// does not distinguish them.
	ListSubscribers(ctx context.Context, c model.Category) ([]*model.User, error)
}
