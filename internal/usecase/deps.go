package usecase

import (
	"context"
	"time"

	"telegram-support-bot/internal/domain/model"
)

// Translator resolves i18n keys to user-facing text. Satisfied by
// infra/i18n.Translator.
type Translator interface {
	T(key string, args ...interface{}) string
}

// Locker is a distributed try-lock, used to serialize topic creation for one
// (user, category) pair across concurrent album parts. Satisfied by the
// Redis locker.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// BindingCache is a best-effort lookaside over topic bindings. Misses fall
// through to the repository; writes happen right after a successful binding
// so a stale "no topic" is never served after creation.
type BindingCache interface {
	GetThread(ctx context.Context, userID int64, c model.Category) (int, bool)
	PutThread(ctx context.Context, userID int64, c model.Category, threadID int)
	GetOwner(ctx context.Context, c model.Category, threadID int) (int64, bool)
	PutOwner(ctx context.Context, c model.Category, threadID int, userID int64)
}

// CategoryChats resolves the deploy-time mapping between categories and
// staff group chats. Satisfied by config.CategoriesConfig.
type CategoryChats interface {
	StaffChat(c model.Category) (int64, bool)
	CategoryOf(chatID int64) (model.Category, bool)
}
