package adapter

import (
	"context"

	"telegram-support-bot/internal/domain/model"
)

// MessagingGateway is the transport capability the routing core consumes.
// Implementations must classify "user blocked the bot / left the chat"
// failures as domain.ErrUnreachable; every other failure is transient from
// the core's point of view and propagates as-is.
type MessagingGateway interface {
	// SendMessage sends plain text into a chat, optionally into a forum
	// topic thread (threadID 0 targets the main chat).
	SendMessage(ctx context.Context, chatID int64, threadID int, text string) error

	// SendAlbum sends a reassembled batch as one media group. caption, if
	// non-empty, replaces the caption of exactly one item; the rest are
	// sent caption-less so the label never repeats.
	SendAlbum(ctx context.Context, chatID int64, threadID int, batch model.Batch, caption string) error

	// Copy re-posts a single message into destChat without a forward
	// header. A non-empty caption overrides the original text/caption.
	Copy(ctx context.Context, msg model.Message, destChat int64, threadID int, caption string) error

	// CreateTopic creates a forum topic in a staff group chat and returns
	// its thread id.
	CreateTopic(ctx context.Context, chatID int64, title string) (int, error)

	// IsChatMember reports whether the user currently belongs to the chat
	// (member, admin or owner).
	IsChatMember(ctx context.Context, chatID int64, userID int64) (bool, error)
}
