package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/domain/ports/adapter"
)

var _ adapter.MessagingGateway = (*NoopGateway)(nil)

// NoopGateway logs instead of talking to Telegram. Used in dev mode when no
// bot token should be burned on local runs.
type NoopGateway struct {
	log *zerolog.Logger
}

func NewNoopGateway(logger *zerolog.Logger) *NoopGateway {
	l := logger.With().Str("component", "NoopGateway").Logger()
	return &NoopGateway{log: &l}
}

func (g *NoopGateway) SendMessage(ctx context.Context, chatID int64, threadID int, text string) error {
	g.log.Info().Int64("chat", chatID).Int("thread", threadID).Str("text", text).Msg("send (noop)")
	return nil
}

func (g *NoopGateway) SendAlbum(ctx context.Context, chatID int64, threadID int, batch model.Batch, caption string) error {
	g.log.Info().Int64("chat", chatID).Int("thread", threadID).Int("items", len(batch)).Str("caption", caption).Msg("album (noop)")
	return nil
}

func (g *NoopGateway) Copy(ctx context.Context, msg model.Message, destChat int64, threadID int, caption string) error {
	g.log.Info().Int64("chat", destChat).Int("thread", threadID).Str("kind", string(msg.Kind)).Msg("copy (noop)")
	return nil
}

func (g *NoopGateway) CreateTopic(ctx context.Context, chatID int64, title string) (int, error) {
	g.log.Info().Int64("chat", chatID).Str("title", title).Msg("create topic (noop)")
	return 1, nil
}

func (g *NoopGateway) IsChatMember(ctx context.Context, chatID, userID int64) (bool, error) {
	return false, nil
}
