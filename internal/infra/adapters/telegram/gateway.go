package telegram

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"telegram-support-bot/internal/config"
	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/domain/ports/adapter"
)

var _ adapter.MessagingGateway = (*Gateway)(nil)

// Gateway implements the outbound messaging port on top of telebot. It owns
// the underlying bot instance; the update-handling frontend attaches to it.
type Gateway struct {
	bot *tele.Bot
}

func NewGateway(cfg *config.BotConfig) (*Gateway, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:     cfg.Token,
		Poller:    &tele.LongPoller{Timeout: cfg.PollTimeout},
		ParseMode: tele.ModeHTML,
	})
	if err != nil {
		return nil, err
	}
	return &Gateway{bot: b}, nil
}

// Bot exposes the underlying instance for the handler frontend.
func (g *Gateway) Bot() *tele.Bot { return g.bot }

func (g *Gateway) SendMessage(ctx context.Context, chatID int64, threadID int, text string) error {
	_, err := g.bot.Send(tele.ChatID(chatID), text, &tele.SendOptions{ThreadID: threadID})
	return classify(err)
}

func (g *Gateway) SendAlbum(ctx context.Context, chatID int64, threadID int, batch model.Batch, caption string) error {
	album := make(tele.Album, 0, len(batch))
	for i, m := range batch {
		// Telegram renders an album caption only when exactly one input
		// carries one; pin it to the first item.
		itemCaption := ""
		if i == 0 {
			itemCaption = caption
		}
		media, err := mediaFor(m, itemCaption)
		if err != nil {
			return err
		}
		album = append(album, media)
	}
	_, err := g.bot.SendAlbum(tele.ChatID(chatID), album, &tele.SendOptions{ThreadID: threadID})
	return classify(err)
}

// Copy re-sends a message into destChat by file id, so the relayed copy
// carries no forward header pointing at the original author.
func (g *Gateway) Copy(ctx context.Context, msg model.Message, destChat int64, threadID int, caption string) error {
	opts := &tele.SendOptions{ThreadID: threadID}

	if msg.Kind == model.MediaNone {
		text := msg.Text
		if caption != "" {
			text = caption
		}
		_, err := g.bot.Send(tele.ChatID(destChat), text, opts)
		return classify(err)
	}

	if caption == "" {
		caption = msg.Caption
	}
	media, err := mediaFor(msg, caption)
	if err != nil {
		return err
	}
	_, err = g.bot.Send(tele.ChatID(destChat), media, opts)
	return classify(err)
}

func (g *Gateway) CreateTopic(ctx context.Context, chatID int64, title string) (int, error) {
	topic, err := g.bot.CreateTopic(&tele.Chat{ID: chatID}, &tele.Topic{Name: title})
	if err != nil {
		return 0, classify(err)
	}
	return topic.ThreadID, nil
}

func (g *Gateway) IsChatMember(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := g.bot.ChatMemberOf(&tele.Chat{ID: chatID}, &tele.User{ID: userID})
	if err != nil {
		return false, classify(err)
	}
	switch member.Role {
	case tele.Creator, tele.Administrator, tele.Member, tele.Restricted:
		return true, nil
	}
	return false, nil
}

// mediaFor rebuilds a sendable media object from the stored file id.
func mediaFor(m model.Message, caption string) (tele.Inputtable, error) {
	f := tele.File{FileID: m.FileID}
	switch m.Kind {
	case model.MediaPhoto:
		return &tele.Photo{File: f, Caption: caption}, nil
	case model.MediaVideo:
		return &tele.Video{File: f, Caption: caption}, nil
	case model.MediaDocument:
		return &tele.Document{File: f, Caption: caption}, nil
	case model.MediaAudio:
		return &tele.Audio{File: f, Caption: caption}, nil
	case model.MediaVoice:
		return &tele.Voice{File: f, Caption: caption}, nil
	case model.MediaAnimation:
		return &tele.Animation{File: f, Caption: caption}, nil
	}
	return nil, fmt.Errorf("unsupported media kind %q", m.Kind)
}

// classify folds the permanent per-recipient telebot failures into the
// domain's unreachable class; everything else passes through as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tele.ErrBlockedByUser) ||
		errors.Is(err, tele.ErrUserIsDeactivated) ||
		errors.Is(err, tele.ErrNotStartedByUser) {
		return fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	return err
}
