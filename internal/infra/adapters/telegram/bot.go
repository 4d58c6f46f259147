package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"telegram-support-bot/internal/application"
	"telegram-support-bot/internal/config"
	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/domain/ports/adapter"
	"telegram-support-bot/internal/infra/logging"
	"telegram-support-bot/internal/infra/metrics"
	red "telegram-support-bot/internal/infra/redis"
	"telegram-support-bot/internal/usecase"
)

// handlerTimeout bounds the work done for one inbound update.
const handlerTimeout = 30 * time.Second

// Bot is the inbound side: it polls updates, debounces albums, throttles
// users and dispatches everything into the facade and the routing usecase.
type Bot struct {
	gateway *Gateway
	out     adapter.MessagingGateway
	cfg     *config.Config
	facade  *application.BotFacade
	routing usecase.RoutingUseCase
	albums  *usecase.AlbumAccumulator
	limiter inboundLimiter
	tr      application.Translator
	admins  map[int64]struct{}
	log     *zerolog.Logger
}

// inboundLimiter is the slice of the Redis rate limiter the frontend needs.
type inboundLimiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

func NewBot(
	gateway *Gateway,
	cfg *config.Config,
	facade *application.BotFacade,
	routing usecase.RoutingUseCase,
	limiter *red.RateLimiter,
	tr application.Translator,
	logger *zerolog.Logger,
) *Bot {
	l := logger.With().Str("component", "TelegramBot").Logger()
	admins := make(map[int64]struct{}, len(cfg.Bot.AdminIDs))
	for _, id := range cfg.Bot.AdminIDs {
		admins[id] = struct{}{}
	}
	b := &Bot{
		gateway: gateway,
		out:     gateway,
		cfg:     cfg,
		facade:  facade,
		routing: routing,
		limiter: limiter,
		tr:      tr,
		admins:  admins,
		log:     &l,
	}
	b.albums = usecase.NewAlbumAccumulator(cfg.Routing.AlbumLatency, b.flushAlbum)
	b.registerHandlers()
	return b
}

// Start blocks polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.gateway.Bot().Stop()
	}()
	b.log.Info().Str("username", b.cfg.Bot.Username).Msg("polling started")
	b.gateway.Bot().Start()
}

func (b *Bot) registerHandlers() {
	bot := b.gateway.Bot()

	bot.Handle("/start", b.onStart)
	bot.Handle("/ban", b.onBan)
	bot.Handle("/post", b.onPost)
	bot.Handle("/notification", b.onNotification)
	bot.Handle("/cancel_post", b.onCancelPost)
	bot.Handle("/cancel_notification", b.onCancelNotification)
	bot.Handle(tele.OnCallback, b.onCallback)

	for _, endpoint := range []string{
		tele.OnText, tele.OnPhoto, tele.OnVideo, tele.OnDocument,
		tele.OnAudio, tele.OnVoice, tele.OnAnimation,
	} {
		bot.Handle(endpoint, b.onMessage)
	}
}

// -----------------------------
// Commands
// -----------------------------

func (b *Bot) onStart(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	m := c.Message()
	if m == nil || m.Chat.Type != tele.ChatPrivate {
		return nil
	}
	metrics.IncTelegramCommand("start")

	text, err := b.facade.HandleStart(ctx, m.Sender.ID, m.Sender.FirstName, m.Sender.LastName, m.Sender.Username)
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", m.Sender.ID).Msg("start failed")
		return nil
	}
	return c.Send(text, categoryMenu(b.tr))
}

// onBan works only inside a staff topic: the owner of the thread the command
// was issued in gets banned.
func (b *Bot) onBan(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	m := c.Message()
	if m == nil {
		return nil
	}
	cat, ok := b.cfg.Categories.CategoryOf(m.Chat.ID)
	if !ok || m.ThreadID == 0 {
		return nil
	}
	if !b.authorized(m.Sender.ID, "ban") {
		return nil
	}

	text, err := b.facade.HandleBan(ctx, cat, m.ThreadID)
	if err != nil {
		b.log.Error().Err(err).Int("thread", m.ThreadID).Msg("ban failed")
		return nil
	}
	return c.Send(text, &tele.SendOptions{ThreadID: m.ThreadID})
}

func (b *Bot) onPost(c tele.Context) error {
	return b.operatorCommand(c, "post", b.facade.HandlePost)
}

func (b *Bot) onNotification(c tele.Context) error {
	return b.operatorCommand(c, "notification", b.facade.HandleNotification)
}

func (b *Bot) onCancelPost(c tele.Context) error {
	return b.cancelCommand(c, "cancel_post", b.facade.HandleCancelPost)
}

func (b *Bot) onCancelNotification(c tele.Context) error {
	return b.cancelCommand(c, "cancel_notification", b.facade.HandleCancelNotification)
}

// cancelCommand takes the post id or notice token as the bare payload.
func (b *Bot) cancelCommand(c tele.Context, name string, handle func(ctx context.Context, id string) (string, error)) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	m := c.Message()
	if m == nil {
		return nil
	}
	if !b.authorized(m.Sender.ID, name) {
		return nil
	}
	metrics.IncTelegramCommand(name)

	id := strings.TrimSpace(m.Payload)
	if id == "" {
		return c.Send("/" + name + " <id>")
	}
	reply, err := handle(ctx, id)
	if err != nil {
		b.log.Error().Err(err).Str("command", name).Msg("operator command failed")
		return nil
	}
	return c.Send(reply)
}

// operatorCommand parses "<category> | [YYYY-MM-DD hh:mm] | <text>" (the
// schedule segment is optional) and dispatches to the facade handler.
func (b *Bot) operatorCommand(c tele.Context, name string, handle func(ctx context.Context, category, when, text string) (string, error)) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	m := c.Message()
	if m == nil {
		return nil
	}
	if !b.authorized(m.Sender.ID, name) {
		return nil
	}
	metrics.IncTelegramCommand(name)

	category, when, text, ok := parseOperatorPayload(m.Payload)
	if !ok {
		return c.Send("/" + name + " <category> | [YYYY-MM-DD hh:mm] | <text>")
	}
	reply, err := handle(ctx, category, when, text)
	if err != nil {
		b.log.Error().Err(err).Str("command", name).Msg("operator command failed")
		return nil
	}
	return c.Send(reply)
}

func parseOperatorPayload(payload string) (category, when, text string, ok bool) {
	parts := strings.Split(payload, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 2:
		return parts[0], "", parts[1], parts[0] != "" && parts[1] != ""
	case 3:
		return parts[0], parts[1], parts[2], parts[0] != "" && parts[2] != ""
	}
	return "", "", "", false
}

func (b *Bot) authorized(userID int64, command string) bool {
	if _, ok := b.admins[userID]; ok {
		metrics.IncAdminCommand(command, "authorized")
		return true
	}
	metrics.IncAdminCommand(command, "unauthorized")
	return false
}

// -----------------------------
// Menu callbacks
// -----------------------------

func (b *Bot) onCallback(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	cb := c.Callback()
	if cb == nil || cb.Sender == nil {
		return nil
	}
	data := strings.TrimSpace(strings.TrimPrefix(cb.Data, "\f"))
	// telebot packs unique and payload as "unique|payload".
	if i := strings.IndexByte(data, '|'); i >= 0 {
		data = data[:i] + ":" + data[i+1:]
	}

	var (
		text string
		err  error
	)
	switch {
	case strings.HasPrefix(data, "cat:"):
		text, err = b.facade.HandleSubscribe(ctx, cb.Sender.ID, strings.TrimPrefix(data, "cat:"))
	case data == "act:unsubscribe":
		text, err = b.facade.HandleUnsubscribe(ctx, cb.Sender.ID)
	case data == "act:menu":
		text, err = b.facade.HandleMainMenu(ctx, cb.Sender.ID)
	case data == "act:community":
		text, err = b.facade.HandleCommunity(ctx, cb.Sender.ID)
	default:
		return c.Respond(&tele.CallbackResponse{})
	}
	if err != nil {
		b.log.Error().Err(err).Str("data", data).Msg("callback failed")
		return c.Respond(&tele.CallbackResponse{})
	}
	if respondErr := c.Respond(&tele.CallbackResponse{}); respondErr != nil {
		b.log.Debug().Err(respondErr).Msg("callback ack failed")
	}
	return c.Send(text, categoryMenu(b.tr))
}

// -----------------------------
// Message relay
// -----------------------------

func (b *Bot) onMessage(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Sender == nil {
		return nil
	}

	if m.Chat.Type == tele.ChatPrivate {
		return b.onUserMessage(c, m)
	}
	if cat, ok := b.cfg.Categories.CategoryOf(m.Chat.ID); ok {
		return b.onStaffMessage(m, cat)
	}
	return nil
}

func (b *Bot) onUserMessage(c tele.Context, m *tele.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	ctx = logging.WithTgID(ctx, m.Sender.ID)

	reply, menu := b.ingestUser(ctx, fromTele(m))
	if reply == "" {
		return nil
	}
	if menu {
		return c.Send(reply, categoryMenu(b.tr))
	}
	return c.Send(reply)
}

// ingestUser is the private-chat pipeline: album coalescing first, then the
// per-user window, then routing. Album parts must reach the accumulator
// before the throttle, because Telegram delivers every part as its own update
// within milliseconds; the reassembled batch is charged as one inbound unit
// when it flushes.
func (b *Bot) ingestUser(ctx context.Context, msg model.Message) (reply string, menu bool) {
	if b.albums.Submit(msg) {
		return "", false
	}

	switch n := b.inboundHits(ctx, msg.SenderID); {
	case n == 2:
		// The first drop inside a window gets feedback, the rest silence.
		return b.tr.T("routing.throttled"), false
	case n > 2:
		return "", false
	}

	created, err := b.routing.HandleUserMessage(ctx, msg)
	if err != nil {
		return b.routingErrorText(err), true
	}
	if created {
		return b.tr.T("topic.created"), false
	}
	return "", false
}

// inboundHits charges one inbound unit against the sender's window. A Redis
// failure lets the message through instead of dropping it.
func (b *Bot) inboundHits(ctx context.Context, userID int64) int64 {
	n, err := b.limiter.Hit(ctx, red.UserThrottleKey(userID), b.cfg.Routing.ThrottleWindow)
	if err != nil {
		b.log.Warn().Err(err).Msg("throttle check failed, letting through")
		return 1
	}
	if n > 1 {
		metrics.IncRateLimitTriggered()
	}
	return n
}

func (b *Bot) onStaffMessage(m *tele.Message, cat model.Category) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	ctx = logging.WithThreadID(logging.WithCategory(ctx, cat.String()), m.ThreadID)

	// Commands and general-thread chatter are not relayed.
	if strings.HasPrefix(m.Text, "/") || m.ThreadID == 0 {
		return nil
	}

	msg := fromTele(m)
	if b.albums.Submit(msg) {
		return nil
	}

	if err := b.routing.HandleStaffMessage(ctx, msg); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		logging.With(ctx, b.log).Error().Err(err).Msg("staff relay failed")
	}
	return nil
}

// flushAlbum receives a reassembled media group. Direction is decided by the
// chat the album arrived in.
func (b *Bot) flushAlbum(batch model.Batch) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	first := batch[0]
	if cat, ok := b.cfg.Categories.CategoryOf(first.ChatID); ok {
		ctx = logging.WithThreadID(logging.WithCategory(ctx, cat.String()), first.ThreadID)
		if err := b.routing.HandleStaffBatch(ctx, batch); err != nil && !errors.Is(err, domain.ErrNotFound) {
			logging.With(ctx, b.log).Error().Err(err).Str("album", first.AlbumID).Msg("staff album relay failed")
		}
		return
	}

	ctx = logging.WithTgID(ctx, first.SenderID)
	// The whole album counts as one inbound unit against the sender's window.
	switch n := b.inboundHits(ctx, first.SenderID); {
	case n == 2:
		b.sendToUser(ctx, first.SenderID, b.tr.T("routing.throttled"))
		return
	case n > 2:
		return
	}

	created, err := b.routing.HandleUserBatch(ctx, batch)
	if err != nil {
		if text := b.routingErrorText(err); text != "" {
			b.sendToUser(ctx, first.SenderID, text)
		}
		return
	}
	if created {
		b.sendToUser(ctx, first.SenderID, b.tr.T("topic.created"))
	}
}

func (b *Bot) sendToUser(ctx context.Context, userID int64, text string) {
	if err := b.out.SendMessage(ctx, userID, 0, text); err != nil {
		logging.With(ctx, b.log).Debug().Err(err).Msg("reply failed")
	}
}

// routingErrorText maps routing failures to user-facing replies. Banned
// users get silence, not feedback.
func (b *Bot) routingErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserBanned):
		return ""
	case errors.Is(err, domain.ErrNoCategorySelected):
		return b.tr.T("routing.no_category")
	case errors.Is(err, domain.ErrRoutingDisabled):
		return b.tr.T("routing.disabled")
	case errors.Is(err, domain.ErrNotFound):
		return b.tr.T("not_registered")
	case errors.Is(err, domain.ErrTopicCreationFailed):
		b.log.Error().Err(err).Msg("topic creation failed")
		return b.tr.T("routing.topic_failed")
	default:
		b.log.Error().Err(err).Msg("user relay failed")
		return b.tr.T("routing.topic_failed")
	}
}

// fromTele converts an incoming telebot message to the transport-neutral
// model, extracting the single media attachment if present.
func fromTele(m *tele.Message) model.Message {
	msg := model.Message{
		ID:       m.ID,
		ChatID:   m.Chat.ID,
		ThreadID: m.ThreadID,
		SenderID: m.Sender.ID,
		AlbumID:  m.AlbumID,
		Text:     m.Text,
		Caption:  m.Caption,
	}
	switch {
	case m.Photo != nil:
		msg.Kind, msg.FileID = model.MediaPhoto, m.Photo.FileID
	case m.Video != nil:
		msg.Kind, msg.FileID = model.MediaVideo, m.Video.FileID
	case m.Document != nil:
		msg.Kind, msg.FileID = model.MediaDocument, m.Document.FileID
	case m.Audio != nil:
		msg.Kind, msg.FileID = model.MediaAudio, m.Audio.FileID
	case m.Voice != nil:
		msg.Kind, msg.FileID = model.MediaVoice, m.Voice.FileID
	case m.Animation != nil:
		msg.Kind, msg.FileID = model.MediaAnimation, m.Animation.FileID
	}
	return msg
}
