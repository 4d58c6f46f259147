package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/domain/ports/adapter"
	"telegram-support-bot/internal/domain/ports/repository"
	"telegram-support-bot/internal/infra/logging"
	"telegram-support-bot/internal/infra/metrics"
)

// Compile-time check
var _ RoutingUseCase = (*routingUC)(nil)

// RoutingUseCase binds users to staff forum topics and relays messages in
// both directions. The created return value reports whether this call had to
// create a fresh topic (first contact in a category), so the transport layer
// can acknowledge it to the user.
type RoutingUseCase interface {
	HandleUserMessage(ctx context.Context, msg model.Message) (created bool, err error)
	HandleUserBatch(ctx context.Context, batch model.Batch) (created bool, err error)
	HandleStaffMessage(ctx context.Context, msg model.Message) error
	HandleStaffBatch(ctx context.Context, batch model.Batch) error
}

type routingUC struct {
	users   repository.UserRepository
	gateway adapter.MessagingGateway
	chats   CategoryChats
	cache   BindingCache
	locker  Locker
	tr      Translator
	log     *zerolog.Logger
}

const bindLockTTL = 15 * time.Second

func NewRoutingUseCase(
	users repository.UserRepository,
	gateway adapter.MessagingGateway,
	chats CategoryChats,
	cache BindingCache,
	locker Locker,
	tr Translator,
	logger *zerolog.Logger,
) *routingUC {
	l := logger.With().Str("component", "RoutingUC").Logger()
	return &routingUC{
		users:   users,
		gateway: gateway,
		chats:   chats,
		cache:   cache,
		locker:  locker,
		tr:      tr,
		log:     &l,
	}
}

// -----------------------------
// User -> staff
// -----------------------------

func (uc *routingUC) HandleUserMessage(ctx context.Context, msg model.Message) (bool, error) {
	return uc.routeUser(ctx, msg.SenderID, func(chatID int64, threadID int) error {
		return uc.gateway.Copy(ctx, msg, chatID, threadID, "")
	})
}

func (uc *routingUC) HandleUserBatch(ctx context.Context, batch model.Batch) (bool, error) {
	if len(batch) == 0 {
		return false, domain.ErrInvalidArgument
	}
	return uc.routeUser(ctx, batch[0].SenderID, func(chatID int64, threadID int) error {
		return uc.gateway.SendAlbum(ctx, chatID, threadID, batch, firstCaption(batch))
	})
}

// routeUser resolves (or lazily creates) the topic thread for the sender's
// active category, then invokes relay against it.
func (uc *routingUC) routeUser(ctx context.Context, userID int64, relay func(chatID int64, threadID int) error) (bool, error) {
	u, err := uc.users.Find(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("find user: %w", err)
	}
	if u.Banned {
		return false, domain.ErrUserBanned
	}
	if u.Active == "" {
		return false, domain.ErrNoCategorySelected
	}
	if !u.Active.Routable() {
		return false, domain.ErrRoutingDisabled
	}
	chatID, ok := uc.chats.StaffChat(u.Active)
	if !ok {
		return false, fmt.Errorf("no staff chat configured for %s", u.Active)
	}

	if threadID, ok := uc.cache.GetThread(ctx, u.ID, u.Active); ok {
		return false, uc.relayToStaff(relay, chatID, threadID)
	}
	if threadID, ok := u.Topic(u.Active); ok {
		uc.cache.PutThread(ctx, u.ID, u.Active, threadID)
		return false, uc.relayToStaff(relay, chatID, threadID)
	}

	threadID, err := uc.createTopic(ctx, u, chatID, relay)
	if err != nil {
		return false, err
	}
	uc.cache.PutThread(ctx, u.ID, u.Active, threadID)
	return true, nil
}

func (uc *routingUC) relayToStaff(relay func(int64, int) error, chatID int64, threadID int) error {
	if err := relay(chatID, threadID); err != nil {
		return fmt.Errorf("relay to staff: %w", err)
	}
	metrics.IncRelayed(metrics.DirectionUserToStaff)
	return nil
}

// createTopic runs the first-contact path under a per-(user, category) lock
// so the parts of one album cannot race into two topics. The binding is
// persisted with a compare-and-set before the triggering message is relayed;
// if the CAS loses, the freshly created thread is orphaned and the existing
// binding wins.
func (uc *routingUC) createTopic(ctx context.Context, u *model.User, chatID int64, relay func(int64, int) error) (int, error) {
	defer logging.TraceDuration(uc.log, "RoutingUC.createTopic")()
	log := logging.With(ctx, uc.log)

	key := fmt.Sprintf("topic_bind:%d:%s", u.ID, u.Active)
	token, err := uc.locker.TryLock(ctx, key, bindLockTTL)
	if err != nil {
		return 0, fmt.Errorf("acquire bind lock: %w", err)
	}
	defer func() {
		if err := uc.locker.Unlock(context.Background(), key, token); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("unlock failed")
		}
	}()

	// Another message may have completed the binding while we waited.
	fresh, err := uc.users.Find(ctx, u.ID)
	if err != nil {
		return 0, fmt.Errorf("re-read user: %w", err)
	}
	if threadID, ok := fresh.Topic(u.Active); ok {
		return threadID, uc.relayToStaff(relay, chatID, threadID)
	}

	threadID, err := uc.gateway.CreateTopic(ctx, chatID, u.DisplayName())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrTopicCreationFailed, err)
	}

	if err := uc.users.BindTopic(ctx, u.ID, u.Active, threadID); err != nil {
		if errors.Is(err, domain.ErrDuplicateBinding) {
			// The existing binding wins; the thread we just created is an
			// orphan, cleaned up out of band.
			log.Error().
				Int64("user_id", u.ID).
				Str("category", u.Active.String()).
				Int("orphan_thread", threadID).
				Msg("duplicate topic binding, keeping existing")
			fresh, ferr := uc.users.Find(ctx, u.ID)
			if ferr != nil {
				return 0, ferr
			}
			bound, ok := fresh.Topic(u.Active)
			if !ok {
				return 0, err
			}
			return bound, uc.relayToStaff(relay, chatID, bound)
		}
		return 0, fmt.Errorf("bind topic: %w", err)
	}

	intro := uc.tr.T("topic.intro", u.DisplayName(), u.Username)
	if err := uc.gateway.SendMessage(ctx, chatID, threadID, intro); err != nil {
		// Intro is context for staff, not part of the user's message.
		log.Warn().Err(err).Int("thread", threadID).Msg("intro message failed")
	}
	if err := uc.relayToStaff(relay, chatID, threadID); err != nil {
		return 0, err
	}

	metrics.IncTopicsCreated(u.Active.String())
	log.Info().
		Int64("user_id", u.ID).
		Str("category", u.Active.String()).
		Int("thread", threadID).
		Msg("topic created")
	return threadID, nil
}

// -----------------------------
// Staff -> user
// -----------------------------

func (uc *routingUC) HandleStaffMessage(ctx context.Context, msg model.Message) error {
	cat, userID, err := uc.resolveOwner(ctx, msg.ChatID, msg.ThreadID)
	if err != nil {
		return err
	}
	label := uc.labelFor(cat)

	if msg.Kind == model.MediaNone {
		if err := uc.gateway.SendMessage(ctx, userID, 0, label+" "+msg.Text); err != nil {
			return fmt.Errorf("relay to user: %w", err)
		}
	} else {
		if err := uc.gateway.Copy(ctx, msg, userID, 0, label+" "+msg.Caption); err != nil {
			return fmt.Errorf("relay to user: %w", err)
		}
	}
	metrics.IncRelayed(metrics.DirectionStaffToUser)
	return nil
}

func (uc *routingUC) HandleStaffBatch(ctx context.Context, batch model.Batch) error {
	if len(batch) == 0 {
		return domain.ErrInvalidArgument
	}
	cat, userID, err := uc.resolveOwner(ctx, batch[0].ChatID, batch[0].ThreadID)
	if err != nil {
		return err
	}
	caption := uc.labelFor(cat) + " " + firstCaption(batch)
	if err := uc.gateway.SendAlbum(ctx, userID, 0, batch, caption); err != nil {
		return fmt.Errorf("relay album to user: %w", err)
	}
	metrics.IncRelayed(metrics.DirectionStaffToUser)
	return nil
}

// resolveOwner maps (staff chat, thread) back to the owning user.
func (uc *routingUC) resolveOwner(ctx context.Context, chatID int64, threadID int) (model.Category, int64, error) {
	cat, ok := uc.chats.CategoryOf(chatID)
	if !ok || threadID == 0 {
		return "", 0, domain.ErrNotFound
	}
	if userID, ok := uc.cache.GetOwner(ctx, cat, threadID); ok {
		return cat, userID, nil
	}
	userID, err := uc.users.FindByTopic(ctx, cat, threadID)
	if err != nil {
		return "", 0, err
	}
	uc.cache.PutOwner(ctx, cat, threadID, userID)
	return cat, userID, nil
}

func (uc *routingUC) labelFor(c model.Category) string {
	d, _ := c.Descriptor()
	return "<b><i>" + uc.tr.T(d.LabelKey) + "</i></b>:"
}

// firstCaption picks the caption the single caption-bearing album item will
// carry: the first non-empty one in arrival order.
func firstCaption(batch model.Batch) string {
	for _, m := range batch {
		if m.Caption != "" {
			return m.Caption
		}
	}
	return ""
}
