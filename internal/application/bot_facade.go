package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/infra/metrics"
	"telegram-support-bot/internal/usecase"
)

// Scheduler is the slice of the cron service the facade needs: arming
// one-shot jobs for operator-scheduled posts and notices.
type Scheduler interface {
	SchedulePost(postID string, at time.Time) error
	ScheduleNotice(token string, at time.Time) error
	CancelJob(id string)
}

// Translator resolves i18n keys, same contract as usecase.Translator.
type Translator interface {
	T(key string, args ...interface{}) string
}

// scheduleLayout is what operators type in the staff chat.
const scheduleLayout = "2006-01-02 15:04"

// BotFacade composes usecases into high-level bot commands.
// Keep the facade methods returning strings so the Telegram adapter just
// forwards them to the chat.
type BotFacade struct {
	SubUC    usecase.SubscriptionUseCase
	RouteUC  usecase.RoutingUseCase
	CastUC   usecase.BroadcastUseCase
	NoticeUC usecase.NoticeUseCase

	Sched         Scheduler
	Tr            Translator
	CommunityChat int64
	gateway       MembershipChecker
}

// MembershipChecker is the single gateway call the facade needs directly:
// the living-library flow checks community chat membership before handing
// out the materials link.
type MembershipChecker interface {
	IsChatMember(ctx context.Context, chatID, userID int64) (bool, error)
}

func NewBotFacade(
	subUC usecase.SubscriptionUseCase,
	routeUC usecase.RoutingUseCase,
	castUC usecase.BroadcastUseCase,
	noticeUC usecase.NoticeUseCase,
	sched Scheduler,
	tr Translator,
	communityChat int64,
	gateway MembershipChecker,
) *BotFacade {
	return &BotFacade{
		SubUC:         subUC,
		RouteUC:       routeUC,
		CastUC:        castUC,
		NoticeUC:      noticeUC,
		Sched:         sched,
		Tr:            tr,
		CommunityChat: communityChat,
		gateway:       gateway,
	}
}

// HandleStart registers or fetches the user and returns the greeting.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, firstName, lastName, username string) (string, error) {
	u, err := b.SubUC.RegisterOrFetch(ctx, tgID, firstName, lastName, username)
	if err != nil {
		return "", fmt.Errorf("register/fetch user: %w", err)
	}
	metrics.IncUsersRegistered()
	return b.Tr.T("greeting", u.DisplayName()), nil
}

// HandleSubscribe enables the chosen category and confirms with its
// description text.
func (b *BotFacade) HandleSubscribe(ctx context.Context, tgID int64, raw string) (string, error) {
	c, ok := model.ParseCategory(raw)
	if !ok {
		return b.Tr.T("category.unknown"), nil
	}
	if err := b.SubUC.Subscribe(ctx, tgID, c); err != nil {
		return "", fmt.Errorf("subscribe: %w", err)
	}
	d, _ := c.Descriptor()
	return b.Tr.T(d.LabelKey + ".description"), nil
}

// HandleUnsubscribe drops the active category.
func (b *BotFacade) HandleUnsubscribe(ctx context.Context, tgID int64) (string, error) {
	if err := b.SubUC.Unsubscribe(ctx, tgID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.Tr.T("not_registered"), nil
		}
		return "", fmt.Errorf("unsubscribe: %w", err)
	}
	return b.Tr.T("unsubscribed"), nil
}

// HandleMainMenu returns to the category menu without touching flags.
func (b *BotFacade) HandleMainMenu(ctx context.Context, tgID int64) (string, error) {
	if err := b.SubUC.MainMenu(ctx, tgID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.Tr.T("not_registered"), nil
		}
		return "", fmt.Errorf("main menu: %w", err)
	}
	return b.Tr.T("main_menu"), nil
}

// HandleSubscriptions lists the user's enabled categories.
func (b *BotFacade) HandleSubscriptions(ctx context.Context, tgID int64) (string, error) {
	subs, err := b.SubUC.Subscriptions(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.Tr.T("not_registered"), nil
		}
		return "", fmt.Errorf("subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return b.Tr.T("subscriptions.none"), nil
	}
	var sb strings.Builder
	sb.WriteString(b.Tr.T("subscriptions.header"))
	for _, c := range subs {
		d, _ := c.Descriptor()
		sb.WriteString("\n- ")
		sb.WriteString(b.Tr.T(d.LabelKey))
	}
	return sb.String(), nil
}

// HandleCommunity implements the living-library flow: members of the
// community chat get the materials link, everyone else an invitation.
func (b *BotFacade) HandleCommunity(ctx context.Context, tgID int64) (string, error) {
	if b.CommunityChat == 0 {
		return b.Tr.T("community.unavailable"), nil
	}
	member, err := b.gateway.IsChatMember(ctx, b.CommunityChat, tgID)
	if err != nil {
		return "", fmt.Errorf("check membership: %w", err)
	}
	if member {
		return b.Tr.T("community.materials"), nil
	}
	return b.Tr.T("community.join"), nil
}

// HandleBan is issued by staff inside a topic; the owner of that topic is
// silenced.
func (b *BotFacade) HandleBan(ctx context.Context, c model.Category, threadID int) (string, error) {
	userID, err := b.SubUC.Ban(ctx, c, threadID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.Tr.T("ban.no_owner"), nil
		}
		return "", fmt.Errorf("ban: %w", err)
	}
	return b.Tr.T("ban.done", userID), nil
}

// HandlePost creates a broadcast post. whenRaw is empty for an immediate
// run or "YYYY-MM-DD hh:mm" for a scheduled one; scheduled posts get a
// one-shot job, immediate ones run right away.
func (b *BotFacade) HandlePost(ctx context.Context, rawCategory, whenRaw, text string) (string, error) {
	c, ok := model.ParseCategory(rawCategory)
	if !ok {
		return b.Tr.T("category.unknown"), nil
	}
	if strings.TrimSpace(text) == "" {
		return b.Tr.T("post.empty"), nil
	}

	var at time.Time
	if whenRaw != "" {
		var err error
		at, err = time.ParseInLocation(scheduleLayout, whenRaw, time.Local)
		if err != nil {
			return b.Tr.T("post.bad_time", scheduleLayout), nil
		}
	}

	p, err := b.CastUC.CreatePost(ctx, c, text, at)
	if err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}

	if !at.IsZero() && at.After(time.Now()) {
		if err := b.Sched.SchedulePost(p.ID, at); err != nil {
			return "", fmt.Errorf("schedule post: %w", err)
		}
		return b.Tr.T("post.scheduled", p.ID, at.Format(scheduleLayout)), nil
	}

	report, err := b.CastUC.Run(ctx, p.ID)
	if err != nil {
		return "", fmt.Errorf("run post: %w", err)
	}
	return b.Tr.T("post.sent", report.Count(model.Delivered)), nil
}

// HandleCancelPost stops a pending or scheduled post.
func (b *BotFacade) HandleCancelPost(ctx context.Context, postID string) (string, error) {
	b.Sched.CancelJob(postID)
	if err := b.CastUC.Cancel(ctx, postID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.Tr.T("post.not_found"), nil
		}
		return "", fmt.Errorf("cancel post: %w", err)
	}
	return b.Tr.T("post.cancelled", postID), nil
}

// HandleNotification creates a one-off notice, scheduled or immediate.
func (b *BotFacade) HandleNotification(ctx context.Context, rawCategory, whenRaw, text string) (string, error) {
	c, ok := model.ParseCategory(rawCategory)
	if !ok {
		return b.Tr.T("category.unknown"), nil
	}
	if strings.TrimSpace(text) == "" {
		return b.Tr.T("post.empty"), nil
	}

	var at time.Time
	if whenRaw != "" {
		var err error
		at, err = time.ParseInLocation(scheduleLayout, whenRaw, time.Local)
		if err != nil {
			return b.Tr.T("post.bad_time", scheduleLayout), nil
		}
	}

	n, err := b.NoticeUC.Create(ctx, c, text)
	if err != nil {
		return "", fmt.Errorf("create notice: %w", err)
	}

	if !at.IsZero() && at.After(time.Now()) {
		if err := b.Sched.ScheduleNotice(n.Token, at); err != nil {
			return "", fmt.Errorf("schedule notice: %w", err)
		}
		return b.Tr.T("notice.scheduled", n.Token, at.Format(scheduleLayout)), nil
	}

	sent, err := b.NoticeUC.Run(ctx, n.Token)
	if err != nil {
		return "", fmt.Errorf("run notice: %w", err)
	}
	return b.Tr.T("notice.sent", sent), nil
}

// HandleCancelNotification drops a scheduled notice.
func (b *BotFacade) HandleCancelNotification(ctx context.Context, token string) (string, error) {
	b.Sched.CancelJob(token)
	if err := b.NoticeUC.Cancel(ctx, token); err != nil {
		return "", fmt.Errorf("cancel notice: %w", err)
	}
	return b.Tr.T("notice.cancelled", token), nil
}
