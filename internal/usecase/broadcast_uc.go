package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/domain/ports/adapter"
	"telegram-support-bot/internal/domain/ports/repository"
	"telegram-support-bot/internal/infra/logging"
	"telegram-support-bot/internal/infra/metrics"
)

// Compile-time check
var _ BroadcastUseCase = (*broadcastUC)(nil)

// BroadcastUseCase fans category-scoped posts out to subscribers with
// at-most-once delivery per (user, post) pair. Run is safe to invoke any
// number of times for the same post: users holding a delivery record are
// skipped, so a run interrupted by a crash or a transient transport failure
// simply resumes on the next invocation.
type BroadcastUseCase interface {
	// CreatePost persists the post before any send. A non-zero scheduledAt
	// delays delivery until that instant; both the sweep and Run honor it.
	CreatePost(ctx context.Context, c model.Category, text string, scheduledAt time.Time) (*model.PendingBroadcast, error)
	Run(ctx context.Context, postID string) (*model.RunReport, error)
	// RunPending re-runs every incomplete broadcast, oldest first, and
	// returns how many posts reached full coverage during this sweep.
	RunPending(ctx context.Context) (int, error)
	Cancel(ctx context.Context, postID string) error
}

type broadcastUC struct {
	users     repository.UserRepository
	posts     repository.BroadcastRepository
	delivered repository.DeliveryLogRepository
	gateway   adapter.MessagingGateway
	limiter   *rate.Limiter
	tr        Translator
	log       *zerolog.Logger
}

func NewBroadcastUseCase(
	users repository.UserRepository,
	posts repository.BroadcastRepository,
	delivered repository.DeliveryLogRepository,
	gateway adapter.MessagingGateway,
	ratePerSec int,
	tr Translator,
	logger *zerolog.Logger,
) *broadcastUC {
	if ratePerSec <= 0 {
		ratePerSec = 25
	}
	l := logger.With().Str("component", "BroadcastUC").Logger()
	return &broadcastUC{
		users:     users,
		posts:     posts,
		delivered: delivered,
		gateway:   gateway,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSec), 1),
		tr:        tr,
		log:       &l,
	}
}

func (uc *broadcastUC) CreatePost(ctx context.Context, c model.Category, text string, scheduledAt time.Time) (*model.PendingBroadcast, error) {
	p, err := model.NewPendingBroadcast(c, text, scheduledAt)
	if err != nil {
		return nil, err
	}
	if err := uc.posts.CreatePending(ctx, p); err != nil {
		return nil, fmt.Errorf("persist pending broadcast: %w", err)
	}
	uc.log.Info().Str("post_id", p.ID).Str("category", c.String()).Time("scheduled_at", scheduledAt).Msg("broadcast announced")
	return p, nil
}

func (uc *broadcastUC) Run(ctx context.Context, postID string) (*model.RunReport, error) {
	defer logging.TraceDuration(uc.log, "BroadcastUC.Run")()

	p, err := uc.posts.GetPending(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("load pending broadcast: %w", err)
	}
	report := &model.RunReport{PostID: postID}
	if p.Complete() || !p.Due(time.Now()) {
		return report, nil
	}

	// Enumeration-time snapshot: users subscribing after this point are
	// picked up by a later run, not this one.
	subs, err := uc.users.ListSubscribers(ctx, p.Category)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	d, _ := p.Category.Descriptor()
	text := "<b><i>" + uc.tr.T(d.LabelKey) + "</i></b>: " + p.Text

	for _, sub := range subs {
		has, err := uc.delivered.Exists(ctx, sub.ID, postID)
		if err != nil {
			report.Aborted = true
			return report, fmt.Errorf("check delivery record: %w", err)
		}
		if has {
			report.Results = append(report.Results, model.DeliveryResult{UserID: sub.ID, Status: model.SkippedDuplicate})
			continue
		}

		if err := uc.limiter.Wait(ctx); err != nil {
			report.Aborted = true
			return report, err
		}
		if err := uc.gateway.SendMessage(ctx, sub.ID, 0, text); err != nil {
			if domain.Unreachable(err) {
				// Permanently gone: never recorded, never retried,
				// never blocks the rest of the run.
				report.Results = append(report.Results, model.DeliveryResult{UserID: sub.ID, Status: model.SkippedUnreachable, Err: err})
				metrics.IncBroadcastDelivery(model.SkippedUnreachable.String())
				continue
			}
			report.Results = append(report.Results, model.DeliveryResult{UserID: sub.ID, Status: model.Failed, Err: err})
			report.Aborted = true
			metrics.IncBroadcastDelivery(model.Failed.String())
			return report, fmt.Errorf("send to %d: %w", sub.ID, err)
		}
		if err := uc.delivered.Record(ctx, sub.ID, postID); err != nil {
			// The send went out but the record did not land; abort so the
			// failure is visible. The next run may re-send to this one
			// user, the accepted cost of having no cross-store transaction.
			report.Aborted = true
			return report, fmt.Errorf("record delivery for %d: %w", sub.ID, err)
		}
		report.Results = append(report.Results, model.DeliveryResult{UserID: sub.ID, Status: model.Delivered})
		metrics.IncBroadcastDelivery(model.Delivered.String())
	}

	if report.Covered() {
		if err := uc.posts.MarkComplete(ctx, postID); err != nil {
			return report, fmt.Errorf("mark complete: %w", err)
		}
		uc.log.Info().
			Str("post_id", postID).
			Int("delivered", report.Count(model.Delivered)).
			Int("skipped", report.Count(model.SkippedDuplicate)+report.Count(model.SkippedUnreachable)).
			Msg("broadcast complete")
	}
	return report, nil
}

func (uc *broadcastUC) RunPending(ctx context.Context) (int, error) {
	pending, err := uc.posts.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	completed := 0
	now := time.Now()
	for _, p := range pending {
		if !p.Due(now) {
			continue
		}
		report, err := uc.Run(ctx, p.ID)
		if err != nil {
			// A transient abort on one post must not starve the others.
			uc.log.Error().Err(err).Str("post_id", p.ID).Msg("broadcast run failed, will retry next sweep")
			continue
		}
		if report.Covered() {
			completed++
		}
	}
	return completed, nil
}

// Cancel marks the post complete so the sweep stops picking it up. Delivery
// records already written are append-only truth and stay untouched.
func (uc *broadcastUC) Cancel(ctx context.Context, postID string) error {
	if err := uc.posts.MarkComplete(ctx, postID); err != nil {
		return fmt.Errorf("cancel broadcast: %w", err)
	}
	uc.log.Info().Str("post_id", postID).Msg("broadcast cancelled")
	return nil
}
