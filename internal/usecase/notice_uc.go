package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/domain/ports/adapter"
	"telegram-support-bot/internal/domain/ports/repository"
	"telegram-support-bot/internal/infra/logging"
)

// Compile-time check
var _ NoticeUseCase = (*noticeUC)(nil)

// NoticeUseCase handles one-off notifications. Unlike broadcasts, delivery
// state lives inside the ledger entry itself; once every subscriber is
// covered the entry is deleted. RunAll on boot resumes whatever an earlier
// process left unfinished.
type NoticeUseCase interface {
	Create(ctx context.Context, c model.Category, text string) (*model.Notice, error)
	// Run delivers the notice to every not-yet-reached subscriber and
	// deletes the ledger entry once coverage is complete. It returns the
	// number of sends performed by this invocation.
	Run(ctx context.Context, token string) (int, error)
	RunAll(ctx context.Context) error
	Cancel(ctx context.Context, token string) error
}

type noticeUC struct {
	users   repository.UserRepository
	ledger  repository.NoticeLedger
	gateway adapter.MessagingGateway
	limiter *rate.Limiter
	tr      Translator
	log     *zerolog.Logger
}

func NewNoticeUseCase(
	users repository.UserRepository,
	ledger repository.NoticeLedger,
	gateway adapter.MessagingGateway,
	ratePerSec int,
	tr Translator,
	logger *zerolog.Logger,
) *noticeUC {
	if ratePerSec <= 0 {
		ratePerSec = 25
	}
	l := logger.With().Str("component", "NoticeUC").Logger()
	return &noticeUC{
		users:   users,
		ledger:  ledger,
		gateway: gateway,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		tr:      tr,
		log:     &l,
	}
}

func (uc *noticeUC) Create(ctx context.Context, c model.Category, text string) (*model.Notice, error) {
	n, err := model.NewNotice(c, text)
	if err != nil {
		return nil, err
	}
	if err := uc.ledger.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notice: %w", err)
	}
	uc.log.Info().Str("token", n.Token).Str("category", c.String()).Msg("notice created")
	return n, nil
}

func (uc *noticeUC) Run(ctx context.Context, token string) (int, error) {
	defer logging.TraceDuration(uc.log, "NoticeUC.Run")()

	n, err := uc.ledger.Get(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("load notice: %w", err)
	}

	subs, err := uc.users.ListSubscribers(ctx, n.Category)
	if err != nil {
		return 0, fmt.Errorf("list subscribers: %w", err)
	}

	d, _ := n.Category.Descriptor()
	text := "<b><i>" + uc.tr.T(d.LabelKey) + "</i></b>: " + n.Text

	sent := 0
	for _, sub := range subs {
		done, err := uc.ledger.DeliveredTo(ctx, token, sub.ID)
		if err != nil {
			return sent, fmt.Errorf("check delivery: %w", err)
		}
		if done {
			continue
		}

		if err := uc.limiter.Wait(ctx); err != nil {
			return sent, err
		}
		if err := uc.gateway.SendMessage(ctx, sub.ID, 0, text); err != nil {
			if domain.Unreachable(err) {
				continue
			}
			// Transient: leave the entry in place, the boot resume or the
			// next explicit run picks up from here.
			return sent, fmt.Errorf("send to %d: %w", sub.ID, err)
		}
		if err := uc.ledger.MarkDelivered(ctx, token, sub.ID); err != nil {
			return sent, fmt.Errorf("mark delivered for %d: %w", sub.ID, err)
		}
		sent++
	}

	if err := uc.ledger.Delete(ctx, token); err != nil {
		return sent, fmt.Errorf("delete finished notice: %w", err)
	}
	uc.log.Info().Str("token", token).Int("sent", sent).Msg("notice delivered")
	return sent, nil
}

// RunAll resumes every ledger entry. Called once on startup so notices that
// were mid-flight when the previous process died still reach everyone.
func (uc *noticeUC) RunAll(ctx context.Context) error {
	tokens, err := uc.ledger.Tokens(ctx)
	if err != nil {
		return fmt.Errorf("list notice tokens: %w", err)
	}
	for _, token := range tokens {
		if _, err := uc.Run(ctx, token); err != nil {
			uc.log.Error().Err(err).Str("token", token).Msg("notice run failed, entry retained")
		}
	}
	return nil
}

func (uc *noticeUC) Cancel(ctx context.Context, token string) error {
	if err := uc.ledger.Delete(ctx, token); err != nil {
		return fmt.Errorf("cancel notice: %w", err)
	}
	uc.log.Info().Str("token", token).Msg("notice cancelled")
	return nil
}
