package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"telegram-support-bot/internal/domain/ports/repository"
	"telegram-support-bot/internal/infra/metrics"
	"telegram-support-bot/internal/infra/worker"
	"telegram-support-bot/internal/usecase"
)

// Service drives everything time-based: one-shot jobs for scheduled posts
// and notifications, and a recurring sweep that re-runs pending broadcasts
// so interrupted deliveries resume without operator action.
//
// Job bodies are submitted to the worker pool rather than executed on the
// gocron goroutine; a slow Telegram run must not delay the next tick.
type Service struct {
	sched      *gocron.Scheduler
	casts      usecase.BroadcastUseCase
	notices    usecase.NoticeUseCase
	broadcasts repository.BroadcastRepository
	pool       *worker.Pool

	sweepInterval time.Duration
	log           *zerolog.Logger
}

func NewService(
	casts usecase.BroadcastUseCase,
	notices usecase.NoticeUseCase,
	broadcasts repository.BroadcastRepository,
	pool *worker.Pool,
	sweepInterval time.Duration,
	logger *zerolog.Logger,
) *Service {
	l := logger.With().Str("component", "Scheduler").Logger()
	return &Service{
		sched:         gocron.NewScheduler(time.UTC),
		casts:         casts,
		notices:       notices,
		broadcasts:    broadcasts,
		pool:          pool,
		sweepInterval: sweepInterval,
		log:           &l,
	}
}

// Start restores persisted work and begins ticking. Restore order matters:
// interrupted notifications resume first, then future posts get their
// one-shot jobs back, then the sweep picks up whatever is already due.
func (s *Service) Start(ctx context.Context) error {
	if err := s.pool.Submit(s.notices.RunAll); err != nil {
		return err
	}
	if err := s.restorePosts(ctx); err != nil {
		return err
	}

	if _, err := s.sched.Every(s.sweepInterval).Tag("sweep").Do(s.sweep); err != nil {
		return err
	}
	s.sched.StartAsync()
	s.log.Info().Dur("sweep_interval", s.sweepInterval).Msg("scheduler started")
	return nil
}

func (s *Service) Stop() {
	s.sched.Stop()
	s.log.Info().Msg("scheduler stopped")
}

// SchedulePost registers a one-shot run for a persisted post. A time
// already in the past runs immediately; the post row is the source of
// truth either way, the job is only the wake-up call.
func (s *Service) SchedulePost(postID string, at time.Time) error {
	return s.oneShot(postID, at, func(ctx context.Context) error {
		_, err := s.casts.Run(ctx, postID)
		return err
	})
}

func (s *Service) ScheduleNotice(token string, at time.Time) error {
	return s.oneShot(token, at, func(ctx context.Context) error {
		_, err := s.notices.Run(ctx, token)
		return err
	})
}

// CancelJob drops a scheduled one-shot by its tag. Unknown tags are fine;
// cancelling an already-fired job is a no-op.
func (s *Service) CancelJob(id string) {
	if err := s.sched.RemoveByTag(id); err != nil {
		s.log.Debug().Str("job", id).Err(err).Msg("no job to cancel")
	}
}

func (s *Service) oneShot(tag string, at time.Time, task worker.Task) error {
	if !at.After(time.Now()) {
		return s.pool.Submit(task)
	}
	_, err := s.sched.Every(1).Day().StartAt(at).LimitRunsTo(1).Tag(tag).Do(func() {
		if err := s.pool.Submit(task); err != nil {
			s.log.Error().Str("job", tag).Err(err).Msg("submit failed")
		}
	})
	return err
}

// restorePosts re-arms one-shot jobs for posts scheduled into the future.
// Due and overdue posts need nothing here, the sweep covers them.
func (s *Service) restorePosts(ctx context.Context) error {
	pending, err := s.broadcasts.ListPending(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, p := range pending {
		if p.Due(now) {
			continue
		}
		if err := s.SchedulePost(p.ID, p.ScheduledAt); err != nil {
			return err
		}
		s.log.Info().Str("post", p.ID).Time("at", p.ScheduledAt).Msg("restored scheduled post")
	}
	return nil
}

func (s *Service) sweep() {
	err := s.pool.Submit(func(ctx context.Context) error {
		n, err := s.casts.RunPending(ctx)
		if err != nil {
			metrics.IncBroadcastSweep("error")
			return err
		}
		metrics.IncBroadcastSweep("ok")
		if n > 0 {
			s.log.Info().Int("completed", n).Msg("sweep finished posts")
		}
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("sweep skipped, worker queue full")
	}
}
