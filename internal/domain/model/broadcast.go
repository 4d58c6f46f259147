package model

import (
	"time"

	"github.com/google/uuid"

	"telegram-support-bot/internal/domain"
)

// PendingBroadcast is a category-scoped post that has been announced but
// whose delivery to every subscriber is not yet guaranteed complete. It is
// persisted before the first send so an in-flight broadcast survives a crash.
type PendingBroadcast struct {
	ID        string
	Category  Category
	Text      string
	CreatedAt time.Time
	// ScheduledAt delays the first delivery attempt. Zero means immediate.
	ScheduledAt time.Time
	CompletedAt *time.Time
}

func NewPendingBroadcast(category Category, text string, scheduledAt time.Time) (*PendingBroadcast, error) {
	if !category.Valid() || text == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &PendingBroadcast{
		ID:          uuid.NewString(),
		Category:    category,
		Text:        text,
		CreatedAt:   time.Now(),
		ScheduledAt: scheduledAt,
	}, nil
}

func (p *PendingBroadcast) Complete() bool { return p != nil && p.CompletedAt != nil }

// Due reports whether the post may be delivered at the given instant.
func (p *PendingBroadcast) Due(now time.Time) bool {
	return p.ScheduledAt.IsZero() || !p.ScheduledAt.After(now)
}

// DeliveryStatus tags the outcome of one recipient within a broadcast run.
// Outcomes are collected per user instead of driving the loop with errors,
// so resume logic is testable without real transport failures.
type DeliveryStatus int

const (
	Delivered DeliveryStatus = iota
	SkippedDuplicate
	SkippedUnreachable
	Failed
)

func (s DeliveryStatus) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case SkippedDuplicate:
		return "skipped_duplicate"
	case SkippedUnreachable:
		return "skipped_unreachable"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type DeliveryResult struct {
	UserID int64
	Status DeliveryStatus
	Err    error
}

// RunReport summarizes one Run invocation for a post. Aborted is true when
// the run stopped early on a transient failure; the remaining subscribers
// keep lacking delivery records and are retried on the next invocation.
type RunReport struct {
	PostID  string
	Results []DeliveryResult
	Aborted bool
}

func (r *RunReport) Count(s DeliveryStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Covered reports whether every enumerated subscriber either got the post
// now, had it already, or can never receive it.
func (r *RunReport) Covered() bool {
	if r.Aborted {
		return false
	}
	for _, res := range r.Results {
		if res.Status == Failed {
			return false
		}
	}
	return true
}
