package repository

import (
	"context"

	"telegram-support-bot/internal/domain/model"
)

// NoticeLedger stores one-off notifications together with the set of users
// already reached. Marking a user delivered must be an atomic append, never
// a read-modify-rewrite of the whole ledger, so concurrent runs cannot lose
// updates.
type NoticeLedger interface {
	Put(ctx context.Context, n *model.Notice) error
	Get(ctx context.Context, token string) (*model.Notice, error)
	Tokens(ctx context.Context) ([]string, error)
	DeliveredTo(ctx context.Context, token string, userID int64) (bool, error)
	MarkDelivered(ctx context.Context, token string, userID int64) error
	Delete(ctx context.Context, token string) error
}
