package model

import (
	"time"

	"github.com/google/uuid"

	"telegram-support-bot/internal/domain"
)

// Notice is the simpler one-off notification variant: instead of a delivery
// record per (user, post) pair, the ledger entry itself carries the ids of
// users already reached. A user listed there is never re-sent the notice.
type Notice struct {
	Token     string
	Category  Category
	Text      string
	CreatedAt time.Time
}

func NewNotice(category Category, text string) (*Notice, error) {
	if !category.Valid() || text == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Notice{
		Token:     uuid.NewString(),
		Category:  category,
		Text:      text,
		CreatedAt: time.Now(),
	}, nil
}
