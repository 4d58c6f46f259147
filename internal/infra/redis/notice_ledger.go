package redis

import (
	"context"
	"fmt"
	"time"

	"telegram-support-bot/internal/domain"
	"telegram-support-bot/internal/domain/model"
)

const noticeIndexKey = "notices"

// NoticeLedger keeps one-off notifications in Redis: a hash per notice, a
// set of delivered user ids per notice, and an index set of live tokens.
// MarkDelivered is a single SADD, so concurrent runs append atomically and
// never clobber each other's progress.
type NoticeLedger struct {
	client *Client
}

func NewNoticeLedger(client *Client) *NoticeLedger {
	return &NoticeLedger{client: client}
}

func noticeKey(token string) string    { return "notice:" + token }
func deliveredKey(token string) string { return "notice_delivered:" + token }

func (l *NoticeLedger) Put(ctx context.Context, n *model.Notice) error {
	key := noticeKey(n.Token)
	if err := l.client.HSet(ctx, key,
		"category", n.Category.String(),
		"text", n.Text,
		"created_at", n.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("store notice: %w", err)
	}
	if err := l.client.SAdd(ctx, noticeIndexKey, n.Token); err != nil {
		return fmt.Errorf("index notice: %w", err)
	}
	return nil
}

func (l *NoticeLedger) Get(ctx context.Context, token string) (*model.Notice, error) {
	fields, err := l.client.HGetAll(ctx, noticeKey(token))
	if err != nil {
		return nil, fmt.Errorf("load notice: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	c, ok := model.ParseCategory(fields["category"])
	if !ok {
		return nil, fmt.Errorf("notice %s: bad category %q", token, fields["category"])
	}
	createdAt, _ := time.Parse(time.RFC3339, fields["created_at"])
	return &model.Notice{
		Token:     token,
		Category:  c,
		Text:      fields["text"],
		CreatedAt: createdAt,
	}, nil
}

func (l *NoticeLedger) Tokens(ctx context.Context) ([]string, error) {
	return l.client.SMembers(ctx, noticeIndexKey)
}

func (l *NoticeLedger) DeliveredTo(ctx context.Context, token string, userID int64) (bool, error) {
	return l.client.SIsMember(ctx, deliveredKey(token), userID)
}

func (l *NoticeLedger) MarkDelivered(ctx context.Context, token string, userID int64) error {
	return l.client.SAdd(ctx, deliveredKey(token), userID)
}

func (l *NoticeLedger) Delete(ctx context.Context, token string) error {
	if err := l.client.Del(ctx, noticeKey(token), deliveredKey(token)); err != nil {
		return err
	}
	return l.client.SRem(ctx, noticeIndexKey, token)
}
