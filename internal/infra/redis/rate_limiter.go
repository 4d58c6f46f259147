package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter. The bot uses it to throttle inbound
// user messages so one user cannot flood a staff topic.
type RateLimiter struct {
	client *Client
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Hit records one event against key and returns the event count inside the
// current window. The first hit of a window arms the expiry. Callers apply
// the limit themselves, which lets them treat the first excess hit (feedback
// to the user) differently from the rest (silence).
func (r *RateLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return 0, err
		}
	}
	return count, nil
}

func UserThrottleKey(userID int64) string {
	return fmt.Sprintf("throttle:%d", userID)
}
