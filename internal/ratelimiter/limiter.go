package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/shipstream/notifier/internal/domain"
)

// ChannelLimiters holds one token bucket per notification channel so a
// burst on one provider never starves the others. Burst equals the rate,
// which prevents any "saved up" burst above the per-second maximum.
type ChannelLimiters struct {
	limiters map[domain.Channel]*rate.Limiter
}

// New creates limiters for the given channels at ratePerSec tokens each.
func New(ratePerSec int, channels []domain.Channel) *ChannelLimiters {
	r := rate.Limit(ratePerSec)
	limiters := make(map[domain.Channel]*rate.Limiter, len(channels))
	for _, ch := range channels {
		limiters[ch] = rate.NewLimiter(r, ratePerSec)
	}
	return &ChannelLimiters{limiters: limiters}
}

// Wait blocks until the channel's limiter grants a token. Channels without
// a configured limiter pass through unthrottled. Returns a non-nil error
// only if ctx is cancelled while waiting.
func (cl *ChannelLimiters) Wait(ctx context.Context, ch domain.Channel) error {
	l, ok := cl.limiters[ch]
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}
