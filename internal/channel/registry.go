package channel

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shipstream/notifier/internal/domain"
)

// Registry maps each channel to exactly one adapter. Callers never branch
// on adapter identity; swapping a real provider for the logging adapter is
// a registration change, not a code change.
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.Channel]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.Channel]Adapter)}
}

// Register binds an adapter to a channel, replacing any previous binding.
func (r *Registry) Register(ch domain.Channel, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[ch] = a
}

// Channels lists all registered channels in stable order. The dispatch
// scheduler uses this to derive the notification queue partitions.
func (r *Registry) Channels() []domain.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]domain.Channel, 0, len(r.adapters))
	for ch := range r.adapters {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	return channels
}

// Send routes the payload to its channel's adapter. An unregistered channel
// yields a structured failure rather than an error so the caller can
// MarkFailed normally instead of crashing the dispatch loop.
func (r *Registry) Send(ctx context.Context, p *domain.NotificationPayload) SendResult {
	r.mu.RLock()
	adapter, ok := r.adapters[p.Channel]
	r.mu.RUnlock()

	if !ok {
		return SendResult{Error: fmt.Sprintf("no adapter registered for channel %q", p.Channel)}
	}
	return adapter.Send(ctx, p)
}
