package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shipstream/notifier/internal/domain"
	"github.com/shipstream/notifier/internal/taskqueue"
)

// DepthPoller periodically samples the per-status row counts of each queue
// into the queue_depth gauge. Depths come from the durable store rather
// than process memory, so the gauge stays truthful across restarts and
// multiple instances.
type DepthPoller struct {
	stores   map[domain.Queue]taskqueue.Store
	metrics  *Metrics
	interval time.Duration
	logger   *zap.Logger
}

func NewDepthPoller(
	stores map[domain.Queue]taskqueue.Store,
	m *Metrics,
	interval time.Duration,
	logger *zap.Logger,
) *DepthPoller {
	return &DepthPoller{stores: stores, metrics: m, interval: interval, logger: logger}
}

// Run ticks every interval until ctx is cancelled.
func (p *DepthPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("queue depth poller started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("queue depth poller stopping")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *DepthPoller) poll(ctx context.Context) {
	statuses := []domain.TaskStatus{
		domain.TaskPending, domain.TaskProcessing, domain.TaskCompleted, domain.TaskFailed,
	}
	for queue, store := range p.stores {
		depths, err := store.Depths(ctx)
		if err != nil {
			p.logger.Error("queue depth poll error",
				zap.String("queue", string(queue)), zap.Error(err))
			continue
		}
		// Explicitly zero absent statuses so a drained queue reads 0
		// instead of holding its last value.
		for _, status := range statuses {
			p.metrics.QueueDepth.WithLabelValues(string(queue), string(status)).
				Set(float64(depths[status]))
		}
	}
}
