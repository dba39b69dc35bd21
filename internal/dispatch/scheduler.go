package dispatch

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler is the clock source that triggers dispatch invocations on a
// cadence. One cron entry exists per queue partition (event topics plus
// notification channels); each tick runs a single claim/handle/acknowledge
// cycle and returns.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
		ctx:    context.Background(),
	}
}

// Add registers a dispatch function under a cron spec ("@every 30s" or a
// five-field expression). Must be called before Start.
func (s *Scheduler) Add(spec, partition string, dispatch func(ctx context.Context, partition string) (Result, error)) error {
	_, err := s.cron.AddFunc(spec, func() {
		result, err := dispatch(s.ctx, partition)
		if err != nil {
			s.logger.Error("dispatch cycle failed",
				zap.String("partition", partition), zap.Error(err))
			return
		}
		if result.Processed > 0 {
			s.logger.Info("dispatch cycle",
				zap.String("partition", partition),
				zap.Int("processed", result.Processed),
				zap.Int("errors", result.Errors))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", partition, err)
	}
	return nil
}

// Start begins ticking. The ctx is forwarded to every dispatch invocation;
// cancel it before calling Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("dispatch scheduler started", zap.Int("entries", len(s.cron.Entries())))
}

// Stop halts the ticker and blocks until in-flight dispatch cycles finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("dispatch scheduler stopped")
}
