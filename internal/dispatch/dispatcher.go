// Package dispatch drives the two queues: claim a batch, invoke the handler
// or channel adapter per task, and acknowledge each outcome. One invocation
// processes one batch and returns, which suits both a cron trigger and a
// poll loop.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shipstream/notifier/internal/channel"
	"github.com/shipstream/notifier/internal/domain"
	"github.com/shipstream/notifier/internal/ratelimiter"
	"github.com/shipstream/notifier/internal/taskqueue"
)

// Result counts what one dispatch invocation did.
type Result struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// Hooks carries metric callbacks injected by main so the dispatchers stay
// prometheus-agnostic. Nil hooks are replaced with no-ops.
type Hooks struct {
	OnCompleted  func(queue string, n int)
	OnTaskFailed func(queue string, n int)
	OnSent       func(ch domain.Channel, latency time.Duration)
	OnSendFailed func(ch domain.Channel)
}

func (h Hooks) withDefaults() Hooks {
	if h.OnCompleted == nil {
		h.OnCompleted = func(string, int) {}
	}
	if h.OnTaskFailed == nil {
		h.OnTaskFailed = func(string, int) {}
	}
	if h.OnSent == nil {
		h.OnSent = func(domain.Channel, time.Duration) {}
	}
	if h.OnSendFailed == nil {
		h.OnSendFailed = func(domain.Channel) {}
	}
	return h
}

// Options tunes both dispatcher kinds.
type Options struct {
	BatchSize         int
	VisibilityTimeout time.Duration
	Backoff           Backoff
}

// Handler consumes one claimed event task. A non-nil error sends the task
// through the retry path.
type Handler func(ctx context.Context, task *domain.Task) error

// EventDispatcher drains one event-queue topic per invocation by invoking
// the handler registered for that topic.
type EventDispatcher struct {
	store    taskqueue.Store
	handlers map[string]Handler
	opts     Options
	hooks    Hooks
	logger   *zap.Logger
}

func NewEventDispatcher(store taskqueue.Store, opts Options, hooks Hooks, logger *zap.Logger) *EventDispatcher {
	return &EventDispatcher{
		store:    store,
		handlers: make(map[string]Handler),
		opts:     opts,
		hooks:    hooks.withDefaults(),
		logger:   logger,
	}
}

// Register binds a handler to a topic. Registration happens at startup,
// before any dispatching; it is not synchronised.
func (d *EventDispatcher) Register(topic string, h Handler) {
	d.handlers[topic] = h
}

// Topics lists the registered topics in stable order, for the scheduler.
func (d *EventDispatcher) Topics() []string {
	topics := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Dispatch claims one batch for the topic and feeds each task to its
// handler. A handler error fails that task only; the rest of the batch
// continues. Successes are acknowledged in a single batched MarkCompleted.
func (d *EventDispatcher) Dispatch(ctx context.Context, topic string) (Result, error) {
	var result Result

	tasks, err := d.store.Claim(ctx, topic, taskqueue.ClaimOptions{
		BatchSize:         d.opts.BatchSize,
		VisibilityTimeout: d.opts.VisibilityTimeout,
	})
	if err != nil {
		return result, fmt.Errorf("claim %s: %w", topic, err)
	}
	if len(tasks) == 0 {
		return result, nil
	}

	handler, ok := d.handlers[topic]

	var completed []string
	for _, task := range tasks {
		result.Processed++

		if !ok {
			result.Errors++
			d.failTask(ctx, topic, task, fmt.Sprintf("no handler registered for topic %q", topic))
			continue
		}

		if err := handler(ctx, task); err != nil {
			result.Errors++
			d.failTask(ctx, topic, task, err.Error())
			continue
		}
		completed = append(completed, task.ID)
	}

	if err := d.store.MarkCompleted(ctx, completed); err != nil {
		return result, fmt.Errorf("acknowledge %s: %w", topic, err)
	}
	d.hooks.OnCompleted(string(domain.QueueEvents), len(completed))
	return result, nil
}

func (d *EventDispatcher) failTask(ctx context.Context, topic string, task *domain.Task, cause string) {
	retryAt := time.Now().UTC().Add(d.opts.Backoff.Delay(task.Attempts))
	if err := d.store.MarkFailed(ctx, task.ID, cause, &retryAt); err != nil {
		d.logger.Error("mark event task failed",
			zap.String("task_id", task.ID), zap.Error(err))
		return
	}
	d.hooks.OnTaskFailed(string(domain.QueueEvents), 1)
	d.logger.Warn("event task failed",
		zap.String("task_id", task.ID),
		zap.String("topic", topic),
		zap.Int("attempts", task.Attempts),
		zap.String("cause", cause))
}

// NotificationDispatcher drains one notification-queue channel per
// invocation, routing each task through the adapter registry. Sends within
// a batch run concurrently, bounded by the batch size; the per-channel rate
// limiter throttles the actual provider calls.
type NotificationDispatcher struct {
	store    taskqueue.Store
	registry *channel.Registry
	limiter  *ratelimiter.ChannelLimiters
	opts     Options
	hooks    Hooks
	logger   *zap.Logger
}

func NewNotificationDispatcher(
	store taskqueue.Store,
	registry *channel.Registry,
	limiter *ratelimiter.ChannelLimiters,
	opts Options,
	hooks Hooks,
	logger *zap.Logger,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		store:    store,
		registry: registry,
		limiter:  limiter,
		opts:     opts,
		hooks:    hooks.withDefaults(),
		logger:   logger,
	}
}

func (d *NotificationDispatcher) Dispatch(ctx context.Context, ch string) (Result, error) {
	var result Result

	tasks, err := d.store.Claim(ctx, ch, taskqueue.ClaimOptions{
		BatchSize:         d.opts.BatchSize,
		VisibilityTimeout: d.opts.VisibilityTimeout,
	})
	if err != nil {
		return result, fmt.Errorf("claim %s: %w", ch, err)
	}
	if len(tasks) == 0 {
		return result, nil
	}

	var (
		mu        sync.Mutex
		completed []string
		errCount  int
	)

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task *domain.Task) {
			defer wg.Done()
			if d.send(ctx, task) {
				mu.Lock()
				completed = append(completed, task.ID)
				mu.Unlock()
			} else {
				mu.Lock()
				errCount++
				mu.Unlock()
			}
		}(task)
	}
	wg.Wait()

	result.Processed = len(tasks)
	result.Errors = errCount

	if err := d.store.MarkCompleted(ctx, completed); err != nil {
		return result, fmt.Errorf("acknowledge %s: %w", ch, err)
	}
	d.hooks.OnCompleted(string(domain.QueueNotifications), len(completed))
	return result, nil
}

// send delivers one notification task and reports whether it succeeded.
// Every failure path, including an undecodable payload or an unregistered
// channel, goes through MarkFailed so the task is never silently dropped.
func (d *NotificationDispatcher) send(ctx context.Context, task *domain.Task) bool {
	payload, err := decodePayload(task)
	if err != nil {
		d.failTask(ctx, task, err.Error(), domain.Channel(task.Partition))
		return false
	}

	if err := d.limiter.Wait(ctx, payload.Channel); err != nil {
		// ctx cancelled while waiting for a token: the dispatcher is
		// shutting down, so put the task back for the next cycle.
		d.failTask(ctx, task, "dispatch cancelled while rate limited", payload.Channel)
		return false
	}

	start := time.Now()
	sendResult := d.registry.Send(ctx, payload)
	if !sendResult.Success {
		d.failTask(ctx, task, sendResult.Error, payload.Channel)
		return false
	}

	d.hooks.OnSent(payload.Channel, time.Since(start))
	d.logger.Info("notification sent",
		zap.String("task_id", task.ID),
		zap.String("channel", string(payload.Channel)),
		zap.String("recipient", payload.Recipient),
		zap.String("provider_id", sendResult.ProviderID))
	return true
}

func (d *NotificationDispatcher) failTask(ctx context.Context, task *domain.Task, cause string, ch domain.Channel) {
	retryAt := time.Now().UTC().Add(d.opts.Backoff.Delay(task.Attempts))
	if err := d.store.MarkFailed(ctx, task.ID, cause, &retryAt); err != nil {
		d.logger.Error("mark notification task failed",
			zap.String("task_id", task.ID), zap.Error(err))
		return
	}
	d.hooks.OnTaskFailed(string(domain.QueueNotifications), 1)
	d.hooks.OnSendFailed(ch)
	d.logger.Warn("notification send failed",
		zap.String("task_id", task.ID),
		zap.String("channel", string(ch)),
		zap.Int("attempts", task.Attempts),
		zap.String("cause", cause))
}

func decodePayload(task *domain.Task) (*domain.NotificationPayload, error) {
	var p domain.NotificationPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode notification payload: %w", err)
	}
	return &p, nil
}
