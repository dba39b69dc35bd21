package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	apimw "github.com/shipstream/notifier/internal/api/middleware"
	"github.com/shipstream/notifier/internal/domain"
	"github.com/shipstream/notifier/internal/taskqueue"
)

// EventHandler accepts domain events from external producers and places
// them on the event queue. The normal event source is the shipment
// reconciler; this endpoint exists for integrations and manual replay.
type EventHandler struct {
	events taskqueue.Store
	logger *zap.Logger
}

func NewEventHandler(events taskqueue.Store, logger *zap.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

type publishEventRequest struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
	// ScheduleAt defers processing; zero means immediately claimable.
	ScheduleAt  time.Time `json:"schedule_at,omitempty"`
	MaxAttempts int       `json:"max_attempts,omitempty"`
}

// Publish handles POST /api/v1/events
//
// The optional X-Idempotency-Key header becomes the task's dedupe key, so a
// producer retrying over a flaky connection cannot double-publish.
func (h *EventHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item := domain.EnqueueItem{
		Partition:   req.Name,
		Payload:     req.Data,
		MaxAttempts: req.MaxAttempts,
	}
	if key := r.Header.Get("X-Idempotency-Key"); key != "" {
		item.DedupeKey = &key
	}
	if !req.ScheduleAt.IsZero() {
		item.AvailableAt = &req.ScheduleAt
	}

	ids, err := h.events.Enqueue(r.Context(), []domain.EnqueueItem{item})
	if err != nil {
		h.logger.Warn("publish event failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("event", req.Name),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	// A deduplicated publish produced no row; report it as accepted anyway
	// since the original task is still in flight.
	if len(ids) == 0 {
		respondJSON(w, http.StatusOK, map[string]any{"duplicate": true})
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"id": ids[0]})
}
