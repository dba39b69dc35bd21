package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shipstream/notifier/internal/domain"
	"github.com/shipstream/notifier/internal/taskqueue"
)

// QueueHandler exposes operational views over the durable queues: per-status
// depths and the terminally failed tasks awaiting triage.
type QueueHandler struct {
	stores map[domain.Queue]taskqueue.Store
}

func NewQueueHandler(stores map[domain.Queue]taskqueue.Store) *QueueHandler {
	return &QueueHandler{stores: stores}
}

func (h *QueueHandler) store(r *http.Request) (taskqueue.Store, error) {
	queue := domain.Queue(chi.URLParam(r, "queue"))
	store, ok := h.stores[queue]
	if !ok {
		return nil, domain.ErrInvalidQueue
	}
	return store, nil
}

// Stats handles GET /api/v1/queues/{queue}/stats
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	store, err := h.store(r)
	if err != nil {
		mapError(w, err)
		return
	}

	depths, err := store.Depths(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read queue depths")
		return
	}

	// Zero-fill so the response shape is stable even for an empty queue.
	stats := map[domain.TaskStatus]int{
		domain.TaskPending:    depths[domain.TaskPending],
		domain.TaskProcessing: depths[domain.TaskProcessing],
		domain.TaskCompleted:  depths[domain.TaskCompleted],
		domain.TaskFailed:     depths[domain.TaskFailed],
	}
	respondJSON(w, http.StatusOK, stats)
}

// ListFailed handles GET /api/v1/queues/{queue}/failed
func (h *QueueHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	store, err := h.store(r)
	if err != nil {
		mapError(w, err)
		return
	}

	q := r.URL.Query()
	limit := 100
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}

	tasks, err := store.ListFailed(r.Context(), q.Get("partition"), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list failed tasks")
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  tasks,
		"count": len(tasks),
	})
}
