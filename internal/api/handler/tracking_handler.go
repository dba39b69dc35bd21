package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/shipstream/notifier/internal/api/middleware"
	"github.com/shipstream/notifier/internal/domain"
	"github.com/shipstream/notifier/internal/shipment"
)

// TrackingHandler is the carrier-facing boundary: webhooks and pollers POST
// raw tracking updates here.
type TrackingHandler struct {
	reconciler *shipment.Reconciler
	logger     *zap.Logger
}

func NewTrackingHandler(rec *shipment.Reconciler, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{reconciler: rec, logger: logger}
}

// Update handles POST /api/v1/tracking/updates
//
// Duplicate deliveries of the same carrier event are absorbed and reported
// with "duplicate": true rather than an error, so at-least-once webhook
// senders never see spurious failures.
func (h *TrackingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update domain.TrackingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	outcome, err := h.reconciler.Process(r.Context(), update)
	if err != nil {
		h.logger.Warn("tracking update failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("tracking_number", update.TrackingNumber),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}
