package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apimw "github.com/shipstream/notifier/internal/api/middleware"
	"github.com/shipstream/notifier/internal/domain"
	"github.com/shipstream/notifier/internal/shipment"
)

// ShipmentHandler registers shipments for tracking and exposes their
// current state.
type ShipmentHandler struct {
	repo   shipment.Repository
	logger *zap.Logger
}

func NewShipmentHandler(repo shipment.Repository, logger *zap.Logger) *ShipmentHandler {
	return &ShipmentHandler{repo: repo, logger: logger}
}

type createShipmentRequest struct {
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
	Reference      string `json:"reference,omitempty"`
}

func (req *createShipmentRequest) validate() error {
	if req.TrackingNumber == "" {
		return domain.ErrInvalidTracking
	}
	if req.Carrier == "" {
		return domain.ErrInvalidCarrier
	}
	return nil
}

// Create handles POST /api/v1/shipments
func (h *ShipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		mapError(w, err)
		return
	}

	ship := &domain.Shipment{
		ID:             uuid.New().String(),
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		Status:         domain.ShipmentPending,
		Reference:      req.Reference,
	}
	if err := h.repo.Create(r.Context(), ship); err != nil {
		h.logger.Warn("create shipment failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("tracking_number", req.TrackingNumber),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ship)
}

// Get handles GET /api/v1/shipments/{trackingNumber}
func (h *ShipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	trackingNumber := chi.URLParam(r, "trackingNumber")
	ship, err := h.repo.GetByTracking(r.Context(), trackingNumber)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ship)
}
