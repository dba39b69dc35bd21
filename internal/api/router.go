package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shipstream/notifier/internal/api/handler"
	apimw "github.com/shipstream/notifier/internal/api/middleware"
	"github.com/shipstream/notifier/internal/domain"
	"github.com/shipstream/notifier/internal/shipment"
	"github.com/shipstream/notifier/internal/taskqueue"
)

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Stores     map[domain.Queue]taskqueue.Store
	Shipments  shipment.Repository
	Reconciler *shipment.Reconciler
	DB         handler.Pinger
	Registry   prometheus.Gatherer
	Logger     *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(deps.Logger))

	hh := handler.NewHealthHandler(deps.DB)
	eh := handler.NewEventHandler(deps.Stores[domain.QueueEvents], deps.Logger)
	th := handler.NewTrackingHandler(deps.Reconciler, deps.Logger)
	sh := handler.NewShipmentHandler(deps.Shipments, deps.Logger)
	qh := handler.NewQueueHandler(deps.Stores)

	r.Get("/health", hh.Health)
	r.Get("/ready", hh.Ready)

	r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/events", eh.Publish)

		r.Post("/tracking/updates", th.Update)

		r.Post("/shipments", sh.Create)
		r.Get("/shipments/{trackingNumber}", sh.Get)

		r.Get("/queues/{queue}/stats", qh.Stats)
		r.Get("/queues/{queue}/failed", qh.ListFailed)
	})

	return r
}
