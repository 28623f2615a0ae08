package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"service-delivery/internal/http/handlers"
	appmw "service-delivery/internal/http/middleware"
	"service-delivery/internal/logx"
)

// Deps are the handlers and middlewares the router mounts.
type Deps struct {
	Logger    logx.Logger
	Base      *handlers.Handlers
	Delivery  *handlers.DeliveryHandler
	Stream    *handlers.StreamHandler
	RateLimit *appmw.RateLimit
	Metrics   appmw.HTTPMetrics
}

// New constructs a chi-based http.Handler with base middleware and routes.
// The event stream is long-lived and is kept out of the request timeout.
func New(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = logx.Nop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmw.Observability(logger, d.Metrics))
	r.Use(middleware.Recoverer)
	if d.RateLimit != nil {
		r.Use(d.RateLimit.Handler())
	}

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	r.Route("/deliveries", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(5 * time.Second))

			r.Post("/", d.Delivery.Register)
			r.Get("/{id}", d.Delivery.Get)
			r.Get("/{id}/qr", d.Delivery.QR)
			r.Post("/{id}/collections", d.Delivery.CollectItem)
			r.Post("/{id}/transit", d.Delivery.StartTransit)
			r.Post("/{id}/location", d.Delivery.ReportLocation)
			r.Post("/{id}/tracking/stop", d.Delivery.StopTracking)
			r.Post("/{id}/tracking/resume", d.Delivery.ResumeTracking)
			r.Post("/{id}/validate", d.Delivery.Validate)
			r.Post("/{id}/code/rotate", d.Delivery.RotateCode)
		})
		r.Get("/{id}/events", d.Stream.Events)
	})

	return r
}
