package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-delivery/internal/config"
	"service-delivery/internal/http/debugserver"
	"service-delivery/internal/http/handlers"
	appmw "service-delivery/internal/http/middleware"
	"service-delivery/internal/http/router"
	"service-delivery/internal/logx"
	"service-delivery/internal/ratelimit"
	"service-delivery/internal/service/delivery"
)

type rateLimitIn struct {
	dig.In

	Config  *config.Config
	Logger  logx.Logger
	Counter prometheus.Counter `name:"rate_limit_exceeded_total"`
}

// newRateLimitMiddleware returns nil when the limiter is disabled; the router then skips it.
func newRateLimitMiddleware(in rateLimitIn) *appmw.RateLimit {
	rl := in.Config.RateLimit
	if !rl.Enabled {
		return nil
	}
	limiter := ratelimit.NewTokenBucket(ratelimit.RealClock{}, ratelimit.Config{
		Rate:       rl.Rate,
		Burst:      rl.Burst,
		TTL:        rl.TTL,
		MaxBuckets: rl.MaxBuckets,
	})
	return appmw.NewRateLimit(in.Logger, in.Counter, limiter,
		appmw.WithRetryAfter(time.Duration(float64(time.Second)/rl.Rate)))
}

func newStreamHandler(logger logx.Logger, c *delivery.Coordinator) *handlers.StreamHandler {
	return handlers.NewStreamHandler(logger, handlers.NewStreamUsecase(c), 0)
}

type routerIn struct {
	dig.In

	Logger    logx.Logger
	Base      *handlers.Handlers
	Delivery  *handlers.DeliveryHandler
	Stream    *handlers.StreamHandler
	RateLimit *appmw.RateLimit

	Requests *prometheus.CounterVec   `name:"http_requests_total"`
	Duration *prometheus.HistogramVec `name:"http_request_duration_seconds"`
}

func newRouter(in routerIn) http.Handler {
	return router.New(router.Deps{
		Logger:    in.Logger,
		Base:      in.Base,
		Delivery:  in.Delivery,
		Stream:    in.Stream,
		RateLimit: in.RateLimit,
		Metrics:   appmw.HTTPMetrics{Requests: in.Requests, Duration: in.Duration},
	})
}

func newServer(cfg *config.Config, mux http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// 0: поток событий живёт дольше любого таймаута записи
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
}

type debugServerOut struct {
	dig.Out

	Server *http.Server `name:"debug_server"`
}

func newDebugServer(cfg *config.Config, gatherer prometheus.Gatherer) debugServerOut {
	return debugServerOut{Server: debugserver.New(debugserver.Config{
		Addr: cfg.Debug.Addr,
		User: cfg.Debug.PprofUser,
		Pass: cfg.Debug.PprofPass,
	}, gatherer)}
}

func newBaseHandlers(logger logx.Logger, st *storage) *handlers.Handlers {
	return handlers.New(logger, st.Ping)
}

func registerHTTP(container *dig.Container) error {
	return provideAll(container,
		newBaseHandlers,
		handlers.NewDeliveryUsecase,
		handlers.NewDeliveryHandler,
		newStreamHandler,
		newRateLimitMiddleware,
		newRouter,
		newServer,
		newDebugServer,
	)
}
