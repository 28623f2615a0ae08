package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"service-delivery/internal/logx"
)

// HTTPMetrics are labelled by method, route pattern and status. Nil fields are skipped.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func (m HTTPMetrics) observe(method, path, status string, took time.Duration) {
	if m.Requests != nil {
		m.Requests.WithLabelValues(method, path, status).Inc()
	}
	if m.Duration != nil {
		m.Duration.WithLabelValues(method, path, status).Observe(took.Seconds())
	}
}

// Observability - middleware for prometheus and access log.
// Event streams are measured once, when the client goes away.
func Observability(logger logx.Logger, m HTTPMetrics) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logx.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor) // Flush сохраняется, SSE работает
			next.ServeHTTP(ww, r)
			took := time.Since(start)

			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			route := routeOf(r) // шаблон, а не путь: id не попадают в лейблы
			m.observe(r.Method, route, strconv.Itoa(code), took)

			log := logger.Info
			if code >= http.StatusInternalServerError {
				log = logger.Warn
			}
			log("http request",
				logx.String("request_id", chimw.GetReqID(r.Context())),
				logx.String("method", r.Method),
				logx.String("path", route),
				logx.Int("status", code),
				logx.Int("bytes", ww.BytesWritten()),
				logx.Duration("duration", took),
			)
		})
	}
}

func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
