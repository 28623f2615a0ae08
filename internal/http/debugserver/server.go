// Package debugserver serves prometheus metrics and pprof on a separate listener.
package debugserver

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const realm = "debug"

// Config stores debug listener settings.
type Config struct {
	Addr string
	User string
	Pass string
}

// Handler mounts /metrics and /debug/pprof/*.
// Loopback callers pass freely, everyone else needs basic auth,
// and without configured credentials remote access is closed.
func Handler(cfg Config, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(loopbackOr(remoteGuard(cfg)))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Mount("/debug", middleware.Profiler())
	return r
}

// New returns the debug http.Server, or nil when Addr is empty.
func New(cfg Config, gatherer prometheus.Gatherer) *http.Server {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           Handler(cfg, gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func remoteGuard(cfg Config) func(http.Handler) http.Handler {
	if cfg.User == "" || cfg.Pass == "" {
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			})
		}
	}
	return middleware.BasicAuth(realm, map[string]string{cfg.User: cfg.Pass})
}

// loopbackOr skips guard for requests coming from the same host.
func loopbackOr(guard func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		guarded := guard(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isLoopback(r.RemoteAddr) {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

func isLoopback(remoteAddr string) bool {
	host := strings.TrimSpace(remoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
