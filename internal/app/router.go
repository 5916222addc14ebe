package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"restapidemo/internal/platform/metrics"
	"restapidemo/internal/platform/middleware"
	"restapidemo/pkg/platform/httputil"
)

const (
	requestTimeout     = 30 * time.Second
	healthCheckTimeout = 2 * time.Second
)

// NewRouter builds the root router: shared middleware, the operational
// endpoints and every module's routes.
func NewRouter(c *Container, modules []Module) http.Handler {
	httpMetrics := metrics.NewHTTP(c.Registry)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(c.Logger))
	r.Use(middleware.Recovery(c.Logger, httpMetrics))
	r.Use(middleware.Latency(httpMetrics))
	r.Use(middleware.CORS(c.Config.CORSAllowedOrigins))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", handleLiveness)
	r.Get("/readyz", handleReadiness(c))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{Registry: c.Registry}))

	for _, m := range modules {
		m.Register(r)
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleReadiness runs every registered check concurrently and reports 503
// with the failing checks when any of them errors.
func handleReadiness(c *Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		checks := c.HealthChecks()
		var (
			mu       sync.Mutex
			wg       sync.WaitGroup
			failures = map[string]string{}
		)
		for _, hc := range checks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := hc.Check(ctx); err != nil {
					mu.Lock()
					failures[hc.Name] = err.Error()
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if len(failures) > 0 {
			c.Logger.WarnContext(ctx, "readiness check failed",
				"request_id", middleware.GetRequestID(ctx),
				"checks", failures,
			)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Checks: failures})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
