package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"holder-risk-engine/internal/infrastructure/logger"
	"holder-risk-engine/internal/infrastructure/metrics"
	"holder-risk-engine/internal/interfaces/http/rest/handlers"
	"holder-risk-engine/internal/interfaces/http/rest/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) bool

type namedCheck struct {
	name  string
	check HealthCheck
}

// Router creates and configures the HTTP router
type Router struct {
	holderRisk    *handlers.HolderRiskHandler
	collector     *metrics.Collector
	healthTimeout time.Duration
	checks        []namedCheck
	logger        *logger.Logger
}

// NewRouter creates a new router instance
func NewRouter(holderRisk *handlers.HolderRiskHandler, collector *metrics.Collector, healthTimeout time.Duration, logger *logger.Logger) *Router {
	return &Router{
		holderRisk:    holderRisk,
		collector:     collector,
		healthTimeout: healthTimeout,
		logger:        logger.WithComponent("http"),
	}
}

// AddHealthCheck registers a dependency probed by /health
func (rt *Router) AddHealthCheck(name string, check HealthCheck) {
	rt.checks = append(rt.checks, namedCheck{name: name, check: check})
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger, rt.collector))

	router.Get("/health", rt.healthCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/holder-risk", func(r chi.Router) {
			r.Post("/", rt.holderRisk.Analyze)
			r.Get("/{tokenAddress}", rt.holderRisk.GetLatest)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if len(rt.checks) == 0 {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
		return
	}

	ctx := req.Context()
	if rt.healthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.healthTimeout)
		defer cancel()
	}

	status := "ok"
	code := http.StatusOK
	results := make(map[string]string, len(rt.checks))
	for _, c := range rt.checks {
		if c.check(ctx) {
			results[c.name] = "up"
			continue
		}
		results[c.name] = "down"
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": results,
	})
}
