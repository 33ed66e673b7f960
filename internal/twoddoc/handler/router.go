package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tddproof/tddproof-backend/pkg/auth"
	"github.com/tddproof/tddproof-backend/pkg/httputil"
	"github.com/tddproof/tddproof-backend/pkg/logger"
	"github.com/tddproof/tddproof-backend/pkg/metrics"
	"github.com/tddproof/tddproof-backend/pkg/permissions"
)

// HealthCheck reports the state of one dependency, e.g. database.Health
type HealthCheck func(ctx context.Context) map[string]string

// RouterConfig wires the HTTP surface. Tokens and Metrics are optional: a nil
// Tokens leaves /api/v1 open, a nil Metrics disables the scrape endpoint.
type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string

	Documents *DocumentHandler
	Catalog   *CatalogHandler

	Tokens      *auth.Manager
	Metrics     *metrics.Metrics
	MetricsPath string
	Health      map[string]HealthCheck

	Logger *logger.Logger
}

// NewRouter builds the service router
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(cfg.Logger))
	r.Use(httputil.Recoverer(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.Metrics != nil {
		r.Use(observe(cfg.Metrics))
	}

	r.Get("/health", health(cfg.ServiceName, cfg.Health))

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, cfg.Metrics.Handler())
	}

	// scope is a no-op while authentication is disabled
	scope := func(string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Tokens != nil {
			r.Use(httputil.Authenticate(cfg.Tokens, cfg.Logger))
			scope = httputil.RequireScope
		}

		r.With(scope(permissions.DocumentsParse)).Post("/documents/parse", cfg.Documents.Parse)
		r.With(scope(permissions.CircuitsBuild)).Post("/circuit-inputs", cfg.Documents.BuildCircuitInput)

		r.Route("/catalog", func(r chi.Router) {
			r.Use(scope(permissions.CatalogRead))
			r.Get("/fields", cfg.Catalog.ListFields)
			r.Get("/document-types", cfg.Catalog.ListDocumentTypes)
			r.Get("/document-types/{perimeter}/{docType}", cfg.Catalog.GetDocumentType)
		})
	})

	return r
}

func health(service string, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "healthy",
			"service": service,
		}
		code := http.StatusOK
		for name, check := range checks {
			result := check(r.Context())
			body[name] = result
			if result["status"] != "up" {
				body["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		httputil.JSON(w, code, body)
	}
}

// observe counts requests by route pattern, so path parameters do not
// explode the label set.
func observe(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(r.Method, route, status)
		})
	}
}
