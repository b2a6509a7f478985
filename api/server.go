/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logging:    zerolog request log (status, duration, request id)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/subjects/{id}/*  Per-subject balance, events, summaries, holidays
  /api/rules            Active rule set
  /metrics              Prometheus
  /healthz              Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/worktime/serve.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterOptions configures the router around the handlers.
type RouterOptions struct {
	AllowedOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  zerolog.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/rules", h.GetRules)

		r.Route("/subjects/{id}", func(r chi.Router) {
			r.Get("/balance", h.GetBalance)
			r.Get("/live", h.StreamBalance)

			r.Get("/week", h.GetWeek)
			r.Get("/month", h.GetMonth)
			r.Get("/days", h.ListDays)

			// Event routes
			r.Route("/events", func(r chi.Router) {
				r.Get("/", h.ListEvents)
				r.Post("/", h.RecordEvent)
				r.Delete("/{eventID}", h.DeleteEvent)
			})

			// Holiday routes
			r.Route("/holidays", func(r chi.Router) {
				r.Get("/", h.ListHolidays)
				r.Post("/", h.CreateHoliday)
				r.Delete("/{hid}", h.DeleteHoliday)
				r.Post("/{hid}/disable", h.DisableHoliday)
				r.Post("/{hid}/enable", h.EnableHoliday)
			})

			// Period routes
			r.Route("/periods", func(r chi.Router) {
				r.Get("/", h.ListPeriods)
				r.Post("/close", h.ClosePeriod)
			})
		})
	})

	return r
}

// LoggingMiddleware logs every request with zerolog.
func LoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi's wrapper keeps http.Flusher for the live stream.
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}
			evt := logger.Info()
			if status >= http.StatusInternalServerError {
				evt = logger.Error()
			}
			evt.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Int("status", status).
				Int("bytes", wrapped.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}
