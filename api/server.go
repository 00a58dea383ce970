/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Wires the ops surface of the leave engine: health, maintenance mode,
  balance lookups, termination payouts, year-end rollover, the balance
  report and scheduler status.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP
  3. Logger:     Request logging through logrus
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS

ROUTES:
  GET  /healthz
  GET  /api/maintenance
  PUT  /api/maintenance
  GET  /api/balances/{email}?year=
  GET  /api/balances/{email}/termination?year=
  POST /api/balances/{email}/adjustments
  POST /api/rollover
  GET  /api/reports/{year}
  GET  /api/scheduler

SECURITY NOTE:
  No authentication middleware. Bind to an internal interface only.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/leaved/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
)

// NewRouter creates a router with all routes configured. allowedOrigins
// feeds the CORS handler.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/maintenance", h.GetMaintenance)
		r.Put("/maintenance", h.SetMaintenance)

		r.Route("/balances/{email}", func(r chi.Router) {
			r.Get("/", h.GetBalances)
			r.Get("/termination", h.GetTermination)
			r.Post("/adjustments", h.AdjustBalance)
		})

		r.Post("/rollover", h.TriggerRollover)
		r.Get("/reports/{year}", h.DownloadReport)
		r.Get("/scheduler", h.SchedulerStatus)
	})

	return r
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.WithContext(r.Context()).WithFields(log.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("http request")
		})
	}
}
