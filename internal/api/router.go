package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/cryptoetf/backend/internal/api/handlers"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
	"github.com/wonny/cryptoetf/backend/pkg/metrics"
)

// Handlers groups everything the router mounts
type Handlers struct {
	ETF          *handlers.ETFHandler
	Sync         *handlers.SyncHandler
	Health       *handlers.HealthHandler
	Subscription *handlers.SubscriptionHandler
}

// NewRouter creates and configures the HTTP router.
// rec may be nil, in which case /metrics is not mounted.
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, rec *metrics.Recorder, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Liveness
	r.HandleFunc("/health", handlers.Liveness).Methods("GET")
	if rec != nil {
		r.Handle("/metrics", rec.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// mux answers plain text by default; both routers need the JSON shape
	for _, router := range []*mux.Router{r, api} {
		router.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
		router.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)
	}

	// ETF endpoints
	api.HandleFunc("/etfs", h.ETF.ListETFs).Methods("GET")
	api.HandleFunc("/etf/{symbol}", h.ETF.GetETF).Methods("GET")

	// Sync trigger
	api.HandleFunc("/sync", h.Sync.TriggerSync).Methods("POST")

	// Status
	api.HandleFunc("/health", h.Health.GetHealth).Methods("GET")
	api.HandleFunc("/subscription", h.Subscription.GetSubscription).Methods("GET")

	// Apply middleware (outermost first)
	r.Use(recoveryMiddleware(log))
	r.Use(metricsMiddleware(rec))
	r.Use(loggingMiddleware(log))

	return r
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func wrap(w http.ResponseWriter) *statusRecorder {
	if sr, ok := w.(*statusRecorder); ok {
		return sr
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := wrap(w)

			next.ServeHTTP(sw, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// metricsMiddleware records request counts and latency per route template
func metricsMiddleware(rec *metrics.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := wrap(w)

			next.ServeHTTP(sw, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			rec.RecordHTTP(route, r.Method, sw.status, time.Since(start))
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"Internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
