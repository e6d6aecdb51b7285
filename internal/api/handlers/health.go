package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/pkg/database"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
)

// DBChecker reports database health (postgres snapshot backend only)
type DBChecker interface {
	HealthCheck(ctx context.Context) database.HealthStatus
}

// HealthHandler reports readiness: key presence and the last successful sync
type HealthHandler struct {
	store     contracts.SnapshotStore
	fmpKeySet bool
	schedule  string
	db        DBChecker
	logger    *logger.Logger
}

// NewHealthHandler creates a health handler; schedule is the human label (e.g. "hourly")
func NewHealthHandler(store contracts.SnapshotStore, fmpKeySet bool, schedule string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		fmpKeySet: fmpKeySet,
		schedule:  schedule,
		logger:    log,
	}
}

// WithDatabase includes pool health in the response
func (h *HealthHandler) WithDatabase(db DBChecker) *HealthHandler {
	h.db = db
	return h
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	OK           bool                   `json:"ok"`
	ETFCount     int                    `json:"etfCount"`
	LastSync     *time.Time             `json:"lastSync"`
	SyncSchedule string                 `json:"syncSchedule"`
	FMPKeySet    bool                   `json:"fmpKeySet"`
	Endpoints    map[string]string      `json:"endpoints"`
	Database     *database.HealthStatus `json:"database,omitempty"`
}

// GetHealth returns readiness details
// GET /api/health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Health: snapshot unreadable")
		snap = contracts.EmptySnapshot()
	}

	resp := HealthResponse{
		OK:           true,
		ETFCount:     snap.Count,
		LastSync:     snap.SyncedAt,
		SyncSchedule: h.schedule,
		FMPKeySet:    h.fmpKeySet,
		Endpoints: map[string]string{
			"etfs":              "/api/etfs",
			"etfDetail":         "/api/etf/:symbol",
			"etfDetailExtended": "/api/etf/:symbol?extended=1",
		},
	}
	if h.db != nil {
		status := h.db.HealthCheck(r.Context())
		resp.Database = &status
	}

	respondJSON(w, http.StatusOK, resp)
}

// Liveness answers the bare process check
// GET /health
func Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "cryptoetf-api",
	})
}
