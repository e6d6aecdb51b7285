package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/internal/syncer"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
)

// SyncRunner triggers one snapshot sync
type SyncRunner interface {
	Run(ctx context.Context) (contracts.Snapshot, error)
}

// SyncHandler exposes the manual sync trigger
type SyncHandler struct {
	syncer SyncRunner
	apiKey string
	logger *logger.Logger
}

// NewSyncHandler creates a sync handler; an empty apiKey leaves the trigger open
func NewSyncHandler(s SyncRunner, apiKey string, log *logger.Logger) *SyncHandler {
	return &SyncHandler{
		syncer: s,
		apiKey: apiKey,
		logger: log,
	}
}

// TriggerSync runs a sync synchronously and returns the new snapshot
// POST /api/sync
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// a disconnecting caller must not abort a half-written run
	snap, err := h.syncer.Run(context.WithoutCancel(r.Context()))
	if errors.Is(err, syncer.ErrSyncInProgress) {
		respondError(w, http.StatusConflict, "Sync already in progress")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Manual sync failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (h *SyncHandler) authorized(r *http.Request) bool {
	if h.apiKey == "" {
		return true
	}
	want := "Bearer " + h.apiKey
	got := r.Header.Get("Authorization")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
